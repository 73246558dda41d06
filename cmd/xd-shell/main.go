package main

import (
	"errors"
	"os"

	"github.com/xduraid/xd-shell/internal/commands"
)

func main() {
	if err := run(); err != nil {
		var code commands.ExitError
		if errors.As(err, &code) {
			os.Exit(code.Code())
		}
		os.Exit(1)
	}
}

func run() error {
	root := commands.Root()

	err := root.Execute()
	var code commands.ExitError
	if errors.As(err, &code) {
		// proper exit code from the shell, nothing left to print
		return err
	}
	if err != nil {
		root.PrintErrln(root.ErrPrefix(), err.Error())
	}
	return err
}

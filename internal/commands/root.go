// Package commands defines the binary's cobra surface: the root
// command running the shell and the hidden reexec target used to run a
// builtin as a pipeline stage.
package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xduraid/xd-shell/internal/config"
	"github.com/xduraid/xd-shell/internal/shell"
)

// ExitError carries the shell's exit code out through cobra.
type ExitError int

func (e ExitError) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}

// Code returns the process exit code.
func (e ExitError) Code() int { return int(e) }

type root struct {
	cfg config.Config
}

func Root() *cobra.Command {
	var r root

	cmd := cobra.Command{
		Use:   "xd-shell [flags] [script]",
		Short: "An interactive POSIX-style command shell with job control",

		// silence these because the shell reports its own diagnostics
		// and exit codes
		SilenceUsage:  true,
		SilenceErrors: true,

		Args: cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return r.run(args)
		},
	}

	cmd.Flags().StringVarP(&r.cfg.Command, "command", "c", "", "run the command string and exit")
	cmd.Flags().BoolVarP(&r.cfg.Login, "login", "l", false, "behave as a login shell")

	cmd.AddCommand(Builtin())

	return &cmd
}

func (r *root) run(args []string) error {
	if r.cfg.Command == "" && len(args) > 0 {
		r.cfg.Script = args[0]
		r.cfg.Args = args[1:]
	}

	s, err := shell.New(&r.cfg)
	if err != nil {
		return err
	}
	if code := s.Run(); code != 0 {
		return ExitError(code)
	}
	return nil
}

package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/xduraid/xd-shell/internal/builtin"
	"github.com/xduraid/xd-shell/internal/config"
	"github.com/xduraid/xd-shell/internal/job"
	"github.com/xduraid/xd-shell/internal/shell"
)

// Builtin is the hidden reexec target: when a builtin runs as a
// pipeline stage or in the background, the executor forks this binary
// again as "xd-shell builtin name args...", giving the builtin its own
// pid and process group like any other stage.
func Builtin() *cobra.Command {
	return &cobra.Command{
		Use:                "builtin name [args]...",
		Hidden:             true,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("builtin: name required")
			}
			return runDetached(args[0], args[1:])
		},
	}
}

// runDetached executes one builtin against a fresh non-interactive
// shell context. Job-control builtins see an empty table here, which
// matches their subshell semantics.
func runDetached(name string, args []string) error {
	s, err := shell.New(&config.Config{Command: name})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := &builtin.Context{
		Shell: s,
		Stdio: job.Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
	}
	if code := builtin.Run(ctx, name, args); code != 0 {
		return ExitError(code)
	}
	return nil
}

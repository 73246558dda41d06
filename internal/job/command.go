// Package job holds the pipeline model, the shell-wide job table with
// its reaper, and the executor that forks pipelines and manages
// terminal custody.
package job

import "golang.org/x/sys/unix"

// Redirect is one output redirection target.
type Redirect struct {
	Path   string
	Append bool
}

// Command is one executable invocation within a pipeline.
type Command struct {
	// Argv is the expanded argument vector; Argv[0] is the name to
	// resolve.
	Argv []string

	// Stdin is the input redirection path, empty when none.
	Stdin string
	// Stdout and Stderr are the output redirections, nil when none.
	// When Stderr.Path equals Stdout.Path the stream is aliased onto
	// the stdout descriptor instead of opened twice.
	Stdout *Redirect
	Stderr *Redirect

	// ExtraEnv carries NAME=VALUE prefix assignments scoped to this
	// command.
	ExtraEnv []string

	// PID is the child's pid once forked, 0 otherwise.
	PID int
	// LastStatus is the last raw wait status observed for PID.
	LastStatus unix.WaitStatus

	// Display is the source text of the command, for jobs output.
	Display string

	started bool
	stopped bool
}

// AppendArg grows the argument vector by one.
func (c *Command) AppendArg(arg string) {
	c.Argv = append(c.Argv, arg)
}

// Started reports whether a child was actually forked for this
// command.
func (c *Command) Started() bool { return c.started }

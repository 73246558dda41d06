// Package builtin implements the shell's built-in commands. The set is
// deliberately small: the job-control four plus cd, exit, export, alias
// and unalias.
package builtin

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/job"
)

// Shell is the builtin's view of the running shell.
type Shell interface {
	JobTable() *job.Table
	Foreground(j *job.Job) int
	ContinueBackground(j *job.Job) error
	SignalJob(j *job.Job, sig unix.Signal, byJobspec bool) error
	Interactive() bool
	SetVar(name, value string, export bool)
	GetVar(name string) (string, bool)
	SetAlias(name, value string)
	RemoveAlias(name string)
	Aliases() map[string]string
	RequestExit(code int)
}

// Context is passed to every builtin invocation.
type Context struct {
	Shell Shell
	Stdio job.Stdio
}

func (ctx *Context) errorf(name, format string, args ...any) {
	fmt.Fprintf(ctx.Stdio.Err, "xd-shell: "+name+": "+format+"\n", args...)
}

// Func is one builtin implementation; the return value is its exit
// code.
type Func func(ctx *Context, args []string) int

var registry = map[string]Func{
	"jobs":    jobsCmd,
	"fg":      fgCmd,
	"bg":      bgCmd,
	"kill":    killCmd,
	"cd":      cdCmd,
	"exit":    exitCmd,
	"alias":   aliasCmd,
	"unalias": unaliasCmd,
	"export":  exportCmd,
}

// IsBuiltin reports whether name names a builtin.
func IsBuiltin(name string) bool {
	_, ok := registry[name]
	return ok
}

// Run executes one builtin by name.
func Run(ctx *Context, name string, args []string) int {
	fn, ok := registry[name]
	if !ok {
		ctx.errorf(name, "not a shell builtin")
		return 1
	}
	return fn(ctx, args)
}

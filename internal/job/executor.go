package job

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/sys"
	"github.com/xduraid/xd-shell/internal/term"
)

// Stdio carries the streams a builtin runs against.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Builtins is the executor's view of the builtin registry.
type Builtins interface {
	IsBuiltin(name string) bool
	// RunBuiltin executes one builtin and returns its exit code.
	RunBuiltin(name string, args []string, stdio Stdio) int
}

// Executor forks pipelines, wires their pipes and redirections,
// assigns process groups and manages the foreground/background
// transition against the job table.
type Executor struct {
	Table       *Table
	Term        *term.Steward // nil when the shell has no terminal
	Interactive bool

	Builtins Builtins
	// Environ synthesizes the exported child environment.
	Environ func() []string
	// PathVar returns the current PATH value.
	PathVar func() string
	// SelfExe is the shell binary, reexecuted to run a builtin as a
	// pipeline stage.
	SelfExe string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

func (e *Executor) stdin() *os.File {
	if e.Stdin != nil {
		return e.Stdin
	}
	return os.Stdin
}

func (e *Executor) stdout() *os.File {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() *os.File {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Executor) diag(format string, args ...any) {
	fmt.Fprintf(e.stderr(), "xd-shell: "+format+"\n", args...)
}

// Execute consumes a fully built job: it runs a lone builtin in
// process, or forks one child per stage and either waits for the
// foreground job or registers the background job. The returned value
// is the job's exit code.
func (e *Executor) Execute(j *Job) int {
	if len(j.Commands) == 1 && !j.Background &&
		e.Builtins != nil && e.Builtins.IsBuiltin(j.Commands[0].Argv[0]) {
		return e.runBuiltinDirect(j.Commands[0])
	}
	return e.runPipeline(j)
}

// runBuiltinDirect is the fast path: a single non-background builtin
// executes in the shell process with its stdio temporarily redirected.
func (e *Executor) runBuiltinDirect(c *Command) int {
	stdio := Stdio{In: e.stdin(), Out: e.stdout(), Err: e.stderr()}
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if c.Stdin != "" {
		f, err := openInput(c.Stdin)
		if err != nil {
			e.diag("%s: %v", c.Stdin, errUnwrap(err))
			return 1
		}
		opened = append(opened, f)
		stdio.In = f
	}
	if c.Stdout != nil {
		f, err := openRedirect(c.Stdout)
		if err != nil {
			e.diag("%s: %v", c.Stdout.Path, errUnwrap(err))
			return 1
		}
		opened = append(opened, f)
		stdio.Out = f
	}
	if c.Stderr != nil {
		if c.Stdout != nil && c.Stderr.Path == c.Stdout.Path {
			stdio.Err = stdio.Out
		} else {
			f, err := openRedirect(c.Stderr)
			if err != nil {
				e.diag("%s: %v", c.Stderr.Path, errUnwrap(err))
				return 1
			}
			opened = append(opened, f)
			stdio.Err = f
		}
	}
	return e.Builtins.RunBuiltin(c.Argv[0], c.Argv[1:], stdio)
}

func (e *Executor) runPipeline(j *Job) int {
	interactiveFG := e.Interactive && !j.Background && e.Term != nil

	if interactiveFG {
		e.Term.SaveShellModes()
	}
	if j.Background {
		e.Table.Add(j)
	} else {
		e.Table.SetForeground(j)
	}

	var prevRead *os.File
	for i, c := range j.Commands {
		last := i == len(j.Commands)-1

		var pipeRead, pipeWrite *os.File
		if !last {
			var err error
			pipeRead, pipeWrite, err = os.Pipe()
			if err != nil {
				closeAll(prevRead)
				return e.abort(j, fmt.Errorf("pipe: %w", err))
			}
		}

		err := e.startStage(j, c, i == 0, prevRead, pipeWrite, interactiveFG)
		closeAll(prevRead, pipeWrite)
		prevRead = pipeRead

		if err != nil {
			closeAll(pipeRead)
			return e.abort(j, err)
		}
	}
	e.Table.Touch(j)

	if j.Background {
		if e.Interactive {
			fmt.Fprintf(e.stdout(), "[%d] %d\n", j.ID, j.LastPID())
		}
		return 0
	}
	return e.waitForeground(j, interactiveFG)
}

// waitForeground blocks until the job terminates or stops, then takes
// the terminal back and settles job ownership.
func (e *Executor) waitForeground(j *Job, interactiveFG bool) int {
	if interactiveFG && j.PGID != 0 {
		e.Term.GiveTo(j.PGID)
	}
	e.Table.WaitForeground(j)
	st, code := e.Table.Snapshot(j)

	if interactiveFG {
		e.Term.Reclaim()
		if st != StateDone {
			if modes, err := e.Term.CaptureModes(); err == nil {
				j.SavedTermios = modes
			}
			e.Table.PromoteStopped(j)
		}
		e.Term.RestoreShellModes()
	} else if st != StateDone {
		e.Table.PromoteStopped(j)
	}
	e.Table.ClearForeground(j)
	return code
}

// startStage forks one pipeline stage. A stage whose target cannot be
// resolved or whose redirections cannot be opened fails alone: the
// diagnostic is printed, a synthetic exit status is recorded, and the
// rest of the pipeline proceeds. A returned error aborts the whole
// job.
func (e *Executor) startStage(j *Job, c *Command, first bool, stdinPipe, stdoutPipe *os.File, fg bool) error {
	path := e.SelfExe
	args := c.Argv
	if e.Builtins != nil && e.Builtins.IsBuiltin(c.Argv[0]) {
		args = append([]string{e.SelfExe, "builtin", c.Argv[0]}, c.Argv[1:]...)
	} else {
		var code int
		var msg string
		path, code, msg = lookPath(c.Argv[0], e.PathVar())
		if code != 0 {
			e.diag("%s: %s", c.Argv[0], msg)
			e.Table.Fail(j, c, code)
			return nil
		}
	}

	var opened []*os.File
	closeOpened := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	// stdin: a redirect file wins over the incoming pipe
	childIn := e.stdin()
	if c.Stdin != "" {
		f, err := openInput(c.Stdin)
		if err != nil {
			e.diag("%s: %v", c.Stdin, errUnwrap(err))
			e.Table.Fail(j, c, 1)
			return nil
		}
		opened = append(opened, f)
		childIn = f
	} else if stdinPipe != nil {
		childIn = stdinPipe
	}

	// stdout: a redirect file wins over the outgoing pipe
	childOut := e.stdout()
	if c.Stdout != nil {
		f, err := openRedirect(c.Stdout)
		if err != nil {
			closeOpened()
			e.diag("%s: %v", c.Stdout.Path, errUnwrap(err))
			e.Table.Fail(j, c, 1)
			return nil
		}
		opened = append(opened, f)
		childOut = f
	} else if stdoutPipe != nil {
		childOut = stdoutPipe
	}

	childErr := e.stderr()
	if c.Stderr != nil {
		if c.Stdout != nil && c.Stderr.Path == c.Stdout.Path {
			childErr = childOut
		} else {
			f, err := openRedirect(c.Stderr)
			if err != nil {
				closeOpened()
				e.diag("%s: %v", c.Stderr.Path, errUnwrap(err))
				e.Table.Fail(j, c, 1)
				return nil
			}
			opened = append(opened, f)
			childErr = f
		}
	}

	cmd := exec.Cmd{
		Path:   path,
		Args:   args,
		Env:    append(e.Environ(), c.ExtraEnv...),
		Stdin:  childIn,
		Stdout: childOut,
		Stderr: childErr,
	}
	if e.Interactive {
		attr := &syscall.SysProcAttr{Setpgid: true, Pgid: j.PGID}
		if fg && first {
			// hand the terminal over in the child before exec; the
			// parent mirrors it afterwards so either side may win
			attr.Foreground = true
			attr.Ctty = e.Term.Fd()
		}
		cmd.SysProcAttr = attr
	}

	if err := cmd.Start(); err != nil {
		closeOpened()
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.ENOEXEC) || errors.Is(err, unix.EPERM) {
			e.diag("%s: %v", c.Argv[0], errUnwrap(err))
			e.Table.Fail(j, c, 126)
			return nil
		}
		return fmt.Errorf("%s: %w", c.Argv[0], err)
	}

	e.Table.Register(j, c, cmd.Process.Pid)
	if e.Interactive {
		// mirror of the child-side setpgid; losing the race is fine
		sys.Setpgid(cmd.Process.Pid, j.PGID)
	}
	closeOpened()
	return nil
}

// abort is the mid-build failure path: every already-forked child is
// killed and reaped, the job is withdrawn, and the shell takes the
// terminal back.
func (e *Executor) abort(j *Job, cause error) int {
	e.diag("%v", cause)

	for _, c := range j.Commands {
		if c.Started() {
			sys.Kill(c.PID, unix.SIGKILL)
		}
	}
	e.Table.WaitForeground(j)

	e.Table.Remove(j)
	e.Table.ClearForeground(j)
	if e.Interactive && e.Term != nil {
		e.Term.Reclaim()
		e.Term.RestoreShellModes()
	}
	return 1
}

// Foreground implements fg: terminal handoff, saved tty modes, a
// SIGCONT to the group, then a foreground wait.
func (e *Executor) Foreground(j *Job) int {
	if e.Interactive && e.Term != nil {
		e.Term.SaveShellModes()
		e.Term.GiveTo(j.PGID)
		e.Term.ApplyModes(j.SavedTermios)
	}
	e.Table.SetForeground(j)
	e.Table.MarkContinued(j)
	sys.Killpg(j.PGID, unix.SIGCONT)

	e.Table.WaitForeground(j)
	st, code := e.Table.Snapshot(j)

	if e.Interactive && e.Term != nil {
		e.Term.Reclaim()
		if st != StateDone {
			if modes, err := e.Term.CaptureModes(); err == nil {
				j.SavedTermios = modes
			}
		}
		e.Term.RestoreShellModes()
	}
	e.Table.ClearForeground(j)
	if st == StateDone {
		e.Table.Remove(j)
	}
	return code
}

// ContinueBackground implements bg for one stopped job.
func (e *Executor) ContinueBackground(j *Job) error {
	if err := e.Table.ContinueInBackground(j); err != nil {
		return err
	}
	return e.SignalJob(j, unix.SIGCONT, true)
}

// SignalJob delivers sig to a job. A job named by jobspec is signalled
// through its process group in an interactive shell; otherwise, and
// for non-interactive shells, each command is signalled by pid so a
// foreign process group is never touched.
func (e *Executor) SignalJob(j *Job, sig unix.Signal, byJobspec bool) error {
	if byJobspec && e.Interactive && j.PGID != 0 {
		return sys.Killpg(j.PGID, sig)
	}
	var firstErr error
	for _, c := range j.Commands {
		if !c.Started() {
			continue
		}
		if err := sys.Kill(c.PID, sig); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (j *Job) LastPID() int {
	for i := len(j.Commands) - 1; i >= 0; i-- {
		if j.Commands[i].Started() {
			return j.Commands[i].PID
		}
	}
	return j.PGID
}

func (j *Job) stopSignal() unix.Signal {
	if j.LastStatus.Stopped() {
		return j.LastStatus.StopSignal()
	}
	return unix.SIGTSTP
}

func openRedirect(r *Redirect) (*os.File, error) {
	flags := unix.O_WRONLY | unix.O_CREAT
	if r.Append {
		flags |= unix.O_APPEND
	} else {
		flags |= unix.O_TRUNC
	}
	return openFile(r.Path, flags)
}

func openInput(path string) (*os.File, error) {
	return openFile(path, unix.O_RDONLY)
}

// openFile opens through the EINTR-restarting wrapper; creation mode
// is 0664 masked by the umask.
func openFile(path string, flags int) (*os.File, error) {
	fd, err := sys.Open(path, flags, 0664)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// errUnwrap strips the operation and path noise from os errors so
// diagnostics read like "no such file or directory".
func errUnwrap(err error) error {
	var perr *os.PathError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}

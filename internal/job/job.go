package job

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/sys"
)

// State is the derived job state.
type State int

const (
	// StateRunning means at least one child is alive and none are
	// stopped.
	StateRunning State = iota
	// StateStopped means every remaining child is stopped.
	StateStopped
	// StateDone means every child has been reaped.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Job is one pipeline of commands executed together in a shared
// process group.
type Job struct {
	Commands   []*Command
	Background bool

	// PGID is 0 before the first fork, then the pid of the first
	// child.
	PGID int
	// ID is assigned by the table on registration, 1-based.
	ID int

	// LastStatus is the raw wait status of the pipeline-terminating
	// command.
	LastStatus unix.WaitStatus

	// SavedTermios holds the tty attributes captured when the job last
	// left the foreground, restored on fg.
	SavedTermios *unix.Termios

	unreaped   int
	stopped    int
	lastActive time.Time
	notify     bool
	statusSet  bool
}

// Append adds one command to the pipeline.
func (j *Job) Append(c *Command) {
	j.Commands = append(j.Commands, c)
}

// State derives the job state from the reap counters.
func (j *Job) State() State {
	switch {
	case j.unreaped == 0:
		return StateDone
	case j.stopped == j.unreaped:
		return StateStopped
	default:
		return StateRunning
	}
}

// Alive reports whether any child remains unreaped.
func (j *Job) Alive() bool { return j.unreaped > 0 }

// ExitCode decodes the job's exit code from the terminating command's
// wait status: the exit status when it exited, 128+signum when it was
// terminated by a signal.
func (j *Job) ExitCode() int {
	ws := j.LastStatus
	switch {
	case !j.statusSet:
		return 0
	case ws.Signaled():
		return 128 + int(ws.Signal())
	case ws.Exited():
		return ws.ExitStatus()
	}
	return 0
}

// setStatus records a wait status for c, mirroring it into the job's
// terminating status when c is the last stage.
func (j *Job) setStatus(c *Command, ws unix.WaitStatus) {
	c.LastStatus = ws
	if c == j.Commands[len(j.Commands)-1] {
		j.LastStatus = ws
		j.statusSet = true
	}
}

func (j *Job) touch() { j.lastActive = time.Now() }

// Display reconstructs the pipeline source text for jobs output.
func (j *Job) Display() string {
	parts := make([]string, len(j.Commands))
	for i, c := range j.Commands {
		parts[i] = c.Display
	}
	s := strings.Join(parts, " | ")
	if j.Background {
		s += " &"
	}
	return s
}

// StatusLabel renders the human-readable state for one jobs line,
// decoding the exact reason from the last wait status on demand.
func (j *Job) StatusLabel() string {
	switch j.State() {
	case StateRunning:
		return "Running"
	case StateStopped:
		sig := unix.SIGTSTP
		if j.LastStatus.Stopped() {
			sig = j.LastStatus.StopSignal()
		}
		return fmt.Sprintf("Stopped (SIG%s)", sys.SignalName(sig))
	}
	ws := j.LastStatus
	switch {
	case ws.Signaled() && ws.CoreDump():
		return fmt.Sprintf("Core dumped (SIG%s)", sys.SignalName(ws.Signal()))
	case ws.Signaled():
		return fmt.Sprintf("Terminated (SIG%s)", sys.SignalName(ws.Signal()))
	case ws.Exited() && ws.ExitStatus() != 0:
		return fmt.Sprintf("Done (%d)", ws.ExitStatus())
	}
	return "Done"
}

package job

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrNoSuchJob is returned by lookups for an unknown job spec.
var ErrNoSuchJob = errors.New("no such job")

// Table is the shell-wide list of live jobs. The mutex takes the role
// the counted SIGCHLD-block regions play in a handler-based design:
// every mutation of the job list spine or a job's counters happens
// under it, from the reaper goroutine and the synchronous path alike.
type Table struct {
	mu   sync.Mutex
	cond *sync.Cond

	jobs []*Job
	fg   map[*Job]struct{}

	current  *Job
	previous *Job

	// orphans buffers statuses reaped before the forking path recorded
	// the child's pid.
	orphans map[int]unix.WaitStatus
}

func NewTable() *Table {
	t := &Table{
		fg:      make(map[*Job]struct{}),
		orphans: make(map[int]unix.WaitStatus),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Add registers j and assigns its job id: 1 + max(existing), else 1.
func (t *Table) Add(j *Job) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(j)
}

func (t *Table) addLocked(j *Job) int {
	max := 0
	for _, other := range t.jobs {
		if other.ID > max {
			max = other.ID
		}
	}
	j.ID = max + 1
	j.touch()
	t.jobs = append(t.jobs, j)
	t.recompute()
	return j.ID
}

// SetForeground makes j visible to the reaper for the duration of a
// foreground run without listing it.
func (t *Table) SetForeground(j *Job) {
	t.mu.Lock()
	t.fg[j] = struct{}{}
	t.mu.Unlock()
}

// ClearForeground releases the executor's share of a foreground job.
func (t *Table) ClearForeground(j *Job) {
	t.mu.Lock()
	delete(t.fg, j)
	t.mu.Unlock()
}

// PromoteStopped moves a stopped foreground job into the listed table,
// transferring ownership from the executor.
func (t *Table) PromoteStopped(j *Job) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fg, j)
	for _, other := range t.jobs {
		if other == j {
			return j.ID
		}
	}
	return t.addLocked(j)
}

// Snapshot reads the job's state and exit code consistently: a stopped
// job reports 128 plus its stop signal.
func (t *Table) Snapshot(j *Job) (State, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := j.State()
	code := j.ExitCode()
	if st == StateStopped {
		code = 128 + int(j.stopSignal())
	}
	return st, code
}

// Register records a freshly forked child: pid, unreaped counter and
// the job's process group. A status reaped before registration is
// adopted here.
func (t *Table) Register(j *Job, c *Command, pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c.PID = pid
	c.started = true
	j.unreaped++
	if j.PGID == 0 {
		j.PGID = pid
	}
	j.touch()

	if ws, ok := t.orphans[pid]; ok {
		delete(t.orphans, pid)
		t.applyLocked(j, c, ws)
	}
	t.recompute()
}

// Apply records one wait status observed by the reaper.
func (t *Table) Apply(pid int, ws unix.WaitStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, c := t.byPIDLocked(pid)
	if j == nil {
		t.orphans[pid] = ws
		return
	}
	t.applyLocked(j, c, ws)
}

func (t *Table) applyLocked(j *Job, c *Command, ws unix.WaitStatus) {
	j.setStatus(c, ws)

	switch {
	case ws.Continued():
		if c.stopped {
			c.stopped = false
			j.stopped--
		}
	case ws.Stopped():
		if !c.stopped {
			c.stopped = true
			j.stopped++
		}
	case ws.Exited() || ws.Signaled():
		if c.stopped {
			c.stopped = false
			j.stopped--
		}
		j.unreaped--
	}

	if j.State() != StateRunning {
		j.notify = true
	}
	j.touch()
	t.recompute()
	t.cond.Broadcast()
}

// Fail records a synthetic exit status for a stage that never forked
// (resolution or redirection failure).
func (t *Table) Fail(j *Job, c *Command, code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j.setStatus(c, unix.WaitStatus(code<<8))
	j.touch()
}

// Remove withdraws j from the listed jobs.
func (t *Table) Remove(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, other := range t.jobs {
		if other == j {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			break
		}
	}
	t.recompute()
}

// ContinueInBackground flips a stopped job to a running background
// job ahead of bg's SIGCONT, and queues a notification. It rejects a
// job that is not stopped.
func (t *Table) ContinueInBackground(j *Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j.State() != StateStopped {
		return fmt.Errorf("job %d already in background", j.ID)
	}
	for _, c := range j.Commands {
		if c.stopped {
			c.stopped = false
			j.stopped--
		}
	}
	j.Background = true
	j.notify = true
	j.touch()
	t.recompute()
	t.cond.Broadcast()
	return nil
}

// MarkContinued mirrors a SIGCONT sent by bg/fg so the state flips
// without waiting for the kernel's CONTINUED notification.
func (t *Table) MarkContinued(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range j.Commands {
		if c.stopped {
			c.stopped = false
			j.stopped--
		}
	}
	j.touch()
	t.recompute()
	t.cond.Broadcast()
}

// WaitForeground blocks until j is no longer running. Wakeups come
// from the reaper's broadcast.
func (t *Table) WaitForeground(j *Job) {
	t.mu.Lock()
	for j.State() == StateRunning {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

// Touch stamps j's last-active time.
func (t *Table) Touch(j *Job) {
	t.mu.Lock()
	j.touch()
	t.mu.Unlock()
}

func (t *Table) byPIDLocked(pid int) (*Job, *Command) {
	scan := func(j *Job) *Command {
		for _, c := range j.Commands {
			if c.started && c.PID == pid {
				return c
			}
		}
		return nil
	}
	for j := range t.fg {
		if c := scan(j); c != nil {
			return j, c
		}
	}
	for _, j := range t.jobs {
		if c := scan(j); c != nil {
			return j, c
		}
	}
	return nil, nil
}

// Jobs returns a snapshot of the listed jobs in registration order.
func (t *Table) Jobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// Current returns the %+ job, Previous the %- job.
func (t *Table) Current() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Table) Previous() *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previous
}

// Marker renders the jobs-output marker for j: '+' for current, '-'
// for previous, space otherwise.
func (t *Table) Marker(j *Job) byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch j {
	case t.current:
		return '+'
	case t.previous:
		return '-'
	}
	return ' '
}

// recompute reorders the current/previous pointers: stopped jobs
// before merely backgrounded ones, more recent before older.
func (t *Table) recompute() {
	cands := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		if j.Alive() {
			cands = append(cands, j)
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		ja, jb := cands[a], cands[b]
		sa, sb := ja.State() == StateStopped, jb.State() == StateStopped
		if sa != sb {
			return sa
		}
		return ja.lastActive.After(jb.lastActive)
	})

	t.current, t.previous = nil, nil
	if len(cands) > 0 {
		t.current = cands[0]
	}
	if len(cands) > 1 {
		t.previous = cands[1]
	}
}

// Find resolves a job spec: %% and %+ mean current, %- previous, %n
// the job with id n. The leading % is optional for numeric specs.
func (t *Table) Find(spec string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch spec {
	case "", "%%", "%+", "+":
		if t.current == nil {
			return nil, fmt.Errorf("current: %w", ErrNoSuchJob)
		}
		return t.current, nil
	case "%-", "-":
		if t.previous == nil {
			return nil, fmt.Errorf("previous: %w", ErrNoSuchJob)
		}
		return t.previous, nil
	}

	num := strings.TrimPrefix(spec, "%")
	id, err := strconv.Atoi(num)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
	}
	for _, j := range t.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", spec, ErrNoSuchJob)
}

// FormatLine renders one jobs status line. With long set the pid
// column is included.
func (t *Table) FormatLine(j *Job, long bool) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	marker := byte(' ')
	switch j {
	case t.current:
		marker = '+'
	case t.previous:
		marker = '-'
	}
	if long {
		return fmt.Sprintf("[%d]%c %6d  %-24s%s",
			j.ID, marker, j.PGID, j.StatusLabel(), j.Display())
	}
	return fmt.Sprintf("[%d]%c  %-24s%s",
		j.ID, marker, j.StatusLabel(), j.Display())
}

// Drain reports every job with a pending notification and prunes fully
// reaped jobs. It runs before each prompt.
func (t *Table) Drain(w io.Writer) {
	t.mu.Lock()
	var lines []string
	keep := t.jobs[:0]
	for _, j := range t.jobs {
		if j.notify {
			j.notify = false
			lines = append(lines, t.formatLocked(j))
		}
		if j.Alive() {
			keep = append(keep, j)
		}
	}
	t.jobs = keep
	t.recompute()
	t.mu.Unlock()

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func (t *Table) formatLocked(j *Job) string {
	marker := byte(' ')
	switch j {
	case t.current:
		marker = '+'
	case t.previous:
		marker = '-'
	}
	return fmt.Sprintf("[%d]%c  %-24s%s", j.ID, marker, j.StatusLabel(), j.Display())
}

package job

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// executor tests spawn real children, so the whole package shares one
// table and one reaper: concurrent reapers would steal each other's
// wait statuses.
var (
	sharedTable  *Table
	sharedReaper *Reaper
)

func TestMain(m *testing.M) {
	sharedTable = NewTable()
	sharedReaper = StartReaper(sharedTable)
	code := m.Run()
	sharedReaper.Stop()
	os.Exit(code)
}

func newTestExecutor(t *testing.T) (*Executor, *os.File) {
	t.Helper()
	diag, err := os.CreateTemp(t.TempDir(), "diag")
	require.NoError(t, err)
	t.Cleanup(func() { diag.Close() })

	return &Executor{
		Table:   sharedTable,
		Environ: os.Environ,
		PathVar: func() string { return os.Getenv("PATH") },
		SelfExe: "/proc/self/exe",
		Stderr:  diag,
	}, diag
}

func readBack(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

// state reads a job's derived state under the table lock.
func state(j *Job) State {
	sharedTable.mu.Lock()
	defer sharedTable.mu.Unlock()
	return j.State()
}

func waitState(t *testing.T, j *Job, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if state(j) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never reached %v, still %v", want, state(j))
}

func TestExecuteSimpleCommand(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	e, _ := newTestExecutor(t)
	out := filepath.Join(t.TempDir(), "out")

	j := &Job{}
	j.Append(&Command{
		Argv:    []string{"echo", "hello", "world"},
		Stdout:  &Redirect{Path: out},
		Display: "echo hello world",
	})

	code := e.Execute(j)
	require.Equal(0, code)
	assert.Equal("hello world\n", readBack(t, mustOpen(t, out)))
	assert.Equal(StateDone, state(j))
	assert.Equal(0, j.unreaped)
}

func TestExecutePipeline(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	e, _ := newTestExecutor(t)
	out := filepath.Join(t.TempDir(), "out")

	j := &Job{}
	j.Append(&Command{Argv: []string{"echo", "through the pipe"}, Display: "echo"})
	j.Append(&Command{Argv: []string{"cat"}, Stdout: &Redirect{Path: out}, Display: "cat"})

	code := e.Execute(j)
	require.Equal(0, code)
	assert.Equal("through the pipe\n", readBack(t, mustOpen(t, out)))

	// pipeline conservation: every forked child was reaped
	assert.Equal(0, j.unreaped)
	assert.NotZero(j.PGID)
}

func TestExecuteExitCodes(t *testing.T) {
	t.Parallel()

	t.Run("exit-status-propagates", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestExecutor(t)
		j := &Job{}
		j.Append(&Command{Argv: []string{"sh", "-c", "exit 7"}, Display: "sh"})
		assert.Equal(t, 7, e.Execute(j))
	})

	t.Run("last-stage-wins", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestExecutor(t)
		j := &Job{}
		j.Append(&Command{Argv: []string{"sh", "-c", "exit 3"}, Display: "sh"})
		j.Append(&Command{Argv: []string{"true"}, Display: "true"})
		assert.Equal(t, 0, e.Execute(j))
	})

	t.Run("command-not-found-127", func(t *testing.T) {
		t.Parallel()
		e, diag := newTestExecutor(t)
		j := &Job{}
		j.Append(&Command{Argv: []string{"no-such-command-xd"}, Display: "?"})
		assert.Equal(t, 127, e.Execute(j))
		assert.Contains(t, readBack(t, diag), "command not found")
	})

	t.Run("directory-126", func(t *testing.T) {
		t.Parallel()
		e, diag := newTestExecutor(t)
		dir := t.TempDir()
		j := &Job{}
		j.Append(&Command{Argv: []string{dir}, Display: dir})
		assert.Equal(t, 126, e.Execute(j))
		assert.Contains(t, readBack(t, diag), "Is a directory")
	})
}

func TestExecuteRedirections(t *testing.T) {
	t.Parallel()

	t.Run("stdin-file-wins-over-pipe", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		e, _ := newTestExecutor(t)

		dir := t.TempDir()
		in := filepath.Join(dir, "in")
		out := filepath.Join(dir, "out")
		require.NoError(os.WriteFile(in, []byte("from file\n"), 0644))

		j := &Job{}
		j.Append(&Command{Argv: []string{"echo", "from pipe"}, Display: "echo"})
		j.Append(&Command{
			Argv:    []string{"cat"},
			Stdin:   in,
			Stdout:  &Redirect{Path: out},
			Display: "cat",
		})

		require.Equal(0, e.Execute(j))
		require.Equal("from file\n", readBack(t, mustOpen(t, out)))
	})

	t.Run("append", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		e, _ := newTestExecutor(t)
		out := filepath.Join(t.TempDir(), "out")

		for _, word := range []string{"one", "two"} {
			j := &Job{}
			j.Append(&Command{
				Argv:    []string{"echo", word},
				Stdout:  &Redirect{Path: out, Append: true},
				Display: "echo",
			})
			require.Equal(0, e.Execute(j))
		}
		require.Equal("one\ntwo\n", readBack(t, mustOpen(t, out)))
	})

	t.Run("stderr-aliases-stdout-on-equal-path", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		e, _ := newTestExecutor(t)
		out := filepath.Join(t.TempDir(), "out")

		j := &Job{}
		j.Append(&Command{
			Argv:    []string{"sh", "-c", "echo to-out; echo to-err >&2"},
			Stdout:  &Redirect{Path: out},
			Stderr:  &Redirect{Path: out},
			Display: "sh",
		})
		require.Equal(0, e.Execute(j))
		require.Equal("to-out\nto-err\n", readBack(t, mustOpen(t, out)))
	})

	t.Run("unreadable-stdin-fails-stage", func(t *testing.T) {
		t.Parallel()
		e, diag := newTestExecutor(t)
		j := &Job{}
		j.Append(&Command{
			Argv:    []string{"cat"},
			Stdin:   filepath.Join(t.TempDir(), "missing"),
			Display: "cat",
		})
		assert.Equal(t, 1, e.Execute(j))
		assert.Contains(t, readBack(t, diag), "no such file")
	})
}

func TestExecuteBackground(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	e, _ := newTestExecutor(t)

	j := &Job{Background: true}
	j.Append(&Command{Argv: []string{"sleep", "0.1"}, Display: "sleep 0.1"})

	code := e.Execute(j)
	require.Equal(0, code)
	assert.NotZero(j.ID)
	assert.NotZero(j.LastPID())

	// conservation: the job reaches zero unreaped children once the
	// reaper catches the exit
	waitState(t, j, StateDone)
	sharedTable.Remove(j)
}

func TestSignalJob(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	e, _ := newTestExecutor(t)

	j := &Job{Background: true}
	j.Append(&Command{Argv: []string{"sleep", "30"}, Display: "sleep 30"})
	require.Equal(0, e.Execute(j))

	require.NoError(e.SignalJob(j, unix.SIGTERM, false))
	waitState(t, j, StateDone)
	require.Equal(128+int(unix.SIGTERM), j.ExitCode())
	sharedTable.Remove(j)
}

func TestStopAndContinue(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	e, _ := newTestExecutor(t)

	j := &Job{Background: true}
	j.Append(&Command{Argv: []string{"sleep", "30"}, Display: "sleep 30"})
	require.Equal(0, e.Execute(j))

	require.NoError(e.SignalJob(j, unix.SIGSTOP, false))
	waitState(t, j, StateStopped)

	require.NoError(e.ContinueBackground(j))
	waitState(t, j, StateRunning)

	// bg on a running job is rejected
	require.Error(e.ContinueBackground(j))

	require.NoError(e.SignalJob(j, unix.SIGKILL, false))
	waitState(t, j, StateDone)
	sharedTable.Remove(j)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

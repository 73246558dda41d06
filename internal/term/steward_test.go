package term

import (
	"os"
	"testing"

	"github.com/kr/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openPTY provides a real terminal device; environments without a pty
// subsystem skip.
func openPTY(t *testing.T) (master, slave *os.File) {
	t.Helper()
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() {
		master.Close()
		slave.Close()
	})
	return master, slave
}

func TestNewRequiresTerminal(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	f, err := os.Open(os.DevNull)
	require.NoError(err)
	defer f.Close()

	_, err = New(f)
	require.Error(err)

	_, slave := openPTY(t)
	s, err := New(slave)
	require.NoError(err)
	require.Equal(int(slave.Fd()), s.Fd())
}

func TestModeRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	_, slave := openPTY(t)
	s, err := New(slave)
	require.NoError(err)

	modes, err := s.CaptureModes()
	require.NoError(err)

	// disturb the terminal, then restore the saved attributes
	changed := *modes
	changed.Lflag &^= unix.ECHO
	require.NoError(s.ApplyModes(&changed))

	after, err := s.CaptureModes()
	require.NoError(err)
	assert.Zero(after.Lflag & unix.ECHO)

	require.NoError(s.RestoreShellModes())
	restored, err := s.CaptureModes()
	require.NoError(err)
	assert.Equal(modes.Lflag, restored.Lflag)
}

func TestApplyNilModesIsNoop(t *testing.T) {
	t.Parallel()

	_, slave := openPTY(t)
	s, err := New(slave)
	require.NoError(t, err)
	assert.NoError(t, s.ApplyModes(nil))
}

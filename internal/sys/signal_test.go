package sys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSignalByName(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	for _, name := range []string{"TERM", "term", "SIGTERM", "sigterm", "15"} {
		sig, err := SignalByName(name)
		require.NoError(err, "name %q", name)
		assert.Equal(unix.SIGTERM, sig, "name %q", name)
	}

	for _, name := range []string{"", "NOPE", "SIGNOPE", "0", "-3", "99"} {
		_, err := SignalByName(name)
		require.Error(err, "name %q", name)
	}
}

func TestSignalName(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Equal("TERM", SignalName(unix.SIGTERM))
	assert.Equal("KILL", SignalName(unix.SIGKILL))
	assert.Equal("TSTP", SignalName(unix.SIGTSTP))
}

func TestSignalTable(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	sigs := SignalTable()
	require.Len(sigs, 31)
	require.Equal(unix.SIGHUP, sigs[0])
}

func TestRetry(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	calls := 0
	err := Retry(func() error {
		calls++
		if calls < 3 {
			return unix.EINTR
		}
		return nil
	})
	require.NoError(err)
	require.Equal(3, calls)

	require.ErrorIs(Retry(func() error { return unix.EBADF }), unix.EBADF)
}

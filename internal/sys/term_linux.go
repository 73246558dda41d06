//go:build linux

package sys

import "golang.org/x/sys/unix"

// Tcgetpgrp returns the foreground process group of the terminal fd.
func Tcgetpgrp(fd int) (int, error) {
	var pgid int
	err := Retry(func() error {
		var err error
		pgid, err = unix.IoctlGetInt(fd, unix.TIOCGPGRP)
		return err
	})
	return pgid, err
}

// Tcsetpgrp makes pgid the foreground process group of the terminal
// fd, restarting on EINTR.
func Tcsetpgrp(fd, pgid int) error {
	return Retry(func() error {
		return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
	})
}

// GetTermios captures the terminal attributes of fd.
func GetTermios(fd int) (*unix.Termios, error) {
	var tio *unix.Termios
	err := Retry(func() error {
		var err error
		tio, err = unix.IoctlGetTermios(fd, unix.TCGETS)
		return err
	})
	return tio, err
}

// SetTermios applies tio to fd after pending output has drained.
func SetTermios(fd int, tio *unix.Termios) error {
	return Retry(func() error {
		return unix.IoctlSetTermios(fd, unix.TCSETSW, tio)
	})
}

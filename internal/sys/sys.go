// Package sys wraps the handful of raw syscalls the shell core needs
// for job control. The open, wait and terminal wrappers restart on
// EINTR; Setpgid, Getpgrp, Kill and Killpg call through directly.
package sys

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Retry invokes fn until it returns without EINTR.
func Retry(fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// Open opens path with the given flags and permissions, restarting on
// EINTR.
func Open(path string, flags int, perm uint32) (int, error) {
	var fd int
	err := Retry(func() error {
		var err error
		fd, err = unix.Open(path, flags, perm)
		return err
	})
	return fd, err
}

// Setpgid assigns pid to the process group pgid. A pgid of 0 creates a
// new group led by pid.
func Setpgid(pid, pgid int) error {
	return unix.Setpgid(pid, pgid)
}

// Getpgrp returns the caller's process group.
func Getpgrp() int {
	return unix.Getpgrp()
}

// Kill sends sig to pid.
func Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// Killpg sends sig to every member of the process group pgid.
func Killpg(pgid int, sig unix.Signal) error {
	return unix.Kill(-pgid, sig)
}

// Wait4 blocks until pid changes state, restarting on EINTR. The
// options are passed through to the kernel unchanged.
func Wait4(pid int, options int) (int, unix.WaitStatus, error) {
	var ws unix.WaitStatus
	var reaped int
	err := Retry(func() error {
		var err error
		reaped, err = unix.Wait4(pid, &ws, options, nil)
		return err
	})
	return reaped, ws, err
}

// WaitAny performs one non-blocking reap pass. It returns pid 0 when
// no child has changed state, and ECHILD when there are no children
// left to wait for.
func WaitAny() (int, unix.WaitStatus, error) {
	return Wait4(-1, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED)
}

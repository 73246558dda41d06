// Package term owns the controlling terminal: tty attributes and
// foreground process-group custody across job transitions.
package term

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/sys"
)

// Steward saves and restores tty attributes and hands the terminal's
// foreground process group between the shell and its jobs. It enforces
// the property that the terminal's foreground pgrp is always either
// the shell's own pgrp or the currently foreground job's.
type Steward struct {
	tty       *os.File
	shellPGID int
	modes     *unix.Termios
}

// New wraps the controlling terminal. It fails when tty is not a
// terminal.
func New(tty *os.File) (*Steward, error) {
	modes, err := sys.GetTermios(int(tty.Fd()))
	if err != nil {
		return nil, fmt.Errorf("not a terminal: %w", err)
	}
	return &Steward{tty: tty, modes: modes}, nil
}

// Fd exposes the terminal descriptor for process spawning.
func (s *Steward) Fd() int { return int(s.tty.Fd()) }

// Handshake brings the shell into the terminal foreground: it sends
// SIGTTIN to its own process group until the terminal agrees, moves
// itself into its own group, claims the terminal, and re-captures the
// startup attributes.
func (s *Steward) Handshake() error {
	fd := s.Fd()
	for {
		fgpg, err := sys.Tcgetpgrp(fd)
		if err != nil {
			return fmt.Errorf("tcgetpgrp: %w", err)
		}
		pgrp := sys.Getpgrp()
		if fgpg == pgrp {
			break
		}
		if err := sys.Killpg(pgrp, unix.SIGTTIN); err != nil {
			return fmt.Errorf("kill SIGTTIN: %w", err)
		}
	}

	pid := os.Getpid()
	if err := sys.Setpgid(pid, pid); err != nil && err != unix.EPERM {
		return fmt.Errorf("setpgid: %w", err)
	}
	s.shellPGID = sys.Getpgrp()

	if err := sys.Tcsetpgrp(fd, s.shellPGID); err != nil {
		return fmt.Errorf("tcsetpgrp: %w", err)
	}
	return s.SaveShellModes()
}

// ShellPGID returns the shell's process group after Handshake.
func (s *Steward) ShellPGID() int {
	if s.shellPGID == 0 {
		return sys.Getpgrp()
	}
	return s.shellPGID
}

// SaveShellModes re-captures the shell's tty attributes. Called at
// startup and immediately before each foreground launch.
func (s *Steward) SaveShellModes() error {
	modes, err := sys.GetTermios(s.Fd())
	if err != nil {
		return err
	}
	s.modes = modes
	return nil
}

// RestoreShellModes reapplies the shell's saved attributes.
func (s *Steward) RestoreShellModes() error {
	if s.modes == nil {
		return nil
	}
	return sys.SetTermios(s.Fd(), s.modes)
}

// CaptureModes snapshots the terminal attributes a stopped job leaves
// behind, for restoration on fg.
func (s *Steward) CaptureModes() (*unix.Termios, error) {
	return sys.GetTermios(s.Fd())
}

// ApplyModes reinstates a job's saved attributes before resuming it.
func (s *Steward) ApplyModes(modes *unix.Termios) error {
	if modes == nil {
		return nil
	}
	return sys.SetTermios(s.Fd(), modes)
}

// GiveTo hands terminal foreground custody to pgid.
func (s *Steward) GiveTo(pgid int) error {
	return sys.Tcsetpgrp(s.Fd(), pgid)
}

// Reclaim takes terminal custody back for the shell.
func (s *Steward) Reclaim() error {
	return sys.Tcsetpgrp(s.Fd(), s.ShellPGID())
}

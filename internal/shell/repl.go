package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Run drives the shell to completion for the configured mode and
// returns the process exit code.
func (s *Shell) Run() int {
	defer s.Close()

	switch {
	case s.cfg.Command != "":
		s.RunLine(s.cfg.Command)
		return s.exitStatus()
	case s.cfg.Script != "":
		f, err := os.Open(s.cfg.Script)
		if err != nil {
			s.report(&Error{Kind: KindIO, Operand: s.cfg.Script, Err: err})
			return 127
		}
		defer f.Close()
		s.loop(f)
		return s.exitStatus()
	}

	s.loop(os.Stdin)
	return s.exitStatus()
}

func (s *Shell) exitStatus() int {
	if s.exiting {
		return s.exitCode
	}
	return s.lastExit
}

// loop reads input line by line. Interactively it refreshes the job
// table and prints the prompt before each read; the line editing
// itself is left to the terminal.
func (s *Shell) loop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for !s.exiting {
		if s.interactive {
			s.table.Drain(s.stdout)
			fmt.Fprint(s.stdout, s.prompt())
		}
		if !scanner.Scan() {
			return
		}
		s.RunLine(scanner.Text())
	}
}

func (s *Shell) prompt() string {
	if ps1, ok := s.Var("PS1"); ok && ps1 != "" {
		return ps1
	}
	return "xd-shell$ "
}

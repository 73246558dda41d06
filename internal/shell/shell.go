// Package shell wires the execution core together: the single context
// value owning all global mutable state, the REPL, and the glue
// between parser, expansion engine, executor and job table.
package shell

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/xduraid/xd-shell/internal/builtin"
	"github.com/xduraid/xd-shell/internal/config"
	"github.com/xduraid/xd-shell/internal/expand"
	"github.com/xduraid/xd-shell/internal/job"
	"github.com/xduraid/xd-shell/internal/term"
)

// Var is one shell variable.
type Var struct {
	Value    string
	Exported bool
}

// Shell owns the process-wide shell state. It is initialized once at
// startup by New, torn down by Close, and never re-initialized.
type Shell struct {
	cfg *config.Config

	vars    map[string]Var
	aliases map[string]string

	pid         int
	interactive bool
	lastExit    int
	lastBGPID   int

	table    *job.Table
	reaper   *job.Reaper
	steward  *term.Steward
	executor *job.Executor
	expander *expand.Expander

	exiting  bool
	exitCode int

	sigc chan os.Signal

	stdout io.Writer
	stderr io.Writer
}

// New builds and initializes the shell context: environment import,
// terminal handshake for interactive invocations, signal setup, job
// table and reaper.
func New(cfg *config.Config) (*Shell, error) {
	s := &Shell{
		cfg:     cfg,
		vars:    make(map[string]Var),
		aliases: make(map[string]string),
		pid:     os.Getpid(),
		table:   job.NewTable(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	s.importEnviron()

	if cfg.Command == "" && cfg.Script == "" {
		if steward, err := term.New(os.Stdin); err == nil {
			s.steward = steward
			s.interactive = true
			if err := steward.Handshake(); err != nil {
				return nil, fmt.Errorf("terminal handshake: %w", err)
			}
		}
	}

	s.setupSignals()
	s.reaper = job.StartReaper(s.table)

	selfExe, err := os.Executable()
	if err != nil {
		selfExe = os.Args[0]
	}
	s.executor = &job.Executor{
		Table:       s.table,
		Term:        s.steward,
		Interactive: s.interactive,
		Builtins:    builtinAdapter{s},
		Environ:     s.Environ,
		PathVar:     s.pathVar,
		SelfExe:     selfExe,
	}
	s.expander = expand.New(s, s)
	return s, nil
}

// Close tears the shell down: the reaper stops and, interactively, the
// terminal gets the shell's last saved attributes back.
func (s *Shell) Close() {
	if s.reaper != nil {
		s.reaper.Stop()
	}
	if s.sigc != nil {
		signal.Stop(s.sigc)
	}
	if s.steward != nil {
		s.steward.Reclaim()
		s.steward.RestoreShellModes()
	}
}

// setupSignals configures the shell's own dispositions. SIGINT,
// SIGQUIT, SIGTSTP and SIGTERM are caught and discarded (SIGINT gives
// one newline of feedback); caught handlers reset to default across
// exec, so children start with default dispositions. SIGTTOU and
// SIGTTIN must be fully ignored so terminal reclaim from the
// background cannot stop the shell.
func (s *Shell) setupSignals() {
	if !s.interactive {
		return
	}
	signal.Ignore(unix.SIGTTOU, unix.SIGTTIN)
	s.sigc = make(chan os.Signal, 16)
	signal.Notify(s.sigc, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTERM)
	go func() {
		for sig := range s.sigc {
			if sig == unix.SIGINT {
				os.Stderr.WriteString("\n")
			}
		}
	}()
}

func (s *Shell) pathVar() string {
	path, _ := s.Var("PATH")
	return path
}

// Var implements the expansion engine's variable lookup.
func (s *Shell) Var(name string) (string, bool) {
	v, ok := s.vars[name]
	return v.Value, ok
}

// ShellPID is $$.
func (s *Shell) ShellPID() int { return s.pid }

// LastExit is $?.
func (s *Shell) LastExit() int { return s.lastExit }

// LastBackgroundPID is $!.
func (s *Shell) LastBackgroundPID() int { return s.lastBGPID }

// Interactive reports whether the shell runs with job control on a
// terminal.
func (s *Shell) Interactive() bool { return s.interactive }

// JobTable exposes the job table to the builtins.
func (s *Shell) JobTable() *job.Table { return s.table }

// Foreground resumes j in the foreground, fg semantics.
func (s *Shell) Foreground(j *job.Job) int {
	code := s.executor.Foreground(j)
	s.lastExit = code
	return code
}

// ContinueBackground resumes a stopped job in the background, bg
// semantics.
func (s *Shell) ContinueBackground(j *job.Job) error {
	return s.executor.ContinueBackground(j)
}

// SignalJob delivers a signal to a job, by process group when named as
// a jobspec in an interactive shell.
func (s *Shell) SignalJob(j *job.Job, sig unix.Signal, byJobspec bool) error {
	return s.executor.SignalJob(j, sig, byJobspec)
}

// SetVar sets a shell variable. Exported variables join the child
// environment.
func (s *Shell) SetVar(name, value string, export bool) {
	v := s.vars[name]
	v.Value = value
	v.Exported = v.Exported || export
	s.vars[name] = v
}

// GetVar looks up a shell variable.
func (s *Shell) GetVar(name string) (string, bool) { return s.Var(name) }

// SetAlias records an alias.
func (s *Shell) SetAlias(name, value string) { s.aliases[name] = value }

// RemoveAlias deletes an alias.
func (s *Shell) RemoveAlias(name string) { delete(s.aliases, name) }

// Aliases exposes the alias map to the builtins.
func (s *Shell) Aliases() map[string]string { return s.aliases }

// RequestExit makes the REPL stop after the current line.
func (s *Shell) RequestExit(code int) {
	s.exiting = true
	s.exitCode = code
}

// builtinAdapter satisfies the executor's Builtins interface.
type builtinAdapter struct{ s *Shell }

func (a builtinAdapter) IsBuiltin(name string) bool { return builtin.IsBuiltin(name) }

func (a builtinAdapter) RunBuiltin(name string, args []string, stdio job.Stdio) int {
	ctx := &builtin.Context{Shell: a.s, Stdio: stdio}
	return builtin.Run(ctx, name, args)
}

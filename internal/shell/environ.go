package shell

import (
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"
)

// defaultPath is used when the environment carries no PATH.
const defaultPath = "/usr/local/bin:/usr/local/sbin:/usr/bin:/usr/sbin:/bin:/sbin"

// importEnviron seeds the variable map from the process environment
// and enforces the environment contract: PATH default, PWD, SHELL,
// USER/LOGNAME fallbacks and the SHLVL increment.
func (s *Shell) importEnviron() {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		s.vars[name] = Var{Value: value, Exported: true}
	}

	if _, ok := s.Var("PATH"); !ok {
		s.SetVar("PATH", defaultPath, true)
	}
	if pwd, err := os.Getwd(); err == nil {
		s.SetVar("PWD", pwd, true)
	}
	if exe, err := os.Executable(); err == nil {
		s.SetVar("SHELL", exe, true)
	}

	u, uerr := user.Current()
	if _, ok := s.Var("USER"); !ok && uerr == nil {
		s.SetVar("USER", u.Username, true)
	}
	if _, ok := s.Var("LOGNAME"); !ok && uerr == nil {
		s.SetVar("LOGNAME", u.Username, true)
	}
	if _, ok := s.Var("HOME"); !ok && uerr == nil {
		s.SetVar("HOME", u.HomeDir, true)
	}

	shlvl := 1
	if !s.cfg.Login {
		if prev, ok := s.Var("SHLVL"); ok {
			if n, err := strconv.Atoi(prev); err == nil {
				shlvl = n + 1
			}
		}
	}
	s.SetVar("SHLVL", strconv.Itoa(shlvl), true)
}

// Environ synthesizes the NAME=VALUE child environment from the
// exported view of the variable map.
func (s *Shell) Environ() []string {
	env := make([]string, 0, len(s.vars))
	for name, v := range s.vars {
		if v.Exported {
			env = append(env, name+"="+v.Value)
		}
	}
	sort.Strings(env)
	return env
}

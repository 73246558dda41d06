package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xduraid/xd-shell/internal/expand"
	"github.com/xduraid/xd-shell/internal/job"
	"github.com/xduraid/xd-shell/internal/parse"
)

// RunLine parses one input line and executes its pipelines in order.
func (s *Shell) RunLine(src string) {
	if strings.TrimSpace(src) == "" {
		return
	}

	pipelines, err := parse.Line(src)
	if err != nil {
		s.report(&Error{Kind: KindUsage, Err: err})
		s.lastExit = 2
		return
	}

	for _, p := range pipelines {
		if s.exiting {
			return
		}
		j, err := s.buildJob(p)
		if err != nil {
			s.report(err)
			s.lastExit = 1
			continue
		}
		if j == nil {
			continue
		}
		s.lastExit = s.executor.Execute(j)
		if j.Background {
			s.lastBGPID = j.LastPID()
		}
	}
}

// buildJob expands a raw pipeline into an executable job. A pipeline
// consisting of a single bare assignment updates the variable map and
// yields no job.
func (s *Shell) buildJob(p *parse.Pipeline) (*job.Job, error) {
	j := &job.Job{Background: p.Background}

	for _, pc := range p.Commands {
		words := s.applyAliases(pc.Words)

		c := &job.Command{Display: pc.Display}

		for _, a := range pc.Assigns {
			value, err := s.expander.ExpandOne(a.Value)
			if err != nil {
				return nil, expansionError(a.Value, err)
			}
			if len(words) == 0 && len(p.Commands) == 1 {
				prev := s.vars[a.Name]
				s.SetVar(a.Name, value, prev.Exported)
				continue
			}
			c.ExtraEnv = append(c.ExtraEnv, a.Name+"="+value)
		}
		if len(words) == 0 {
			if len(p.Commands) == 1 && len(pc.Redirs) == 0 {
				return nil, nil
			}
			return nil, &Error{Kind: KindExpansion, Err: errors.New("null command in pipeline")}
		}

		for _, word := range words {
			args, err := s.expander.Expand(word)
			if err != nil {
				return nil, expansionError(word, err)
			}
			for _, arg := range args {
				c.AppendArg(arg)
			}
		}
		if len(c.Argv) == 0 {
			return nil, &Error{Kind: KindExpansion, Operand: strings.Join(words, " "),
				Err: errors.New("command name expanded to nothing")}
		}

		for _, r := range pc.Redirs {
			target, err := s.expander.ExpandOne(r.Target)
			if err != nil {
				return nil, expansionError(r.Target, err)
			}
			switch {
			case r.In:
				c.Stdin = target
			case r.Stderr:
				c.Stderr = &job.Redirect{Path: target, Append: r.Append}
			default:
				c.Stdout = &job.Redirect{Path: target, Append: r.Append}
			}
		}

		j.Append(c)
	}
	return j, nil
}

// applyAliases substitutes the first word through the alias map,
// guarding against cycles.
func (s *Shell) applyAliases(words []string) []string {
	seen := make(map[string]bool)
	for len(words) > 0 {
		value, ok := s.aliases[words[0]]
		if !ok || seen[words[0]] {
			break
		}
		seen[words[0]] = true
		words = append(strings.Fields(value), words[1:]...)
	}
	return words
}

// Subshell implements command substitution: the inner source re-enters
// the parser and runs against a non-interactive view of this shell,
// with standard output captured through a pipe. The program's exit
// status becomes the shell's last exit code.
func (s *Shell) Subshell(src string, w io.Writer) error {
	pipelines, err := parse.Line(src)
	if err != nil {
		return err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return &Error{Kind: KindIO, Err: fmt.Errorf("pipe: %w", err)}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		io.Copy(w, pr)
		pr.Close()
	}()

	sub := *s.executor
	sub.Interactive = false
	sub.Term = nil
	sub.Stdout = pw

	code := 0
	for _, p := range pipelines {
		j, err := s.buildJob(p)
		if err != nil {
			s.report(err)
			code = 1
			continue
		}
		if j == nil {
			continue
		}
		code = sub.Execute(j)
	}

	pw.Close()
	<-done
	s.lastExit = code
	return nil
}

func expansionError(operand string, err error) error {
	kind := KindExpansion
	if errors.Is(err, expand.ErrCommandSubstitution) {
		kind = KindIO
	}
	return &Error{Kind: kind, Operand: operand, Err: err}
}

// report prints one prefixed diagnostic.
func (s *Shell) report(err error) {
	fmt.Fprintf(s.stderr, "xd-shell: %v\n", err)
}

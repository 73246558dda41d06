// Package parse lowers shell source into the raw pipeline form the
// execution core consumes. The heavy lifting is done by the external
// mvdan.cc/sh parser; this package only walks its AST, keeps every
// word's original source text (quoting intact, so the expansion engine
// stays the sole interpreter of it), and rejects the language surface
// the core does not execute.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrUnsupported marks language constructs outside the execution core.
var ErrUnsupported = errors.New("not supported")

// Assign is one NAME=VALUE prefix assignment with its raw value token.
type Assign struct {
	Name  string
	Value string
}

// Redir is one raw redirection.
type Redir struct {
	Stderr bool // target stream is fd 2
	In     bool // input redirection
	Append bool
	Target string // raw token
}

// Command is one pipeline stage before expansion.
type Command struct {
	Assigns []Assign
	Words   []string // raw tokens
	Redirs  []Redir
	Display string
}

// Pipeline is one job in raw form.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

// Line parses one input line into its pipelines, in execution order.
func Line(src string) ([]*Pipeline, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(src), "")
	if err != nil {
		return nil, err
	}

	var pipelines []*Pipeline
	for _, stmt := range file.Stmts {
		p, err := lowerStmt(src, stmt)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func lowerStmt(src string, stmt *syntax.Stmt) (*Pipeline, error) {
	if stmt.Negated {
		return nil, fmt.Errorf("'!': %w", ErrUnsupported)
	}

	p := &Pipeline{Background: stmt.Background}
	if err := lowerPipe(src, stmt, p); err != nil {
		return nil, err
	}
	return p, nil
}

// lowerPipe flattens nested pipe nodes left to right.
func lowerPipe(src string, stmt *syntax.Stmt, p *Pipeline) error {
	switch cmd := stmt.Cmd.(type) {
	case *syntax.BinaryCmd:
		if cmd.Op != syntax.Pipe {
			return fmt.Errorf("%q: %w", cmd.Op.String(), ErrUnsupported)
		}
		if len(stmt.Redirs) > 0 {
			return fmt.Errorf("redirection on a pipeline: %w", ErrUnsupported)
		}
		if err := lowerPipe(src, cmd.X, p); err != nil {
			return err
		}
		return lowerPipe(src, cmd.Y, p)

	case *syntax.CallExpr:
		c, err := lowerCall(src, stmt, cmd)
		if err != nil {
			return err
		}
		p.Commands = append(p.Commands, c)
		return nil

	case nil:
		return fmt.Errorf("empty command: %w", ErrUnsupported)

	default:
		return fmt.Errorf("%T: %w", stmt.Cmd, ErrUnsupported)
	}
}

func lowerCall(src string, stmt *syntax.Stmt, call *syntax.CallExpr) (*Command, error) {
	c := &Command{Display: displayText(src, stmt)}

	for _, a := range call.Assigns {
		if a.Name == nil || a.Append || a.Array != nil || a.Index != nil {
			return nil, fmt.Errorf("assignment form: %w", ErrUnsupported)
		}
		value := ""
		if a.Value != nil {
			value = rawText(src, a.Value.Pos(), a.Value.End())
		}
		c.Assigns = append(c.Assigns, Assign{Name: a.Name.Value, Value: value})
	}

	for _, w := range call.Args {
		c.Words = append(c.Words, rawText(src, w.Pos(), w.End()))
	}

	for _, r := range stmt.Redirs {
		redir, err := lowerRedir(src, r)
		if err != nil {
			return nil, err
		}
		c.Redirs = append(c.Redirs, redir)
	}
	return c, nil
}

func lowerRedir(src string, r *syntax.Redirect) (Redir, error) {
	fd := ""
	if r.N != nil {
		fd = r.N.Value
	}

	var redir Redir
	switch r.Op {
	case syntax.RdrIn:
		redir.In = true
	case syntax.AppOut:
		redir.Append = true
	case syntax.RdrOut:
	default:
		return Redir{}, fmt.Errorf("%q: %w", r.Op.String(), ErrUnsupported)
	}

	switch fd {
	case "":
	case "2":
		if redir.In {
			return Redir{}, fmt.Errorf("2<: %w", ErrUnsupported)
		}
		redir.Stderr = true
	case "0":
		if !redir.In {
			return Redir{}, fmt.Errorf("0>: %w", ErrUnsupported)
		}
	case "1":
		if redir.In {
			return Redir{}, fmt.Errorf("1<: %w", ErrUnsupported)
		}
	default:
		return Redir{}, fmt.Errorf("fd %s: %w", fd, ErrUnsupported)
	}

	redir.Target = rawText(src, r.Word.Pos(), r.Word.End())
	return redir, nil
}

// displayText is the statement's source text with any trailing
// terminator stripped; the job model re-renders '&' itself.
func displayText(src string, stmt *syntax.Stmt) string {
	s := strings.TrimSpace(rawText(src, stmt.Pos(), stmt.End()))
	for strings.HasSuffix(s, "&") || strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	return s
}

func rawText(src string, from, to syntax.Pos) string {
	start, end := int(from.Offset()), int(to.Offset())
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return src[start:end]
}

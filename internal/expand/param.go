package expand

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func validName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

// parameters runs the parameter-expansion and command-substitution
// stages in one left-to-right scan. Expanded values are spliced into
// the output marked synthetic and are never rescanned, so expansion
// output cannot open new substitutions.
func (e *Expander) parameters(w Word) (Word, error) {
	var out Word
	var q quoteState

	for i := 0; i < w.len(); {
		c := w.chars[i]
		cls := q.step(c, w.orig[i])
		if cls != classLiteral || q.single || c != '$' || !w.orig[i] {
			out.appendFrom(w, i)
			i++
			continue
		}

		// original '$' in expandable context
		if i+1 >= w.len() {
			out.appendFrom(w, i)
			i++
			continue
		}

		next := w.chars[i+1]
		nextOrig := w.orig[i+1]
		switch {
		case next == '{' && nextOrig:
			close := findCloseBrace(w, i+2)
			if close < 0 {
				return Word{}, fmt.Errorf("unterminated ${: %w", ErrBadSubstitution)
			}
			val, err := e.paramValue(string(w.chars[i+2 : close]))
			if err != nil {
				return Word{}, err
			}
			out.appendSynthetic(val)
			i = close + 1

		case next == '(' && nextOrig:
			close := findCloseParen(w, i+2)
			if close < 0 {
				return Word{}, fmt.Errorf("unterminated $(: %w", ErrBadSubstitution)
			}
			captured, err := e.commandSubst(string(w.chars[i+2 : close]))
			if err != nil {
				return Word{}, err
			}
			out.appendSynthetic(captured)
			i = close + 1

		case (next == '$' || next == '?' || next == '!') && nextOrig:
			val, err := e.paramValue(string(next))
			if err != nil {
				return Word{}, err
			}
			out.appendSynthetic(val)
			i += 2

		case isNameStart(next) && nextOrig:
			j := i + 1
			for j < w.len() && w.orig[j] && isNameChar(w.chars[j]) {
				j++
			}
			val, _ := e.env.Var(string(w.chars[i+1 : j]))
			out.appendSynthetic(val)
			i = j

		default:
			// lone '$' stays literal
			out.appendFrom(w, i)
			i++
		}
	}
	return out, nil
}

// paramValue resolves the content of a ${...} block or a one-character
// special parameter.
func (e *Expander) paramValue(name string) (string, error) {
	switch name {
	case "$":
		return strconv.Itoa(e.env.ShellPID()), nil
	case "?":
		return strconv.Itoa(e.env.LastExit()), nil
	case "!":
		if pid := e.env.LastBackgroundPID(); pid > 0 {
			return strconv.Itoa(pid), nil
		}
		return "", nil
	}
	if !validName(name) {
		return "", fmt.Errorf("${%s}: %w", name, ErrBadSubstitution)
	}
	val, _ := e.env.Var(name)
	return val, nil
}

// commandSubst runs the body of a $(...) block through the subshell
// runner, captures its standard output and strips trailing newlines.
// The runner records the program's exit status as the shell's last
// exit code.
func (e *Expander) commandSubst(src string) (string, error) {
	if e.runner == nil {
		return "", fmt.Errorf("no subshell runner: %w", ErrCommandSubstitution)
	}
	var buf bytes.Buffer
	if err := e.runner.Subshell(src, &buf); err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrCommandSubstitution)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// findCloseBrace returns the index of the first original '}' at or
// after start, or -1.
func findCloseBrace(w Word, start int) int {
	for i := start; i < w.len(); i++ {
		if w.chars[i] == '}' && w.orig[i] {
			return i
		}
	}
	return -1
}

// findCloseParen returns the index of the original ')' matching an
// already-consumed '(', tracking nesting and quoting inside the
// substitution body.
func findCloseParen(w Word, start int) int {
	depth := 1
	var q quoteState
	for i := start; i < w.len(); i++ {
		c := w.chars[i]
		cls := q.step(c, w.orig[i])
		if cls != classLiteral || q.quoted() || !w.orig[i] {
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

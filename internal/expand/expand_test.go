package expand

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv is a fixed variable view for expansion tests.
type fakeEnv struct {
	vars     map[string]string
	pid      int
	lastExit int
	bgPID    int
}

func (f *fakeEnv) Var(name string) (string, bool) {
	v, ok := f.vars[name]
	return v, ok
}

func (f *fakeEnv) ShellPID() int          { return f.pid }
func (f *fakeEnv) LastExit() int          { return f.lastExit }
func (f *fakeEnv) LastBackgroundPID() int { return f.bgPID }

// fakeRunner substitutes canned output for $(...) bodies.
type fakeRunner struct {
	outputs map[string]string
	err     error
}

func (f *fakeRunner) Subshell(src string, stdout io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(stdout, f.outputs[src])
	return err
}

func newTestExpander(vars map[string]string) *Expander {
	return New(&fakeEnv{vars: vars, pid: 4242, lastExit: 3, bgPID: 777}, &fakeRunner{})
}

func TestExpandLiterals(t *testing.T) {
	t.Parallel()

	// tokens with no original metacharacters come back unchanged
	for _, token := range []string{"hello", "a,b", "-flag", "a=b", "100%", "über"} {
		token := token
		t.Run(token, func(t *testing.T) {
			t.Parallel()
			got, err := newTestExpander(nil).Expand(token)
			require.NoError(t, err)
			assert.Equal(t, []string{token}, got)
		})
	}
}

func TestExpandQuotes(t *testing.T) {
	t.Parallel()

	e := newTestExpander(map[string]string{
		"VAR":   "a b",
		"STAR":  "*",
		"EMPTY": "",
	})

	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"single-quote-opacity", `'a $VAR *'`, []string{"a $VAR *"}},
		{"single-quoted-empty", `''`, []string{""}},
		{"double-quoted-empty", `""`, []string{""}},
		{"unquoted-var-splits", `$VAR`, []string{"a", "b"}},
		{"double-quoted-var-does-not-split", `"$VAR"`, []string{"a b"}},
		{"adjacent-quoted-and-var", `x"$VAR"y`, []string{"xa by"}},
		{"escaped-dollar", `\$VAR`, []string{"$VAR"}},
		{"escaped-dollar-in-double", `"\$VAR"`, []string{"$VAR"}},
		{"backslash-literal-in-double", `"a\b"`, []string{`a\b`}},
		{"escaped-space-joins", `a\ b`, []string{"a b"}},
		{"synthetic-star-is-data-when-quoted", `"$STAR"`, []string{"*"}},
		{"empty-var-vanishes", `$EMPTY`, nil},
		{"empty-var-quoted-stays", `"$EMPTY"`, []string{""}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := e.Expand(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandParameters(t *testing.T) {
	t.Parallel()

	e := newTestExpander(map[string]string{"FOO": "foo", "FOO2": "two"})

	t.Run("braced", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand("${FOO}bar")
		require.NoError(t, err)
		assert.Equal(t, []string{"foobar"}, got)
	})

	t.Run("unbraced-scans-identifier", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand("$FOO2")
		require.NoError(t, err)
		assert.Equal(t, []string{"two"}, got)
	})

	t.Run("undefined-is-empty", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand("a${NOPE}b")
		require.NoError(t, err)
		assert.Equal(t, []string{"ab"}, got)
	})

	t.Run("specials", func(t *testing.T) {
		t.Parallel()
		for token, want := range map[string]string{
			"$$": "4242",
			"$?": "3",
			"$!": "777",
		} {
			got, err := e.Expand(token)
			require.NoError(t, err)
			assert.Equal(t, []string{want}, got)
		}
	})

	t.Run("no-background-pid-is-empty", func(t *testing.T) {
		t.Parallel()
		quiet := New(&fakeEnv{}, nil)
		got, err := quiet.Expand("x$!")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, got)
	})

	t.Run("bad-substitution", func(t *testing.T) {
		t.Parallel()
		for _, token := range []string{"${1abc}", "${a b}", "${}", "${a-b}"} {
			_, err := e.Expand(token)
			require.ErrorIs(t, err, ErrBadSubstitution, "token %q", token)
		}
	})

	t.Run("lone-dollar-is-literal", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand("a$ b$")
		require.NoError(t, err)
		assert.Equal(t, []string{"a$", "b$"}, got)
	})

	t.Run("single-quotes-suppress", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand("'$FOO'")
		require.NoError(t, err)
		assert.Equal(t, []string{"$FOO"}, got)
	})
}

func TestExpandNoReexpansion(t *testing.T) {
	t.Parallel()

	// a value containing $ or quote characters is spliced as data,
	// never rescanned
	e := newTestExpander(map[string]string{
		"INDIRECT": "$FOO",
		"FOO":      "should not appear",
		"QUOTED":   `'x'`,
	})

	got, err := e.Expand("$INDIRECT")
	require.NoError(t, err)
	assert.Equal(t, []string{"$FOO"}, got)

	got, err = e.Expand("$QUOTED")
	require.NoError(t, err)
	assert.Equal(t, []string{"'x'"}, got)
}

func TestExpandTilde(t *testing.T) {
	t.Parallel()

	e := newTestExpander(map[string]string{
		"HOME":   "/home/u",
		"PWD":    "/cur",
		"OLDPWD": "/old",
	})

	tests := []struct {
		token string
		want  string
	}{
		{"~", "/home/u"},
		{"~/x", "/home/u/x"},
		{"~+", "/cur"},
		{"~+/y", "/cur/y"},
		{"~-", "/old"},
		{"~nosuchuserhopefully42", "~nosuchuserhopefully42"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			got, err := e.Expand(tt.token)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, got)
		})
	}

	t.Run("quoted-tilde-stays", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(`'~'`)
		require.NoError(t, err)
		assert.Equal(t, []string{"~"}, got)
	})
}

func TestCommandSubstitution(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{
		`printf "one\ntwo\n"`: "one\ntwo\n",
		"echo hi":             "hi\n",
	}}
	e := New(&fakeEnv{vars: map[string]string{}}, runner)

	t.Run("trailing-newlines-stripped-inner-split", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(`$(printf "one\ntwo\n")`)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, got)
	})

	t.Run("quoted-substitution-does-not-split", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(`"$(printf "one\ntwo\n")"`)
		require.NoError(t, err)
		assert.Equal(t, []string{"one\ntwo"}, got)
	})

	t.Run("concatenated", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(`x$(echo hi)y`)
		require.NoError(t, err)
		assert.Equal(t, []string{"xhiy"}, got)
	})

	t.Run("runner-failure", func(t *testing.T) {
		t.Parallel()
		broken := New(&fakeEnv{}, &fakeRunner{err: fmt.Errorf("fork failed")})
		_, err := broken.Expand("$(anything)")
		require.ErrorIs(t, err, ErrCommandSubstitution)
	})

	t.Run("unterminated", func(t *testing.T) {
		t.Parallel()
		_, err := e.Expand("$(echo hi")
		require.ErrorIs(t, err, ErrBadSubstitution)
	})
}

func TestExpandGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.txt", "A.txt", "c.log", ".hidden.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	e := newTestExpander(map[string]string{"D": dir})

	t.Run("star-sorted-case-insensitively", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(dir + "/*.txt")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "A.txt"),
			filepath.Join(dir, "b.txt"),
		}, got)
	})

	t.Run("question-mark", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(dir + "/?.log")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "c.log")}, got)
	})

	t.Run("dotfiles-need-explicit-dot", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(dir + "/.*.txt")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, ".hidden.txt")}, got)
	})

	t.Run("no-match-keeps-fragment", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(dir + "/*.nope")
		require.NoError(t, err)
		assert.Equal(t, []string{dir + "/*.nope"}, got)
	})

	t.Run("quoted-star-is-literal", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(`"` + dir + `/*.txt"`)
		require.NoError(t, err)
		assert.Equal(t, []string{dir + "/*.txt"}, got)
	})

	t.Run("braces", func(t *testing.T) {
		t.Parallel()
		got, err := e.Expand(dir + "/{b,c}.*")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "b.txt"),
			filepath.Join(dir, "c.log"),
		}, got)
	})
}

func TestMaskInvariant(t *testing.T) {
	t.Parallel()

	e := newTestExpander(map[string]string{"V": "a b", "HOME": "/h"})

	for _, token := range []string{"~/x", "$V", `"$V"`, "a${V}b", "plain"} {
		w := e.tilde(newWord(token))
		require.True(t, w.valid(), "after tilde on %q", token)
		w, err := e.parameters(w)
		require.NoError(t, err)
		require.True(t, w.valid(), "after parameters on %q", token)
		for _, frag := range split(w) {
			require.True(t, frag.valid(), "after split on %q", token)
		}
	}
}

func TestExpandOne(t *testing.T) {
	t.Parallel()

	e := newTestExpander(map[string]string{"V": "a b"})

	// no splitting, no globbing
	got, err := e.ExpandOne("$V.*")
	require.NoError(t, err)
	assert.Equal(t, "a b.*", got)
}

package expand

import (
	"bytes"
	"os/user"
)

// tilde performs tilde expansion when the token begins with an
// original tilde. The prefix runs up to the first slash: empty means
// $HOME (falling back to the password database), "+" means $PWD, "-"
// means $OLDPWD, anything else is a user name looked up in the
// password database. When nothing resolves the token is returned
// unchanged.
func (e *Expander) tilde(w Word) Word {
	if w.len() == 0 || w.chars[0] != '~' || !w.orig[0] {
		return w
	}

	end := bytes.IndexByte(w.chars, '/')
	if end < 0 {
		end = w.len()
	}
	prefix := string(w.chars[1:end])

	var home string
	switch prefix {
	case "":
		home, _ = e.env.Var("HOME")
		if home == "" {
			u, err := user.Current()
			if err != nil {
				return w
			}
			home = u.HomeDir
		}
	case "+":
		home, _ = e.env.Var("PWD")
	case "-":
		home, _ = e.env.Var("OLDPWD")
	default:
		u, err := user.Lookup(prefix)
		if err != nil {
			return w
		}
		home = u.HomeDir
	}
	if home == "" {
		return w
	}

	var out Word
	out.appendSynthetic(home)
	for i := end; i < w.len(); i++ {
		out.appendFrom(w, i)
	}
	return out
}

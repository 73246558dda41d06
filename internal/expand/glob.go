package expand

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/pattern"
)

// glob is the filename-expansion stage. A fragment containing an
// active pattern character is brace-expanded and matched against the
// filesystem; matches are sorted case-insensitively and replace the
// fragment with all-synthetic words. A fragment with no matches is
// retained verbatim, quoting intact, for the quote-removal stage.
func (e *Expander) glob(frag Word) ([]Word, error) {
	ann := annotate(frag)
	if !hasGlobMeta(ann) {
		return []Word{frag}, nil
	}

	var matches []string
	for _, alt := range braceAlternatives(ann) {
		ms, err := globPattern(alt)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %v: %w", frag.String(), err, ErrInternal)
		}
		matches = append(matches, ms...)
	}
	if len(matches) == 0 {
		return []Word{frag}, nil
	}

	slices.SortStableFunc(matches, func(a, b string) int {
		la, lb := strings.ToLower(a), strings.ToLower(b)
		if la != lb {
			return strings.Compare(la, lb)
		}
		return strings.Compare(a, b)
	})

	words := make([]Word, 0, len(matches))
	for _, m := range matches {
		var w Word
		w.appendSynthetic(m)
		words = append(words, w)
	}
	return words, nil
}

func hasGlobMeta(ann []annotated) bool {
	for _, a := range ann {
		if !a.active {
			continue
		}
		switch a.c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// braceAlternatives expands active {a,b} groups into the list of
// alternative patterns, csh style. Nested groups recurse; a fragment
// with no active brace group yields itself.
func braceAlternatives(ann []annotated) [][]annotated {
	open := -1
	depth := 0
	for i, a := range ann {
		if !a.active {
			continue
		}
		switch a.c {
		case '{':
			if depth == 0 {
				open = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth > 0 {
				continue
			}
			alts := splitAlternatives(ann[open+1 : i])
			if len(alts) < 2 {
				// '{x}' is not a group
				continue
			}
			var out [][]annotated
			for _, alt := range alts {
				body := make([]annotated, 0, len(ann))
				body = append(body, ann[:open]...)
				body = append(body, alt...)
				body = append(body, ann[i+1:]...)
				out = append(out, braceAlternatives(body)...)
			}
			return out
		}
	}
	return [][]annotated{ann}
}

func splitAlternatives(body []annotated) [][]annotated {
	var alts [][]annotated
	depth := 0
	start := 0
	for i, a := range body {
		if !a.active {
			continue
		}
		switch a.c {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				alts = append(alts, body[start:i])
				start = i + 1
			}
		}
	}
	alts = append(alts, body[start:])
	return alts
}

type segment struct {
	pat  string // shell pattern with inactive characters quoted
	lit  string // raw text, for metacharacter-free segments
	meta bool
	dot  bool // first pattern character is a literal dot
}

// globPattern walks the filesystem along the slash-separated segments
// of one brace alternative.
func globPattern(ann []annotated) ([]string, error) {
	rooted := len(ann) > 0 && ann[0].c == '/'
	segs := splitSegments(ann)

	cur := []string{""}
	if rooted {
		cur = []string{"/"}
	}
	for _, seg := range segs {
		var next []string
		for _, base := range cur {
			if !seg.meta {
				cand := joinPath(base, seg.lit)
				if _, err := os.Lstat(cand); err == nil {
					next = append(next, cand)
				}
				continue
			}

			rxs, err := pattern.Regexp(seg.pat, pattern.Filenames|pattern.EntireString)
			if err != nil {
				return nil, err
			}
			rx, err := regexp.Compile(rxs)
			if err != nil {
				return nil, err
			}

			dir := base
			if dir == "" {
				dir = "."
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, ent := range entries {
				name := ent.Name()
				if strings.HasPrefix(name, ".") && !seg.dot {
					continue
				}
				if rx.MatchString(name) {
					next = append(next, joinPath(base, name))
				}
			}
		}
		cur = next
		if len(cur) == 0 {
			break
		}
	}
	return cur, nil
}

func splitSegments(ann []annotated) []segment {
	var segs []segment
	var pat, lit strings.Builder
	meta := false
	dot := false
	first := true

	flush := func() {
		if pat.Len() == 0 && lit.Len() == 0 {
			pat.Reset()
			lit.Reset()
			meta, first = false, true
			return
		}
		segs = append(segs, segment{pat: pat.String(), lit: lit.String(), meta: meta, dot: dot})
		pat.Reset()
		lit.Reset()
		meta, dot, first = false, false, true
	}

	for _, a := range ann {
		if a.c == '/' {
			flush()
			continue
		}
		if first {
			dot = a.c == '.'
			first = false
		}
		lit.WriteByte(a.c)
		if a.active && (a.c == '*' || a.c == '?' || a.c == '[' || a.c == ']') {
			meta = true
			pat.WriteByte(a.c)
		} else {
			pat.WriteString(pattern.QuoteMeta(string(a.c), 0))
		}
	}
	flush()
	return segs
}

func joinPath(base, name string) string {
	switch base {
	case "":
		return name
	case "/":
		return "/" + name
	}
	return base + "/" + name
}

package expand

// isFieldSep reports membership in the field-separator set.
func isFieldSep(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// split is the word-splitting stage: the working string is broken on
// runs of unquoted field separators. Quoting context is driven only by
// original quote characters, so a separator produced by an expansion
// inside double quotes stays part of its field while one produced by
// an unquoted expansion splits. A fragment is kept even when empty as
// long as it contained quoting, so an empty quoted token survives as
// an empty argument.
func split(w Word) []Word {
	var frags []Word
	var cur Word
	started := false
	var q quoteState

	for i := 0; i < w.len(); i++ {
		c := w.chars[i]
		cls := q.step(c, w.orig[i])
		if cls == classLiteral && !q.quoted() && isFieldSep(c) {
			if started {
				frags = append(frags, cur)
				cur = Word{}
				started = false
			}
			continue
		}
		cur.appendFrom(w, i)
		started = true
	}
	if started {
		frags = append(frags, cur)
	}
	return frags
}

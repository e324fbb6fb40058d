package search

import "strings"

// Highlight wraps the runes of text covered by span with before and after. A span outside the text
// returns text unchanged.
func Highlight(text string, span Span, before, after string) string {
	runes := []rune(text)
	if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(before) + len(after))
	b.WriteString(string(runes[:span.Start]))
	b.WriteString(before)
	b.WriteString(string(runes[span.Start:span.End]))
	b.WriteString(after)
	b.WriteString(string(runes[span.End:]))
	return b.String()
}

// Highlighted returns the matched term with its match span wrapped.
func (m Match) Highlighted(before, after string) string {
	return Highlight(m.Term, m.Span, before, after)
}

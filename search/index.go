// Package search implements alias-aware medication search over a catalog.
//
// An Index is built once from a catalog and never changes afterwards, so a single Index may serve
// any number of concurrent queries. Matching is case-insensitive (Unicode case folding) and ranks
// prefix matches ahead of interior matches; ties are ordered by English collation of the
// display name.
package search

import (
	"bytes"
	"cmp"
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/giygas/medcalc-api/catalog"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// MinQueryLength is the shortest trimmed query, in runes, that produces matches.
	MinQueryLength = 2
	// MaxResults caps how many matches a query returns.
	MaxResults = 10
)

// MatchType tells whether a medication matched on its display name or on a brand alias.
type MatchType string

const (
	MatchGeneric MatchType = "generic"
	MatchBrand   MatchType = "brand"
)

// Span is a half-open rune range [Start, End) within a matched term.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one ranked search hit.
type Match struct {
	Medication   *catalog.Medication `json:"-"`
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	CategoryID   string              `json:"category"`
	CategoryName string              `json:"category_name"`
	Score        int                 `json:"score"`
	Type         MatchType           `json:"match_type"`
	Term         string              `json:"matched_term"`
	Span         Span                `json:"span"`
	Aliases      []string            `json:"aliases"`
}

// foldedText is a case-folded string plus, for each byte of the folded form, the index of the
// rune of the original string it came from.
type foldedText struct {
	original string
	folded   string
	origin   []int
}

func newFoldedText(caser cases.Caser, s string) foldedText {
	var b strings.Builder
	origin := make([]int, 0, len(s))
	runeIndex := 0
	for _, r := range s {
		f := caser.String(string(r))
		b.WriteString(f)
		for range len(f) {
			origin = append(origin, runeIndex)
		}
		runeIndex++
	}
	return foldedText{original: s, folded: b.String(), origin: origin}
}

// find locates the folded query. The returned span is expressed in runes of the original text.
func (t foldedText) find(query string) (Span, bool) {
	i := strings.Index(t.folded, query)
	if i < 0 {
		return Span{}, false
	}
	end := i + len(query) - 1
	return Span{Start: t.origin[i], End: t.origin[end] + 1}, true
}

type entry struct {
	med          *catalog.Medication
	categoryName string
	name         foldedText
	id           string
	aliases      []foldedText
	sortKey      []byte
}

// Index is an immutable search index over a catalog and its alias table.
type Index struct {
	catalog *catalog.Catalog
	entries []entry
	byID    map[string]*entry
}

// NewIndex builds the index. Aliases of ids missing from the catalog are ignored.
func NewIndex(cat *catalog.Catalog) *Index {
	caser := cases.Fold()
	collator := collate.New(language.English)
	var buf collate.Buffer

	meds := cat.Medications()
	idx := &Index{
		catalog: cat,
		entries: make([]entry, 0, len(meds)),
		byID:    make(map[string]*entry, len(meds)),
	}

	for _, med := range meds {
		e := entry{
			med:          med,
			categoryName: cat.CategoryName(med.CategoryID),
			name:         newFoldedText(caser, med.Name),
			id:           caser.String(med.ID),
			sortKey:      bytes.Clone(collator.KeyFromString(&buf, med.Name)),
		}
		for _, alias := range cat.Aliases(med.ID) {
			e.aliases = append(e.aliases, newFoldedText(caser, alias))
		}
		idx.entries = append(idx.entries, e)
	}
	for i := range idx.entries {
		idx.byID[idx.entries[i].med.ID] = &idx.entries[i]
	}

	return idx
}

// Catalog returns the catalog the index was built from.
func (idx *Index) Catalog() *catalog.Catalog {
	return idx.catalog
}

// normalizeQuery trims and folds a query. The boolean is false when the query is too short.
func normalizeQuery(caser cases.Caser, query string) (string, bool) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return "", false
	}
	return caser.String(q), true
}

type scored struct {
	match Match
	key   []byte
}

// Matches returns the ranked matches for query as a sequence. Each iteration runs the query
// afresh, so the sequence can be ranged over any number of times.
func (idx *Index) Matches(query string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, s := range idx.rank(query) {
			if !yield(s.match) {
				return
			}
		}
	}
}

// Search returns at most MaxResults ranked matches. Queries shorter than MinQueryLength after
// trimming return nil.
func (idx *Index) Search(query string) []Match {
	return slices.Collect(idx.Matches(query))
}

func (idx *Index) rank(query string) []scored {
	caser := cases.Fold()
	q, ok := normalizeQuery(caser, query)
	if !ok {
		return nil
	}

	var hits []scored
	for i := range idx.entries {
		e := &idx.entries[i]
		m, ok := e.match(q)
		if !ok {
			continue
		}
		hits = append(hits, scored{match: m, key: e.sortKey})
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(a.match.Score, b.match.Score); c != 0 {
			return c
		}
		if c := bytes.Compare(a.key, b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.match.Name, b.match.Name)
	})

	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}
	return hits
}

// match checks the display name first and then each alias in order.
func (e *entry) match(q string) (Match, bool) {
	m := Match{
		Medication:   e.med,
		ID:           e.med.ID,
		Name:         e.med.Name,
		CategoryID:   e.med.CategoryID,
		CategoryName: e.categoryName,
		Aliases:      e.aliasNames(),
	}

	if span, ok := e.name.find(q); ok {
		m.Type = MatchGeneric
		m.Term = e.med.Name
		m.Span = span
		m.Score = score(e.name, q)
		return m, true
	}

	for _, alias := range e.aliases {
		if span, ok := alias.find(q); ok {
			m.Type = MatchBrand
			m.Term = alias.original
			m.Span = span
			m.Score = score(alias, q)
			return m, true
		}
	}

	return Match{}, false
}

func (e *entry) aliasNames() []string {
	names := make([]string, len(e.aliases))
	for i, a := range e.aliases {
		names[i] = a.original
	}
	return names
}

// score is 0 for a prefix match and 1 for an interior match.
func score(t foldedText, q string) int {
	if strings.HasPrefix(t.folded, q) {
		return 0
	}
	return 1
}

package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// IndexView is the grouped medication index, optionally filtered by a query.
type IndexView struct {
	Query  string      `json:"query"`
	Total  int         `json:"total"`
	Groups []GroupView `json:"groups"`
}

// GroupView is one group of the index with its visible categories.
type GroupView struct {
	Name       string         `json:"name"`
	Categories []CategoryView `json:"categories"`
}

// CategoryView is a category with its visible medications. Count is the number shown.
type CategoryView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Count       int         `json:"count"`
	Medications []IndexItem `json:"medications"`
}

// IndexItem is a medication row of the index. NameSpan is set when the query matched the
// display name.
type IndexItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases"`
	Reference bool     `json:"has_reference"`
	NameSpan  *Span    `json:"name_span,omitempty"`
}

// FilterIndex returns the grouped index restricted to medications whose display name, id or any
// alias contains the query. An empty query returns the whole index. Categories and groups with
// nothing to show are omitted.
func (idx *Index) FilterIndex(query string) IndexView {
	caser := cases.Fold()
	q := caser.String(strings.TrimSpace(query))

	view := IndexView{Query: strings.TrimSpace(query), Groups: []GroupView{}}

	for _, group := range idx.catalog.Groups() {
		gv := GroupView{Name: group.Name}

		for _, categoryID := range group.Categories {
			category, ok := idx.catalog.Category(categoryID)
			if !ok {
				continue
			}
			cv := CategoryView{ID: category.ID, Name: category.Name, Medications: []IndexItem{}}

			for _, med := range category.Medications {
				e, ok := idx.byID[med.ID]
				if !ok {
					continue
				}
				item, ok := e.filter(q)
				if !ok {
					continue
				}
				cv.Medications = append(cv.Medications, item)
			}

			cv.Count = len(cv.Medications)
			if cv.Count == 0 && q != "" {
				continue
			}
			view.Total += cv.Count
			gv.Categories = append(gv.Categories, cv)
		}

		if len(gv.Categories) == 0 && q != "" {
			continue
		}
		view.Groups = append(view.Groups, gv)
	}

	return view
}

func (e *entry) filter(q string) (IndexItem, bool) {
	item := IndexItem{
		ID:        e.med.ID,
		Name:      e.med.Name,
		Aliases:   e.aliasNames(),
		Reference: e.med.Reference != "",
	}
	if q == "" {
		return item, true
	}

	if span, ok := e.name.find(q); ok {
		item.NameSpan = &span
		return item, true
	}
	if strings.Contains(e.id, q) {
		return item, true
	}
	for _, alias := range e.aliases {
		if strings.Contains(alias.folded, q) {
			return item, true
		}
	}
	return IndexItem{}, false
}

package handlers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/logging"
	"github.com/giygas/medcalc-api/metrics"
	"github.com/giygas/medcalc-api/search"
	"github.com/go-chi/chi/v5"
)

// Markers wrapped around the matched part of a term in search responses
const (
	highlightOpen  = "<mark>"
	highlightClose = "</mark>"
)

// CategorySummary is a category entry of the categories listing
type CategorySummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GroupSummary is an ordered group of category summaries
type GroupSummary struct {
	Name       string            `json:"name"`
	Categories []CategorySummary `json:"categories"`
}

// CategoriesResponse lists the catalog structure
type CategoriesResponse struct {
	Version string         `json:"version"`
	Stats   catalog.Stats  `json:"stats"`
	Groups  []GroupSummary `json:"groups"`
}

// MedicationSummary is a medication row of the medications listing
type MedicationSummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Route           string   `json:"route"`
	RenalAdjustable bool     `json:"renal_adjustable"`
	HasReference    bool     `json:"has_reference"`
	Aliases         []string `json:"aliases"`
}

// MedicationResponse is a full catalog entry with its display context
type MedicationResponse struct {
	*catalog.Medication
	CategoryName string   `json:"category_name"`
	Aliases      []string `json:"aliases"`
}

// SearchResult is a ranked match with its highlighted term
type SearchResult struct {
	search.Match
	Highlighted string `json:"highlighted"`
}

// SearchResponse holds the ranked matches of a query
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// catalogReady answers 503 when no catalog is loaded yet
func (h *HTTPHandlerImpl) catalogReady(w http.ResponseWriter) (*catalog.Catalog, bool) {
	cat := h.dataStore.GetCatalog()
	if cat == nil {
		h.RespondWithError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return nil, false
	}
	w.Header().Set("Last-Modified", h.dataStore.GetLoadedAt().UTC().Format(http.TimeFormat))
	return cat, true
}

func aliasesOf(cat *catalog.Catalog, id string) []string {
	if aliases := cat.Aliases(id); aliases != nil {
		return aliases
	}
	return []string{}
}

// ServeCategories returns groups, categories, counts and catalog statistics
func (h *HTTPHandlerImpl) ServeCategories(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalogReady(w)
	if !ok {
		return
	}

	catGroups := cat.Groups()
	groups := make([]GroupSummary, 0, len(catGroups))
	for _, g := range catGroups {
		summary := GroupSummary{Name: g.Name, Categories: make([]CategorySummary, 0, len(g.Categories))}
		for _, id := range g.Categories {
			c, ok := cat.Category(id)
			if !ok {
				continue
			}
			summary.Categories = append(summary.Categories, CategorySummary{
				ID:    c.ID,
				Name:  c.Name,
				Count: len(c.Medications),
			})
		}
		groups = append(groups, summary)
	}

	h.RespondWithJSON(w, http.StatusOK, CategoriesResponse{
		Version: cat.Version(),
		Stats:   cat.Stats(),
		Groups:  groups,
	})
}

// ServeMedications lists medication summaries, optionally restricted to one category
func (h *HTTPHandlerImpl) ServeMedications(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalogReady(w)
	if !ok {
		return
	}

	meds := cat.Medications()
	if categoryID := r.URL.Query().Get("category"); categoryID != "" {
		if _, err := h.validator.ValidateMedicationID(categoryID); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid category: "+err.Error())
			return
		}
		c, found := cat.Category(categoryID)
		if !found {
			h.RespondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		meds = make([]*catalog.Medication, len(c.Medications))
		for i := range c.Medications {
			meds[i] = &c.Medications[i]
		}
	}

	summaries := make([]MedicationSummary, len(meds))
	for i, med := range meds {
		summaries[i] = MedicationSummary{
			ID:              med.ID,
			Name:            med.Name,
			Category:        med.CategoryID,
			Route:           med.Route,
			RenalAdjustable: med.RenalAdjustable,
			HasReference:    med.Reference != "",
			Aliases:         aliasesOf(cat, med.ID),
		}
	}

	h.RespondWithJSON(w, http.StatusOK, summaries)
}

// FindMedication returns one full catalog entry by id
func (h *HTTPHandlerImpl) FindMedication(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.catalogReady(w)
	if !ok {
		return
	}

	id, err := h.validator.ValidateMedicationID(chi.URLParam(r, "id"))
	if err != nil {
		logging.Warn("Unusual user input", "id", chi.URLParam(r, "id"))
		h.RespondWithError(w, http.StatusBadRequest, "Invalid medication id: "+err.Error())
		return
	}

	med, found := cat.Medication(id)
	if !found {
		h.RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, MedicationResponse{
		Medication:   med,
		CategoryName: cat.CategoryName(med.CategoryID),
		Aliases:      aliasesOf(cat, med.ID),
	})
}

// Search returns up to ten ranked matches for the q parameter. Queries shorter than two
// characters return no matches rather than an error.
func (h *HTTPHandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.catalogReady(w); !ok {
		return
	}

	query := r.URL.Query().Get("q")
	results := []SearchResult{}

	if utf8.RuneCountInString(strings.TrimSpace(query)) >= search.MinQueryLength {
		if err := h.validator.ValidateInput(query); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		for m := range h.dataStore.GetIndex().Matches(query) {
			results = append(results, SearchResult{
				Match:       m,
				Highlighted: m.Highlighted(highlightOpen, highlightClose),
			})
		}
	}

	metrics.RecordSearch("search", len(results))
	h.RespondWithJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// FilterIndex returns the grouped medication index filtered by the q parameter
func (h *HTTPHandlerImpl) FilterIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.catalogReady(w); !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) != "" {
		if err := h.validator.ValidateInput(query); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	start := time.Now()
	view := h.dataStore.GetIndex().FilterIndex(query)
	logging.Debug("Index filtered", "query", query, "total", view.Total, "duration", time.Since(start).String())

	metrics.RecordSearch("index", view.Total)
	h.RespondWithJSON(w, http.StatusOK, view)
}

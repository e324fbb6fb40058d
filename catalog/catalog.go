// Package catalog holds the medication reference dataset: categories of medications with
// per-age-tier dosing rules, renal adjustment tables, warnings, notes and the brand-name alias
// table used by search.
//
// A Catalog is built once and never mutated afterwards, so it may be shared by any number of
// goroutines without synchronization. Accessors return copies of the catalog's slices and
// maps; the medications, groups and categories inside them are shared and must not be modified.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
)

//go:embed medications.json
var embeddedDataset []byte

// Catalog is the immutable medication dataset.
type Catalog struct {
	version    string
	groups     []Group
	categories []Category
	aliases    map[string][]string
	byID       map[string]*Medication
	order      []*Medication
	categoryBy map[string]*Category
}

type dataset struct {
	Version    string              `json:"version"`
	Groups     []Group             `json:"groups"`
	Categories []Category          `json:"categories"`
	Aliases    map[string][]string `json:"aliases"`
}

// Load parses the dataset embedded in the binary.
func Load() (*Catalog, error) {
	return Parse(embeddedDataset)
}

// LoadFile parses a dataset file with the same layout as the embedded one.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a dataset from r.
func Read(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a catalog from its JSON representation. Duplicate medication or category ids
// are rejected; clinical consistency is checked separately by the validation package.
func Parse(raw []byte) (*Catalog, error) {
	var ds dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(ds.Version, ds.Groups, ds.Categories, ds.Aliases)
}

// New builds a catalog from already decoded parts. The inputs are copied.
func New(version string, groups []Group, categories []Category, aliases map[string][]string) (*Catalog, error) {
	c := &Catalog{
		version:    version,
		groups:     slices.Clone(groups),
		categories: make([]Category, len(categories)),
		aliases:    make(map[string][]string, len(aliases)),
		byID:       make(map[string]*Medication),
		categoryBy: make(map[string]*Category, len(categories)),
	}

	for id, names := range aliases {
		c.aliases[id] = slices.Clone(names)
	}

	for i := range categories {
		cat := categories[i]
		if _, dup := c.categoryBy[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}

		cat.Medications = slices.Clone(cat.Medications)
		c.categories[i] = cat
		c.categoryBy[cat.ID] = &c.categories[i]

		for j := range c.categories[i].Medications {
			med := &c.categories[i].Medications[j]
			med.CategoryID = cat.ID
			if med.Warnings == nil {
				med.Warnings = []string{}
			}
			if prev, dup := c.byID[med.ID]; dup {
				return nil, fmt.Errorf("duplicate medication id %q in categories %q and %q", med.ID, prev.CategoryID, cat.ID)
			}
			c.byID[med.ID] = med
			c.order = append(c.order, med)
		}
	}

	for _, g := range c.groups {
		for _, id := range g.Categories {
			if _, ok := c.categoryBy[id]; !ok {
				return nil, fmt.Errorf("group %q references unknown category %q", g.Name, id)
			}
		}
	}

	return c, nil
}

// Version returns the dataset version label.
func (c *Catalog) Version() string {
	return c.version
}

// Groups returns the category groups in display order.
func (c *Catalog) Groups() []Group {
	return slices.Clone(c.groups)
}

// Categories returns all categories in dataset order.
func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// Category looks up a category by id.
func (c *Catalog) Category(id string) (*Category, bool) {
	cat, ok := c.categoryBy[id]
	return cat, ok
}

// CategoryName returns the display name of a category, or the id itself when unknown.
func (c *Catalog) CategoryName(id string) string {
	if cat, ok := c.categoryBy[id]; ok {
		return cat.Name
	}
	return id
}

// Medication looks up a medication by id.
func (c *Catalog) Medication(id string) (*Medication, bool) {
	med, ok := c.byID[id]
	return med, ok
}

// Medications returns every medication in dataset order.
func (c *Catalog) Medications() []*Medication {
	return slices.Clone(c.order)
}

// Len returns the number of medications.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Aliases returns the brand names registered for a medication id, in order.
func (c *Catalog) Aliases(id string) []string {
	return slices.Clone(c.aliases[id])
}

// AliasTable returns the full alias table, including entries whose id is not in the catalog.
func (c *Catalog) AliasTable() map[string][]string {
	return maps.Clone(c.aliases)
}

// Stats counts medications, referenced medications, categories and alias entries.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Medications: len(c.order),
		Categories:  len(c.categories),
		Aliases:     len(c.aliases),
	}
	for _, med := range c.order {
		if med.Reference != "" {
			s.WithReference++
		}
	}
	return s
}

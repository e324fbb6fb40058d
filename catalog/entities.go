package catalog

import (
	"fmt"
	"strings"
)

// AgeTier selects which dosing rule of a medication applies.
type AgeTier string

const (
	Adult     AgeTier = "adult"
	Pediatric AgeTier = "pediatric"
	Neonate   AgeTier = "neonate"
)

// AgeTiers lists every tier in display order.
var AgeTiers = []AgeTier{Adult, Pediatric, Neonate}

// RenalTier is the patient's renal function category.
type RenalTier string

const (
	RenalNormal   RenalTier = "normal"
	RenalMild     RenalTier = "mild"
	RenalModerate RenalTier = "moderate"
	RenalSevere   RenalTier = "severe"
	RenalESRD     RenalTier = "esrd"
)

// RenalTiers lists the impaired tiers a renal table may define.
var RenalTiers = []RenalTier{RenalMild, RenalModerate, RenalSevere, RenalESRD}

// ParseAgeTier parses adult, pediatric or neonate.
func ParseAgeTier(s string) (AgeTier, error) {
	tier := AgeTier(strings.ToLower(strings.TrimSpace(s)))
	switch tier {
	case Adult, Pediatric, Neonate:
		return tier, nil
	}
	return "", fmt.Errorf("unknown age tier %q", s)
}

// ParseRenalTier parses a renal function tier. An empty value means normal function.
func ParseRenalTier(s string) (RenalTier, error) {
	tier := RenalTier(strings.ToLower(strings.TrimSpace(s)))
	switch tier {
	case "":
		return RenalNormal, nil
	case RenalNormal, RenalMild, RenalModerate, RenalSevere, RenalESRD:
		return tier, nil
	}
	return "", fmt.Errorf("unknown renal tier %q", s)
}

// DoseRule is the dosing of one age tier. A nil Amount means dosing is not established.
type DoseRule struct {
	Amount    *float64 `json:"amount"`
	Unit      string   `json:"unit"`
	Frequency string   `json:"frequency"`
	MaxDaily  *float64 `json:"max_daily"`
	Fixed     bool     `json:"fixed,omitempty"`
}

// Established reports whether the rule carries a dose amount.
func (r *DoseRule) Established() bool {
	return r != nil && r.Amount != nil
}

// DoseUnit is the unit of one computed dose: the rule unit without its per-kg part.
func (r *DoseRule) DoseUnit() string {
	return strings.Replace(r.Unit, "/kg", "", 1)
}

// RenalAdjustment replaces the dosing frequency for an impaired renal tier.
type RenalAdjustment struct {
	Frequency string `json:"frequency"`
	Note      string `json:"note"`
}

// Dosing holds the per-tier rules of a medication. Any tier may be nil.
type Dosing struct {
	Adult     *DoseRule `json:"adult"`
	Pediatric *DoseRule `json:"pediatric"`
	Neonate   *DoseRule `json:"neonate"`
}

// Medication is one drug's clinical dosing profile.
type Medication struct {
	ID              string                        `json:"id"`
	Name            string                        `json:"name"`
	Route           string                        `json:"route"`
	Dosing          Dosing                        `json:"dosing"`
	RenalAdjustable bool                          `json:"renal_adjustable"`
	Renal           map[RenalTier]RenalAdjustment `json:"renal,omitempty"`
	Notes           string                        `json:"notes,omitempty"`
	Warnings        []string                      `json:"warnings"`
	Reference       string                        `json:"reference,omitempty"`
	CategoryID      string                        `json:"category"`
}

// Rule returns the dose rule for a tier. The boolean is false when the tier has no rule
// or the rule has no amount; both mean dosing is not established.
func (m *Medication) Rule(tier AgeTier) (DoseRule, bool) {
	var rule *DoseRule
	switch tier {
	case Adult:
		rule = m.Dosing.Adult
	case Pediatric:
		rule = m.Dosing.Pediatric
	case Neonate:
		rule = m.Dosing.Neonate
	}
	if !rule.Established() {
		return DoseRule{}, false
	}
	return *rule, true
}

// RenalAdjustmentFor returns the adjustment for an impaired tier. Normal function, medications
// that are not renal adjustable and tiers missing from the table all report false.
func (m *Medication) RenalAdjustmentFor(tier RenalTier) (RenalAdjustment, bool) {
	if !m.RenalAdjustable || tier == RenalNormal || tier == "" {
		return RenalAdjustment{}, false
	}
	adj, ok := m.Renal[tier]
	return adj, ok
}

// Category groups medications for display. It carries no dosing semantics.
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Medications []Medication `json:"medications"`
}

// Group is an ordered set of category ids shown together.
type Group struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Stats summarizes the catalog contents.
type Stats struct {
	Medications   int `json:"medications"`
	WithReference int `json:"with_reference"`
	Categories    int `json:"categories"`
	Aliases       int `json:"aliases"`
}

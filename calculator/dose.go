package calculator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/units"
)

// WeightDoseRequest describes a free-form weight-based dose.
type WeightDoseRequest struct {
	Weight          float64
	WeightUnit      units.WeightUnit
	DosePerKg       float64
	DoseUnit        string // e.g. "mg/kg"
	FrequencyPerDay float64
}

// WeightDoseResult is the outcome of ComputeWeightBasedDose.
type WeightDoseResult struct {
	SingleDose float64 `json:"single_dose"`
	DailyDose  float64 `json:"daily_dose"`
	WeightKg   float64 `json:"weight_kg"`
	DoseUnit   string  `json:"dose_unit"`
}

// ComputeWeightBasedDose multiplies the weight in kilograms by the per-kg dose. No daily cap
// applies on this path.
func ComputeWeightBasedDose(req WeightDoseRequest) (*WeightDoseResult, error) {
	if err := requirePositive("weight", req.Weight); err != nil {
		return nil, err
	}
	if err := requireWeightUnit(req.WeightUnit); err != nil {
		return nil, err
	}
	if err := requirePositive("dose per kg", req.DosePerKg); err != nil {
		return nil, err
	}
	if err := requirePositive("frequency", req.FrequencyPerDay); err != nil {
		return nil, err
	}

	weightKg := units.WeightToKg(req.Weight, req.WeightUnit)
	single := weightKg * req.DosePerKg

	return &WeightDoseResult{
		SingleDose: single,
		DailyDose:  single * req.FrequencyPerDay,
		WeightKg:   weightKg,
		DoseUnit:   strings.Replace(req.DoseUnit, "/kg", "", 1),
	}, nil
}

// Indication is the clinical context of a catalog dose.
type Indication string

const (
	IndicationStandard   Indication = "standard"
	IndicationSevere     Indication = "severe"
	IndicationMeningitis Indication = "meningitis"
)

// ParseIndication parses an indication. An empty value is the standard indication.
func ParseIndication(s string) (Indication, error) {
	ind := Indication(strings.ToLower(strings.TrimSpace(s)))
	switch ind {
	case "":
		return IndicationStandard, nil
	case IndicationStandard, IndicationSevere, IndicationMeningitis:
		return ind, nil
	}
	return "", &InputError{Field: "indication", Reason: fmt.Sprintf("unknown indication %q", s)}
}

// CatalogDoseRequest selects the rule and patient parameters for a catalog dose.
// Weight may be zero for fixed-dose rules.
type CatalogDoseRequest struct {
	Tier       catalog.AgeTier
	Weight     float64
	WeightUnit units.WeightUnit
	Renal      catalog.RenalTier
	Indication Indication
}

// RenalAdvisory is the renal adjustment that was applied to a dose.
type RenalAdvisory struct {
	Tier      catalog.RenalTier `json:"tier"`
	Frequency string            `json:"frequency"`
	Note      string            `json:"note"`
}

// AppliedOverride records an indication override that replaced the computed dose.
type AppliedOverride struct {
	Indication Indication `json:"indication"`
	SingleDose float64    `json:"single_dose"`
	DoseUnit   string     `json:"dose_unit"`
	Frequency  string     `json:"frequency"`
}

// CatalogDoseResult is the outcome of a catalog dose computation.
type CatalogDoseResult struct {
	MedicationID string           `json:"medication_id"`
	Name         string           `json:"name"`
	Tier         catalog.AgeTier  `json:"age_tier"`
	SingleDose   float64          `json:"single_dose"`
	DoseUnit     string           `json:"dose_unit"`
	RuleUnit     string           `json:"rule_unit"`
	Frequency    string           `json:"frequency"`
	DosesPerDay  float64          `json:"doses_per_day"`
	DailyTotal   float64          `json:"daily_total"`
	MaxDaily     *float64         `json:"max_daily,omitempty"`
	MaxDailyUnit string           `json:"max_daily_unit,omitempty"`
	Capped       bool             `json:"capped"`
	Route        string           `json:"route"`
	Renal        *RenalAdvisory   `json:"renal_adjustment,omitempty"`
	Override     *AppliedOverride `json:"indication_override,omitempty"`
	WeightKg     *float64         `json:"weight_kg,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Warnings     []string         `json:"warnings"`
}

// DoseCalculator computes catalog doses. It holds no mutable state and is safe for concurrent use.
type DoseCalculator struct {
	overrides OverrideTable
}

// NewDoseCalculator creates a calculator with the given override table. A nil table disables
// indication overrides.
func NewDoseCalculator(overrides OverrideTable) *DoseCalculator {
	return &DoseCalculator{overrides: overrides}
}

var defaultDoseCalculator = NewDoseCalculator(DefaultOverrides())

// ComputeCatalogDose computes a catalog dose with the default override table.
func ComputeCatalogDose(med *catalog.Medication, req CatalogDoseRequest) (*CatalogDoseResult, error) {
	return defaultDoseCalculator.ComputeCatalogDose(med, req)
}

// ComputeCatalogDose resolves the age-tier rule, scales it by weight when needed, caps it to the
// maximum daily amount, applies renal and indication adjustments and derives the daily total.
func (c *DoseCalculator) ComputeCatalogDose(med *catalog.Medication, req CatalogDoseRequest) (*CatalogDoseResult, error) {
	if med == nil {
		return nil, &InputError{Field: "medication", Reason: "is required"}
	}

	rule, ok := med.Rule(req.Tier)
	if !ok {
		return nil, &NotEstablishedError{MedicationID: med.ID, Name: med.Name, Tier: req.Tier}
	}

	if err := requireWeightUnit(req.WeightUnit); err != nil {
		return nil, err
	}

	hasWeight := validPositive(req.Weight)
	var weightKg float64
	if hasWeight {
		weightKg = units.WeightToKg(req.Weight, req.WeightUnit)
	}

	var single float64
	if rule.Fixed {
		single = *rule.Amount
	} else {
		if err := requirePositive("weight", req.Weight); err != nil {
			return nil, err
		}
		single = weightKg * *rule.Amount
	}

	frequency := rule.Frequency
	capped := false
	if rule.MaxDaily != nil {
		perDay := DosesPerDay(frequency)
		if single*perDay > *rule.MaxDaily {
			single = *rule.MaxDaily / perDay
			capped = true
		}
	}

	result := &CatalogDoseResult{
		MedicationID: med.ID,
		Name:         med.Name,
		Tier:         req.Tier,
		DoseUnit:     rule.DoseUnit(),
		RuleUnit:     rule.Unit,
		MaxDaily:     rule.MaxDaily,
		Capped:       capped,
		Route:        med.Route,
		Notes:        med.Notes,
		Warnings:     slices.Clone(med.Warnings),
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	if rule.MaxDaily != nil {
		result.MaxDailyUnit = rule.DoseUnit()
	}
	if hasWeight {
		result.WeightKg = &weightKg
	}

	if adj, ok := med.RenalAdjustmentFor(req.Renal); ok {
		frequency = adj.Frequency
		result.Renal = &RenalAdvisory{Tier: req.Renal, Frequency: adj.Frequency, Note: adj.Note}
	}

	if override, ok := c.overrides[med.ID]; ok {
		applied, matched, err := override(OverrideContext{
			Tier:       req.Tier,
			Indication: req.Indication,
			WeightKg:   weightKg,
			HasWeight:  hasWeight,
		})
		if err != nil {
			return nil, err
		}
		if matched {
			single = applied.SingleDose
			frequency = applied.Frequency
			result.DoseUnit = applied.DoseUnit
			// The override replaces the capped rule dose
			result.Capped = false
			result.Override = &AppliedOverride{
				Indication: req.Indication,
				SingleDose: applied.SingleDose,
				DoseUnit:   applied.DoseUnit,
				Frequency:  applied.Frequency,
			}
		}
	}

	result.SingleDose = single
	result.Frequency = frequency
	result.DosesPerDay = DosesPerDay(frequency)
	result.DailyTotal = single * result.DosesPerDay

	return result, nil
}

func requireWeightUnit(u units.WeightUnit) error {
	switch u {
	case "", units.Kilograms, units.Pounds:
		return nil
	}
	return &InputError{Field: "weight unit", Reason: fmt.Sprintf("unknown unit %q", u)}
}

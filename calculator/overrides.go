package calculator

import (
	"maps"
	"math"

	"github.com/giygas/medcalc-api/catalog"
)

// OverrideContext is what an indication override may inspect.
type OverrideContext struct {
	Tier       catalog.AgeTier
	Indication Indication
	WeightKg   float64
	HasWeight  bool
}

// OverrideDose replaces the computed single dose and frequency.
type OverrideDose struct {
	SingleDose float64
	DoseUnit   string
	Frequency  string
}

// Override returns the replacement dose and true when it applies to the context.
type Override func(ctx OverrideContext) (OverrideDose, bool, error)

// OverrideTable maps a medication id to its indication override.
type OverrideTable map[string]Override

// DefaultOverrides returns a fresh copy of the built-in override table.
func DefaultOverrides() OverrideTable {
	return maps.Clone(builtinOverrides)
}

var builtinOverrides = OverrideTable{
	"ceftriaxone":        ceftriaxoneOverride,
	"meropenem":          meropenemOverride,
	"meropenem-extended": meropenemOverride,
}

func isSevere(ind Indication) bool {
	return ind == IndicationSevere || ind == IndicationMeningitis
}

// ceftriaxoneOverride: adults 2 g; children 100 mg/kg up to 4 g.
// Q12H for meningitis, Q12-24H for other severe infections.
func ceftriaxoneOverride(ctx OverrideContext) (OverrideDose, bool, error) {
	if !isSevere(ctx.Indication) {
		return OverrideDose{}, false, nil
	}

	frequency := "Q12-24H"
	if ctx.Indication == IndicationMeningitis {
		frequency = "Q12H"
	}

	if ctx.Tier == catalog.Adult {
		return OverrideDose{SingleDose: 2000, DoseUnit: "mg", Frequency: frequency}, true, nil
	}
	if !ctx.HasWeight {
		return OverrideDose{}, false, &InputError{Field: "weight", Reason: "is required for weight-based severe dosing"}
	}
	return OverrideDose{SingleDose: math.Min(ctx.WeightKg*100, 4000), DoseUnit: "mg", Frequency: frequency}, true, nil
}

// meropenemOverride: adults 2 g; children 40 mg/kg up to 2 g; always Q8H.
func meropenemOverride(ctx OverrideContext) (OverrideDose, bool, error) {
	if !isSevere(ctx.Indication) {
		return OverrideDose{}, false, nil
	}

	if ctx.Tier == catalog.Adult {
		return OverrideDose{SingleDose: 2000, DoseUnit: "mg", Frequency: "Q8H"}, true, nil
	}
	if !ctx.HasWeight {
		return OverrideDose{}, false, &InputError{Field: "weight", Reason: "is required for weight-based severe dosing"}
	}
	return OverrideDose{SingleDose: math.Min(ctx.WeightKg*40, 2000), DoseUnit: "mg", Frequency: "Q8H"}, true, nil
}

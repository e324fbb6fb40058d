// Package units provides the mass, volume, weight and concentration conversions used by the
// dosing calculators, plus the number and duration formatting applied when results are displayed.
//
// Conversions never round. Rounding is a presentation concern handled by FormatNumber and
// FormatDuration.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// KgPerPound is the conversion factor from pounds to kilograms.
const KgPerPound = 0.453592

// MgPerPercent is the mg/mL equivalent of a 1% w/v solution.
const MgPerPercent = 10.0

// ErrUnknownUnit is returned when a unit label cannot be parsed.
var ErrUnknownUnit = errors.New("unknown unit")

// WeightUnit is the unit a patient weight is expressed in.
type WeightUnit string

const (
	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lb"
)

// MassUnit is the unit of a drug amount.
type MassUnit string

const (
	Grams       MassUnit = "g"
	Milligrams  MassUnit = "mg"
	Micrograms  MassUnit = "mcg"
	Units       MassUnit = "units"
	unknownMass MassUnit = ""
)

// TimeUnit is the unit of an infusion time.
type TimeUnit string

const (
	Hours   TimeUnit = "hr"
	Minutes TimeUnit = "min"
)

// ConcentrationUnit is the unit of a solution concentration.
type ConcentrationUnit string

const (
	MgPerMl    ConcentrationUnit = "mg/mL"
	McgPerMl   ConcentrationUnit = "mcg/mL"
	Percent    ConcentrationUnit = "%"
	UnitsPerMl ConcentrationUnit = "units/mL"
)

// PoundsToKg converts pounds to kilograms.
func PoundsToKg(lb float64) float64 {
	return lb * KgPerPound
}

// MgToMcg converts milligrams to micrograms.
func MgToMcg(mg float64) float64 {
	return mg * 1000
}

// McgToMg converts micrograms to milligrams.
func McgToMg(mcg float64) float64 {
	return mcg / 1000
}

// GToMg converts grams to milligrams.
func GToMg(g float64) float64 {
	return g * 1000
}

// MgToG converts milligrams to grams.
func MgToG(mg float64) float64 {
	return mg / 1000
}

// PercentToMgPerMl converts a w/v percentage to mg/mL (1% = 10 mg/mL).
func PercentToMgPerMl(pct float64) float64 {
	return pct * MgPerPercent
}

// MinutesToHours converts minutes to hours.
func MinutesToHours(min float64) float64 {
	return min / 60
}

// WeightToKg returns the weight in kilograms. Only pound values are converted.
func WeightToKg(weight float64, unit WeightUnit) float64 {
	if unit == Pounds {
		return PoundsToKg(weight)
	}
	return weight
}

// ToHours returns the duration in hours. Only minute values are converted.
func ToHours(value float64, unit TimeUnit) float64 {
	if unit == Minutes {
		return MinutesToHours(value)
	}
	return value
}

// ToMilligrams normalizes a mass amount to milligrams. Unit counts are returned unchanged.
func ToMilligrams(amount float64, unit MassUnit) float64 {
	switch unit {
	case Grams:
		return GToMg(amount)
	case Micrograms:
		return McgToMg(amount)
	default:
		return amount
	}
}

// ToMgPerMl normalizes a mass concentration to mg/mL. units/mL values are returned unchanged.
func ToMgPerMl(value float64, unit ConcentrationUnit) float64 {
	switch unit {
	case Percent:
		return PercentToMgPerMl(value)
	case McgPerMl:
		return McgToMg(value)
	default:
		return value
	}
}

// IsMass reports whether the unit measures mass rather than activity units.
func (u MassUnit) IsMass() bool {
	return u == Grams || u == Milligrams || u == Micrograms
}

// IsMass reports whether the concentration is expressed per mass.
func (u ConcentrationUnit) IsMass() bool {
	return u != UnitsPerMl
}

// ParseWeightUnit parses "kg" or "lb". An empty label defaults to kilograms.
func ParseWeightUnit(s string) (WeightUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kg":
		return Kilograms, nil
	case "lb", "lbs":
		return Pounds, nil
	}
	return "", fmt.Errorf("%w: weight unit %q", ErrUnknownUnit, s)
}

// ParseMassUnit parses g, mg, mcg (or µg) and units.
func ParseMassUnit(s string) (MassUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g":
		return Grams, nil
	case "mg":
		return Milligrams, nil
	case "mcg", "µg", "ug":
		return Micrograms, nil
	case "units", "unit", "u":
		return Units, nil
	}
	return unknownMass, fmt.Errorf("%w: mass unit %q", ErrUnknownUnit, s)
}

// ParseTimeUnit parses "hr" or "min". An empty label defaults to hours.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hr", "h", "hours":
		return Hours, nil
	case "min", "minutes":
		return Minutes, nil
	}
	return "", fmt.Errorf("%w: time unit %q", ErrUnknownUnit, s)
}

// ParseConcentrationUnit parses mg/mL, mcg/mL, % and units/mL.
func ParseConcentrationUnit(s string) (ConcentrationUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mg/ml":
		return MgPerMl, nil
	case "mcg/ml", "µg/ml", "ug/ml":
		return McgPerMl, nil
	case "%":
		return Percent, nil
	case "units/ml", "u/ml":
		return UnitsPerMl, nil
	}
	return "", fmt.Errorf("%w: concentration unit %q", ErrUnknownUnit, s)
}

// Package calculator implements the dosing, infusion rate and dilution computations.
//
// Every operation either returns a complete result or exactly one error. Errors unwrap to one
// of four sentinels (ErrInvalidInput, ErrDosingNotEstablished, ErrInfeasibleDilution,
// ErrDoseExceedsAvailable) so callers can branch with errors.Is, and the concrete types carry
// the details a caller needs to explain the failure.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/giygas/medcalc-api/catalog"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrDosingNotEstablished = errors.New("dosing not established")
	ErrInfeasibleDilution   = errors.New("infeasible dilution")
	ErrDoseExceedsAvailable = errors.New("dose exceeds available drug")
)

// Kind names an error category independently of its Go type.
type Kind string

const (
	KindNone                 Kind = ""
	KindInvalidInput         Kind = "invalid_input"
	KindDosingNotEstablished Kind = "dosing_not_established"
	KindInfeasibleDilution   Kind = "infeasible_dilution"
	KindDoseExceedsAvailable Kind = "dose_exceeds_available"
	KindUnknown              Kind = "unknown"
)

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDosingNotEstablished):
		return KindDosingNotEstablished
	case errors.Is(err, ErrInfeasibleDilution):
		return KindInfeasibleDilution
	case errors.Is(err, ErrDoseExceedsAvailable):
		return KindDoseExceedsAvailable
	default:
		return KindUnknown
	}
}

// InputError reports a missing, non-numeric or out of range input field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// NotEstablishedError reports that the catalog has no dose for the requested age tier.
type NotEstablishedError struct {
	MedicationID string
	Name         string
	Tier         catalog.AgeTier
}

func (e *NotEstablishedError) Error() string {
	group := "this age group"
	if e.Tier == catalog.Neonate {
		group = "neonates"
	}
	return fmt.Sprintf("%s dosing not established for %s", e.Name, group)
}

func (e *NotEstablishedError) Unwrap() error {
	return ErrDosingNotEstablished
}

// InfeasibleDilutionError reports a target concentration that is not below the stock.
// Both values are expressed in Unit after normalization.
type InfeasibleDilutionError struct {
	Stock  float64
	Target float64
	Unit   string
}

func (e *InfeasibleDilutionError) Error() string {
	return fmt.Sprintf("target concentration %g %s must be less than stock concentration %g %s",
		e.Target, e.Unit, e.Stock, e.Unit)
}

func (e *InfeasibleDilutionError) Unwrap() error {
	return ErrInfeasibleDilution
}

// DoseExceedsAvailableError reports a reconstitution dose larger than the vial holds.
// MaxDeliverable is the whole vial content, in Unit.
type DoseExceedsAvailableError struct {
	Requested      float64
	MaxDeliverable float64
	Unit           string
}

func (e *DoseExceedsAvailableError) Error() string {
	return fmt.Sprintf("desired dose exceeds available drug: maximum dose %g %s", e.MaxDeliverable, e.Unit)
}

func (e *DoseExceedsAvailableError) Unwrap() error {
	return ErrDoseExceedsAvailable
}

// requirePositive returns an InputError unless v is a finite number greater than zero.
func requirePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InputError{Field: field, Reason: "must be a number"}
	}
	if v <= 0 {
		return &InputError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

// validPositive reports whether v is a finite number greater than zero.
func validPositive(v float64) bool {
	return requirePositive("", v) == nil
}

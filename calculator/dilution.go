package calculator

import (
	"fmt"

	"github.com/giygas/medcalc-api/units"
)

// DilutionRequest describes diluting a stock solution to a target concentration.
type DilutionRequest struct {
	StockConc     float64
	StockUnit     units.ConcentrationUnit
	TargetConc    float64
	TargetUnit    units.ConcentrationUnit
	FinalVolumeML float64
}

// DilutionResult is the outcome of ComputeDilution.
type DilutionResult struct {
	StockVolumeML   float64 `json:"stock_volume_ml"`
	DiluentVolumeML float64 `json:"diluent_volume_ml"`
	FinalConc       float64 `json:"final_concentration"`
	FinalConcUnit   string  `json:"final_concentration_unit"`
}

// ComputeDilution applies C1V1 = C2V2. Concentrations in the same unit are compared as given;
// mixed mass units are both normalized to mg/mL first.
func ComputeDilution(req DilutionRequest) (*DilutionResult, error) {
	if err := requirePositive("stock concentration", req.StockConc); err != nil {
		return nil, err
	}
	if err := requirePositive("target concentration", req.TargetConc); err != nil {
		return nil, err
	}
	if err := requirePositive("final volume", req.FinalVolumeML); err != nil {
		return nil, err
	}

	stock, target, unit, err := normalizeConcentrations(req)
	if err != nil {
		return nil, err
	}

	if target >= stock {
		return nil, &InfeasibleDilutionError{Stock: stock, Target: target, Unit: unit}
	}

	stockVolume := (target * req.FinalVolumeML) / stock

	return &DilutionResult{
		StockVolumeML:   stockVolume,
		DiluentVolumeML: req.FinalVolumeML - stockVolume,
		FinalConc:       req.TargetConc,
		FinalConcUnit:   string(req.TargetUnit),
	}, nil
}

func normalizeConcentrations(req DilutionRequest) (stock, target float64, unit string, err error) {
	for _, u := range []units.ConcentrationUnit{req.StockUnit, req.TargetUnit} {
		switch u {
		case units.MgPerMl, units.McgPerMl, units.Percent, units.UnitsPerMl:
		default:
			return 0, 0, "", &InputError{Field: "concentration unit", Reason: fmt.Sprintf("unknown unit %q", u)}
		}
	}

	if req.StockUnit == req.TargetUnit && req.StockUnit != units.Percent {
		return req.StockConc, req.TargetConc, string(req.StockUnit), nil
	}

	if !req.StockUnit.IsMass() || !req.TargetUnit.IsMass() {
		return 0, 0, "", &InputError{
			Field:  "concentration unit",
			Reason: fmt.Sprintf("cannot compare %q with %q", req.StockUnit, req.TargetUnit),
		}
	}

	return units.ToMgPerMl(req.StockConc, req.StockUnit),
		units.ToMgPerMl(req.TargetConc, req.TargetUnit),
		string(units.MgPerMl), nil
}

// ReconstitutionRequest describes dissolving a powder vial and drawing a dose from it.
type ReconstitutionRequest struct {
	PowderAmount    float64
	PowderUnit      units.MassUnit
	DiluentVolumeML float64
	DesiredDose     float64
	DesiredUnit     units.MassUnit
}

// ReconstitutionResult is the outcome of ComputeReconstitution. Mass amounts are in mg.
type ReconstitutionResult struct {
	FinalConcentration float64 `json:"final_concentration"`
	ConcentrationUnit  string  `json:"concentration_unit"`
	VolumeToDrawML     float64 `json:"volume_to_draw_ml"`
	MaxDeliverable     float64 `json:"max_deliverable"`
	AmountUnit         string  `json:"amount_unit"`
}

// ComputeReconstitution computes the concentration after reconstitution and the volume that
// delivers the desired dose. Asking for exactly the whole vial is allowed and draws the whole
// diluent volume.
func ComputeReconstitution(req ReconstitutionRequest) (*ReconstitutionResult, error) {
	if err := requirePositive("powder amount", req.PowderAmount); err != nil {
		return nil, err
	}
	if err := requirePositive("diluent volume", req.DiluentVolumeML); err != nil {
		return nil, err
	}
	if err := requirePositive("desired dose", req.DesiredDose); err != nil {
		return nil, err
	}

	amountUnit := units.Milligrams
	switch {
	case req.PowderUnit.IsMass() && req.DesiredUnit.IsMass():
	case req.PowderUnit == units.Units && req.DesiredUnit == units.Units:
		amountUnit = units.Units
	default:
		return nil, &InputError{
			Field:  "dose unit",
			Reason: fmt.Sprintf("cannot convert %q to %q", req.DesiredUnit, req.PowderUnit),
		}
	}

	powder := units.ToMilligrams(req.PowderAmount, req.PowderUnit)
	desired := units.ToMilligrams(req.DesiredDose, req.DesiredUnit)

	if desired > powder {
		return nil, &DoseExceedsAvailableError{
			Requested:      desired,
			MaxDeliverable: powder,
			Unit:           string(amountUnit),
		}
	}

	concentration := powder / req.DiluentVolumeML
	volume := desired / concentration
	if desired == powder {
		volume = req.DiluentVolumeML
	}

	return &ReconstitutionResult{
		FinalConcentration: concentration,
		ConcentrationUnit:  string(amountUnit) + "/mL",
		VolumeToDrawML:     volume,
		MaxDeliverable:     powder,
		AmountUnit:         string(amountUnit),
	}, nil
}

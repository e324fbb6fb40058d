package calculator

import (
	"fmt"
	"math"
	"strings"

	"github.com/giygas/medcalc-api/units"
)

// VolumeRateRequest describes a gravity or pump infusion of a fixed volume.
type VolumeRateRequest struct {
	TotalVolumeML float64
	InfusionTime  float64
	TimeUnit      units.TimeUnit
	DropFactor    float64 // gtt/mL of the administration set
}

// VolumeRateResult is the outcome of ComputeVolumeBasedRate. DropsPerMin is not rounded.
type VolumeRateResult struct {
	FlowRateMLPerHr float64 `json:"flow_rate_ml_per_hr"`
	DropsPerMin     float64 `json:"drops_per_min"`
	DurationHours   float64 `json:"duration_hours"`
}

// RoundedDropsPerMin returns the drop rate rounded to the nearest whole drop.
func (r *VolumeRateResult) RoundedDropsPerMin() int {
	return int(math.Round(r.DropsPerMin))
}

// ComputeVolumeBasedRate computes the pump rate and drop rate for a volume over a time.
func ComputeVolumeBasedRate(req VolumeRateRequest) (*VolumeRateResult, error) {
	if err := requirePositive("volume", req.TotalVolumeML); err != nil {
		return nil, err
	}
	if err := requirePositive("infusion time", req.InfusionTime); err != nil {
		return nil, err
	}
	if err := requirePositive("drop factor", req.DropFactor); err != nil {
		return nil, err
	}
	if req.TimeUnit != "" && req.TimeUnit != units.Hours && req.TimeUnit != units.Minutes {
		return nil, &InputError{Field: "time unit", Reason: fmt.Sprintf("unknown unit %q", req.TimeUnit)}
	}

	hours := units.ToHours(req.InfusionTime, req.TimeUnit)

	return &VolumeRateResult{
		FlowRateMLPerHr: req.TotalVolumeML / hours,
		DropsPerMin:     (req.TotalVolumeML * req.DropFactor) / (hours * 60),
		DurationHours:   hours,
	}, nil
}

// DoseRateUnit is a parsed dosing rate such as mcg/kg/min or units/hr.
type DoseRateUnit struct {
	Mass      units.MassUnit
	PerKg     bool
	PerMinute bool
}

// String renders the unit back to its label.
func (u DoseRateUnit) String() string {
	var b strings.Builder
	b.WriteString(string(u.Mass))
	if u.PerKg {
		b.WriteString("/kg")
	}
	if u.PerMinute {
		b.WriteString("/min")
	} else {
		b.WriteString("/hr")
	}
	return b.String()
}

// ParseDoseRateUnit parses "<mass>[/kg]/<min|hr>".
func ParseDoseRateUnit(s string) (DoseRateUnit, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return DoseRateUnit{}, &InputError{Field: "dose unit", Reason: fmt.Sprintf("unknown unit %q", s)}
	}

	mass, err := units.ParseMassUnit(parts[0])
	if err != nil {
		return DoseRateUnit{}, &InputError{Field: "dose unit", Reason: err.Error()}
	}
	u := DoseRateUnit{Mass: mass}

	if len(parts) == 3 {
		if strings.ToLower(parts[1]) != "kg" {
			return DoseRateUnit{}, &InputError{Field: "dose unit", Reason: fmt.Sprintf("unknown unit %q", s)}
		}
		u.PerKg = true
	}

	switch strings.ToLower(parts[len(parts)-1]) {
	case "min":
		u.PerMinute = true
	case "hr", "h":
	default:
		return DoseRateUnit{}, &InputError{Field: "dose unit", Reason: fmt.Sprintf("unknown unit %q", s)}
	}

	return u, nil
}

// DoseRateRequest describes a continuous infusion titrated to a dose rate.
type DoseRateRequest struct {
	DrugAmount    float64
	DrugUnit      units.MassUnit
	BagVolumeML   float64
	DesiredDose   float64
	DesiredUnit   DoseRateUnit
	PatientWeight float64 // required for per-kg rates
	WeightUnit    units.WeightUnit
}

// DoseRateResult is the outcome of ComputeDoseBasedRate.
type DoseRateResult struct {
	FlowRateMLPerHr   float64 `json:"flow_rate_ml_per_hr"`
	Concentration     float64 `json:"concentration"`
	ConcentrationUnit string  `json:"concentration_unit"`
	DosePerHour       float64 `json:"dose_per_hour"`
	DosePerHourUnit   string  `json:"dose_per_hour_unit"`
	DurationHours     float64 `json:"duration_hours"`
}

// ComputeDoseBasedRate computes the pump rate delivering a dose rate from a prepared bag.
// The drug amount is normalized to the mass unit of the desired dose before the
// concentration is computed.
func ComputeDoseBasedRate(req DoseRateRequest) (*DoseRateResult, error) {
	if err := requirePositive("drug amount", req.DrugAmount); err != nil {
		return nil, err
	}
	if err := requirePositive("bag volume", req.BagVolumeML); err != nil {
		return nil, err
	}
	if err := requirePositive("desired dose", req.DesiredDose); err != nil {
		return nil, err
	}

	amount, err := normalizeAmount(req.DrugAmount, req.DrugUnit, req.DesiredUnit.Mass)
	if err != nil {
		return nil, err
	}
	concentration := amount / req.BagVolumeML

	dosePerHour := req.DesiredDose
	if req.DesiredUnit.PerKg {
		if err := requirePositive("patient weight", req.PatientWeight); err != nil {
			return nil, err
		}
		if err := requireWeightUnit(req.WeightUnit); err != nil {
			return nil, err
		}
		dosePerHour *= units.WeightToKg(req.PatientWeight, req.WeightUnit)
	}
	if req.DesiredUnit.PerMinute {
		dosePerHour *= 60
	}

	flowRate := dosePerHour / concentration

	return &DoseRateResult{
		FlowRateMLPerHr:   flowRate,
		Concentration:     concentration,
		ConcentrationUnit: string(req.DesiredUnit.Mass) + "/mL",
		DosePerHour:       dosePerHour,
		DosePerHourUnit:   string(req.DesiredUnit.Mass) + "/hr",
		DurationHours:     req.BagVolumeML / flowRate,
	}, nil
}

// normalizeAmount expresses amount in the target unit. Mass units convert between each other;
// activity units only match themselves.
func normalizeAmount(amount float64, from, to units.MassUnit) (float64, error) {
	if from == to {
		return amount, nil
	}
	if !from.IsMass() || !to.IsMass() {
		return 0, &InputError{Field: "drug unit", Reason: fmt.Sprintf("cannot convert %q to %q", from, to)}
	}

	mg := units.ToMilligrams(amount, from)
	switch to {
	case units.Micrograms:
		return units.MgToMcg(mg), nil
	case units.Grams:
		return units.MgToG(mg), nil
	default:
		return mg, nil
	}
}

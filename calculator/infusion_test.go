package calculator

import (
	"errors"
	"testing"

	"github.com/giygas/medcalc-api/units"
)

func TestComputeVolumeBasedRate(t *testing.T) {
	tests := []struct {
		name     string
		req      VolumeRateRequest
		flowRate float64
		drops    float64
		rounded  int
		hours    float64
	}{
		{"liter over 8 hours", VolumeRateRequest{1000, 8, units.Hours, 15}, 125, 31.25, 31, 8},
		{"minutes", VolumeRateRequest{100, 30, units.Minutes, 20}, 200, 1000.0 / 15, 67, 0.5},
		{"empty unit is hours", VolumeRateRequest{500, 4, "", 60}, 125, 125, 125, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeVolumeBasedRate(tt.req)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !approx(res.FlowRateMLPerHr, tt.flowRate) {
				t.Errorf("Expected flow rate %v, got %v", tt.flowRate, res.FlowRateMLPerHr)
			}
			if !approx(res.DropsPerMin, tt.drops) {
				t.Errorf("Expected %v gtt/min, got %v", tt.drops, res.DropsPerMin)
			}
			if res.RoundedDropsPerMin() != tt.rounded {
				t.Errorf("Expected %d rounded gtt/min, got %d", tt.rounded, res.RoundedDropsPerMin())
			}
			if !approx(res.DurationHours, tt.hours) {
				t.Errorf("Expected duration %v, got %v", tt.hours, res.DurationHours)
			}
		})
	}
}

func TestComputeVolumeBasedRateInvalid(t *testing.T) {
	tests := []struct {
		name string
		req  VolumeRateRequest
	}{
		{"zero volume", VolumeRateRequest{0, 8, units.Hours, 15}},
		{"zero time", VolumeRateRequest{1000, 0, units.Hours, 15}},
		{"zero drop factor", VolumeRateRequest{1000, 8, units.Hours, 0}},
		{"unknown time unit", VolumeRateRequest{1000, 8, "days", 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeVolumeBasedRate(tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseDoseRateUnit(t *testing.T) {
	tests := []struct {
		in   string
		want DoseRateUnit
	}{
		{"mcg/kg/min", DoseRateUnit{Mass: units.Micrograms, PerKg: true, PerMinute: true}},
		{"mg/hr", DoseRateUnit{Mass: units.Milligrams}},
		{"units/hr", DoseRateUnit{Mass: units.Units}},
		{"units/kg/hr", DoseRateUnit{Mass: units.Units, PerKg: true}},
		{"mcg/min", DoseRateUnit{Mass: units.Micrograms, PerMinute: true}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDoseRateUnit(tt.in)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseDoseRateUnit(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}

	for _, bad := range []string{"", "mg", "mg/day", "mg/lb/min", "ml/hr", "mg/kg/min/extra"} {
		if _, err := ParseDoseRateUnit(bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseDoseRateUnit(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestComputeDoseBasedRate(t *testing.T) {
	tests := []struct {
		name          string
		req           DoseRateRequest
		flowRate      float64
		concentration float64
		concUnit      string
		dosePerHour   float64
	}{
		{
			name: "mcg/kg/min from mg bag",
			req: DoseRateRequest{
				DrugAmount: 400, DrugUnit: units.Milligrams, BagVolumeML: 250,
				DesiredDose: 5, DesiredUnit: DoseRateUnit{Mass: units.Micrograms, PerKg: true, PerMinute: true},
				PatientWeight: 70, WeightUnit: units.Kilograms,
			},
			flowRate: 13.125, concentration: 1600, concUnit: "mcg/mL", dosePerHour: 21000,
		},
		{
			name: "units/hr",
			req: DoseRateRequest{
				DrugAmount: 25000, DrugUnit: units.Units, BagVolumeML: 500,
				DesiredDose: 1000, DesiredUnit: DoseRateUnit{Mass: units.Units},
			},
			flowRate: 20, concentration: 50, concUnit: "units/mL", dosePerHour: 1000,
		},
		{
			name: "mg/min from mg bag",
			req: DoseRateRequest{
				DrugAmount: 900, DrugUnit: units.Milligrams, BagVolumeML: 500,
				DesiredDose: 1, DesiredUnit: DoseRateUnit{Mass: units.Milligrams, PerMinute: true},
			},
			flowRate: 100.0 / 3, concentration: 1.8, concUnit: "mg/mL", dosePerHour: 60,
		},
		{
			name: "mg dose from mcg bag is labelled by dose unit",
			req: DoseRateRequest{
				DrugAmount: 50000, DrugUnit: units.Micrograms, BagVolumeML: 100,
				DesiredDose: 1, DesiredUnit: DoseRateUnit{Mass: units.Milligrams},
			},
			flowRate: 2, concentration: 0.5, concUnit: "mg/mL", dosePerHour: 1,
		},
		{
			name: "per kg in pounds",
			req: DoseRateRequest{
				DrugAmount: 1, DrugUnit: units.Grams, BagVolumeML: 100,
				DesiredDose: 1, DesiredUnit: DoseRateUnit{Mass: units.Milligrams, PerKg: true},
				PatientWeight: 100, WeightUnit: units.Pounds,
			},
			flowRate: 100 * units.KgPerPound / 10, concentration: 10, concUnit: "mg/mL", dosePerHour: 100 * units.KgPerPound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeDoseBasedRate(tt.req)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !approx(res.FlowRateMLPerHr, tt.flowRate) {
				t.Errorf("Expected flow rate %v, got %v", tt.flowRate, res.FlowRateMLPerHr)
			}
			if !approx(res.Concentration, tt.concentration) || res.ConcentrationUnit != tt.concUnit {
				t.Errorf("Expected %v %s, got %v %s", tt.concentration, tt.concUnit, res.Concentration, res.ConcentrationUnit)
			}
			if !approx(res.DosePerHour, tt.dosePerHour) {
				t.Errorf("Expected %v per hour, got %v", tt.dosePerHour, res.DosePerHour)
			}
			if !approx(res.DurationHours, tt.req.BagVolumeML/tt.flowRate) {
				t.Errorf("Expected duration %v, got %v", tt.req.BagVolumeML/tt.flowRate, res.DurationHours)
			}
		})
	}
}

func TestComputeDoseBasedRateInvalid(t *testing.T) {
	perKg := DoseRateUnit{Mass: units.Micrograms, PerKg: true, PerMinute: true}

	tests := []struct {
		name string
		req  DoseRateRequest
	}{
		{"zero amount", DoseRateRequest{DrugAmount: 0, DrugUnit: units.Milligrams, BagVolumeML: 250, DesiredDose: 5, DesiredUnit: perKg, PatientWeight: 70}},
		{"zero volume", DoseRateRequest{DrugAmount: 400, DrugUnit: units.Milligrams, BagVolumeML: 0, DesiredDose: 5, DesiredUnit: perKg, PatientWeight: 70}},
		{"zero dose", DoseRateRequest{DrugAmount: 400, DrugUnit: units.Milligrams, BagVolumeML: 250, DesiredDose: 0, DesiredUnit: perKg, PatientWeight: 70}},
		{"missing weight", DoseRateRequest{DrugAmount: 400, DrugUnit: units.Milligrams, BagVolumeML: 250, DesiredDose: 5, DesiredUnit: perKg}},
		{"units vs mass", DoseRateRequest{DrugAmount: 400, DrugUnit: units.Units, BagVolumeML: 250, DesiredDose: 5, DesiredUnit: perKg, PatientWeight: 70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeDoseBasedRate(tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

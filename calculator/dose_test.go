package calculator

import (
	"errors"
	"testing"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/units"
)

var testCatalog *catalog.Catalog

func medication(t *testing.T, id string) *catalog.Medication {
	t.Helper()
	if testCatalog == nil {
		c, err := catalog.Load()
		if err != nil {
			t.Fatalf("Failed to load catalog: %v", err)
		}
		testCatalog = c
	}
	med, ok := testCatalog.Medication(id)
	if !ok {
		t.Fatalf("Medication %q not in catalog", id)
	}
	return med
}

func ptr(v float64) *float64 { return &v }

func TestComputeWeightBasedDose(t *testing.T) {
	res, err := ComputeWeightBasedDose(WeightDoseRequest{
		Weight:          20,
		WeightUnit:      units.Kilograms,
		DosePerKg:       15,
		DoseUnit:        "mg/kg",
		FrequencyPerDay: 4,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 300 || res.DailyDose != 1200 {
		t.Errorf("Expected 300/1200, got %v/%v", res.SingleDose, res.DailyDose)
	}
	if res.DoseUnit != "mg" {
		t.Errorf("Expected unit mg, got %q", res.DoseUnit)
	}
}

func TestComputeWeightBasedDoseConvertsPoundsOnly(t *testing.T) {
	kg, err := ComputeWeightBasedDose(WeightDoseRequest{Weight: 44, WeightUnit: units.Kilograms, DosePerKg: 1, DoseUnit: "mg/kg", FrequencyPerDay: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if kg.WeightKg != 44 {
		t.Errorf("Kilogram weight must not be converted, got %v", kg.WeightKg)
	}

	lb, err := ComputeWeightBasedDose(WeightDoseRequest{Weight: 44, WeightUnit: units.Pounds, DosePerKg: 1, DoseUnit: "mg/kg", FrequencyPerDay: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(lb.WeightKg, 44*units.KgPerPound) {
		t.Errorf("Expected %v kg, got %v", 44*units.KgPerPound, lb.WeightKg)
	}
}

func TestComputeWeightBasedDoseInvalid(t *testing.T) {
	valid := WeightDoseRequest{Weight: 10, WeightUnit: units.Kilograms, DosePerKg: 5, DoseUnit: "mg/kg", FrequencyPerDay: 2}

	tests := []struct {
		name   string
		mutate func(*WeightDoseRequest)
		field  string
	}{
		{"zero weight", func(r *WeightDoseRequest) { r.Weight = 0 }, "weight"},
		{"negative dose", func(r *WeightDoseRequest) { r.DosePerKg = -1 }, "dose per kg"},
		{"zero frequency", func(r *WeightDoseRequest) { r.FrequencyPerDay = 0 }, "frequency"},
		{"unknown weight unit", func(r *WeightDoseRequest) { r.WeightUnit = "stone" }, "weight unit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := ComputeWeightBasedDose(req)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Expected InputError, got %v", err)
			}
			if inputErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, inputErr.Field)
			}
		})
	}
}

func TestCatalogDoseCeftriaxoneSevereAdult(t *testing.T) {
	res, err := ComputeCatalogDose(medication(t, "ceftriaxone"), CatalogDoseRequest{
		Tier:       catalog.Adult,
		Weight:     70,
		WeightUnit: units.Kilograms,
		Renal:      catalog.RenalNormal,
		Indication: IndicationSevere,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 2000 || res.DoseUnit != "mg" {
		t.Errorf("Expected 2000 mg, got %v %s", res.SingleDose, res.DoseUnit)
	}
	if res.Frequency != "Q12-24H" {
		t.Errorf("Expected Q12-24H, got %q", res.Frequency)
	}
	if res.Override == nil {
		t.Error("Expected override to be reported")
	}
	if res.DailyTotal != 2000 {
		t.Errorf("Expected daily total 2000, got %v", res.DailyTotal)
	}
}

func TestCatalogDoseOverrides(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		tier       catalog.AgeTier
		weight     float64
		indication Indication
		single     float64
		frequency  string
		overridden bool
	}{
		{"ceftriaxone standard adult", "ceftriaxone", catalog.Adult, 70, IndicationStandard, 1, "Q24H", false},
		{"ceftriaxone meningitis adult", "ceftriaxone", catalog.Adult, 70, IndicationMeningitis, 2000, "Q12H", true},
		{"ceftriaxone meningitis child", "ceftriaxone", catalog.Pediatric, 30, IndicationMeningitis, 3000, "Q12H", true},
		{"ceftriaxone severe child capped", "ceftriaxone", catalog.Pediatric, 55, IndicationSevere, 4000, "Q12-24H", true},
		{"meropenem severe adult", "meropenem", catalog.Adult, 0, IndicationSevere, 2000, "Q8H", true},
		{"meropenem severe child", "meropenem", catalog.Pediatric, 20, IndicationSevere, 800, "Q8H", true},
		{"meropenem severe child capped", "meropenem", catalog.Pediatric, 60, IndicationSevere, 2000, "Q8H", true},
		{"meropenem-extended severe neonate", "meropenem-extended", catalog.Neonate, 3, IndicationSevere, 120, "Q8H", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeCatalogDose(medication(t, tt.id), CatalogDoseRequest{
				Tier:       tt.tier,
				Weight:     tt.weight,
				WeightUnit: units.Kilograms,
				Indication: tt.indication,
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !approx(res.SingleDose, tt.single) {
				t.Errorf("Expected single dose %v, got %v", tt.single, res.SingleDose)
			}
			if res.Frequency != tt.frequency {
				t.Errorf("Expected frequency %q, got %q", tt.frequency, res.Frequency)
			}
			if (res.Override != nil) != tt.overridden {
				t.Errorf("Expected overridden=%v, got %+v", tt.overridden, res.Override)
			}
		})
	}
}

func TestCatalogDoseOverrideLimits(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		tier         catalog.AgeTier
		weight       float64
		indication   Indication
		doseUnit     string
		maxDailyUnit string
		capped       bool
	}{
		{"standard adult rule", "ceftriaxone", catalog.Adult, 70, IndicationStandard, "g", "g", false},
		{"severe adult override", "ceftriaxone", catalog.Adult, 70, IndicationSevere, "mg", "g", false},
		{"standard child capped", "ceftriaxone", catalog.Pediatric, 55, IndicationStandard, "mg", "mg", true},
		{"severe child override", "ceftriaxone", catalog.Pediatric, 55, IndicationSevere, "mg", "mg", false},
		{"severe meropenem override", "meropenem", catalog.Adult, 0, IndicationSevere, "mg", "g", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeCatalogDose(medication(t, tt.id), CatalogDoseRequest{
				Tier:       tt.tier,
				Weight:     tt.weight,
				WeightUnit: units.Kilograms,
				Indication: tt.indication,
			})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.DoseUnit != tt.doseUnit {
				t.Errorf("Expected dose unit %q, got %q", tt.doseUnit, res.DoseUnit)
			}
			if res.MaxDailyUnit != tt.maxDailyUnit {
				t.Errorf("Expected max daily unit %q, got %q", tt.maxDailyUnit, res.MaxDailyUnit)
			}
			if res.Capped != tt.capped {
				t.Errorf("Expected capped=%v, got %v", tt.capped, res.Capped)
			}
		})
	}
}

func TestCatalogDoseOverrideNeedsWeight(t *testing.T) {
	_, err := ComputeCatalogDose(medication(t, "ceftriaxone"), CatalogDoseRequest{
		Tier:       catalog.Pediatric,
		Indication: IndicationSevere,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestCatalogDoseWithoutOverrides(t *testing.T) {
	calc := NewDoseCalculator(nil)
	res, err := calc.ComputeCatalogDose(medication(t, "ceftriaxone"), CatalogDoseRequest{
		Tier:       catalog.Adult,
		Indication: IndicationSevere,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 1 || res.DoseUnit != "g" || res.Override != nil {
		t.Errorf("Expected the plain 1 g rule, got %+v", res)
	}
}

func TestCatalogDoseCustomOverride(t *testing.T) {
	table := OverrideTable{
		"vancomycin": func(ctx OverrideContext) (OverrideDose, bool, error) {
			return OverrideDose{SingleDose: ctx.WeightKg * 20, DoseUnit: "mg", Frequency: "Q8H"}, ctx.Indication == IndicationMeningitis, nil
		},
	}
	res, err := NewDoseCalculator(table).ComputeCatalogDose(medication(t, "vancomycin"), CatalogDoseRequest{
		Tier:       catalog.Adult,
		Weight:     50,
		Indication: IndicationMeningitis,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 1000 || res.DailyTotal != 3000 {
		t.Errorf("Expected 1000/3000, got %v/%v", res.SingleDose, res.DailyTotal)
	}
}

func TestCatalogDoseWeightBased(t *testing.T) {
	res, err := ComputeCatalogDose(medication(t, "vancomycin"), CatalogDoseRequest{
		Tier:       catalog.Adult,
		Weight:     80,
		WeightUnit: units.Kilograms,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 1200 || res.DailyTotal != 2400 || res.Capped {
		t.Errorf("Expected uncapped 1200/2400, got %+v", res)
	}
	if res.DoseUnit != "mg" || res.RuleUnit != "mg/kg" {
		t.Errorf("Unexpected units %q/%q", res.DoseUnit, res.RuleUnit)
	}
	if res.WeightKg == nil || *res.WeightKg != 80 {
		t.Errorf("Expected weight 80 kg, got %v", res.WeightKg)
	}
	if len(res.Warnings) == 0 {
		t.Error("Expected medication warnings to be copied")
	}
}

func TestCatalogDosePounds(t *testing.T) {
	res, err := ComputeCatalogDose(medication(t, "vancomycin"), CatalogDoseRequest{
		Tier:       catalog.Adult,
		Weight:     100,
		WeightUnit: units.Pounds,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(res.SingleDose, 100*units.KgPerPound*15) {
		t.Errorf("Expected %v, got %v", 100*units.KgPerPound*15, res.SingleDose)
	}
}

func TestCatalogDoseCap(t *testing.T) {
	// 40 kg x 15 mg/kg Q6H = 2400 mg/day against a 2000 mg cap.
	res, err := ComputeCatalogDose(medication(t, "vancomycin"), CatalogDoseRequest{
		Tier:   catalog.Pediatric,
		Weight: 40,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Capped {
		t.Error("Expected dose to be capped")
	}
	if !approx(res.SingleDose, 500) || !approx(res.DailyTotal, 2000) {
		t.Errorf("Expected 500/2000, got %v/%v", res.SingleDose, res.DailyTotal)
	}
}

func TestCatalogDoseCapMonotonic(t *testing.T) {
	med := medication(t, "vancomycin")
	for _, weight := range []float64{1, 5, 10, 20, 33.3, 40, 75, 120, 250} {
		res, err := ComputeCatalogDose(med, CatalogDoseRequest{Tier: catalog.Pediatric, Weight: weight})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.SingleDose*DosesPerDay("Q6H") > *res.MaxDaily+tolerance {
			t.Errorf("weight %v: %v/day exceeds cap %v", weight, res.SingleDose*4, *res.MaxDaily)
		}
	}
}

func TestCatalogDoseCapUsesRuleFrequency(t *testing.T) {
	// 150 kg x 15 mg/kg Q12H = 4500 mg/day, capped to 2000 mg per dose; the renal
	// frequency only changes the reported daily total.
	res, err := ComputeCatalogDose(medication(t, "vancomycin"), CatalogDoseRequest{
		Tier:   catalog.Adult,
		Weight: 150,
		Renal:  catalog.RenalSevere,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Capped || res.SingleDose != 2000 {
		t.Errorf("Expected capped 2000, got %+v", res)
	}
	if res.Frequency != "Q48H" || res.DailyTotal != 1000 {
		t.Errorf("Expected Q48H/1000, got %q/%v", res.Frequency, res.DailyTotal)
	}
}

func TestCatalogDoseFixed(t *testing.T) {
	res, err := ComputeCatalogDose(medication(t, "acetaminophen"), CatalogDoseRequest{Tier: catalog.Adult})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.SingleDose != 650 || res.DosesPerDay != 6 || res.DailyTotal != 3900 {
		t.Errorf("Expected 650 x6 = 3900, got %+v", res)
	}
	if res.WeightKg != nil {
		t.Errorf("Expected no weight, got %v", *res.WeightKg)
	}
}

func TestCatalogDoseRenal(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		renal     catalog.RenalTier
		frequency string
		advisory  bool
	}{
		{"normal keeps rule", "acetaminophen", catalog.RenalNormal, "Q4-6H (max 4g/day)", false},
		{"severe adjusts", "acetaminophen", catalog.RenalSevere, "Q8H", true},
		{"mild no change label", "acetaminophen", catalog.RenalMild, "No change", true},
		{"not adjustable", "ceftriaxone", catalog.RenalESRD, "Q24H", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeCatalogDose(medication(t, tt.id), CatalogDoseRequest{Tier: catalog.Adult, Renal: tt.renal})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if res.Frequency != tt.frequency {
				t.Errorf("Expected frequency %q, got %q", tt.frequency, res.Frequency)
			}
			if (res.Renal != nil) != tt.advisory {
				t.Errorf("Expected advisory=%v, got %+v", tt.advisory, res.Renal)
			}
		})
	}
}

func TestCatalogDoseRenalKeepsDose(t *testing.T) {
	normal, err := ComputeCatalogDose(medication(t, "acetaminophen"), CatalogDoseRequest{Tier: catalog.Adult})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	severe, err := ComputeCatalogDose(medication(t, "acetaminophen"), CatalogDoseRequest{Tier: catalog.Adult, Renal: catalog.RenalSevere})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if normal.SingleDose != severe.SingleDose {
		t.Errorf("Renal adjustment must not change the single dose: %v vs %v", normal.SingleDose, severe.SingleDose)
	}
	if severe.DailyTotal != 650*3 {
		t.Errorf("Expected daily total from adjusted frequency, got %v", severe.DailyTotal)
	}
}

func TestCatalogDoseNotEstablished(t *testing.T) {
	_, err := ComputeCatalogDose(medication(t, "ibuprofen"), CatalogDoseRequest{Tier: catalog.Neonate, Weight: 3})

	var notEstablished *NotEstablishedError
	if !errors.As(err, &notEstablished) {
		t.Fatalf("Expected NotEstablishedError, got %v", err)
	}
	if notEstablished.MedicationID != "ibuprofen" || notEstablished.Tier != catalog.Neonate {
		t.Errorf("Unexpected error details %+v", notEstablished)
	}
	if KindOf(err) != KindDosingNotEstablished {
		t.Errorf("Unexpected kind %q", KindOf(err))
	}
}

func TestCatalogDoseInvalid(t *testing.T) {
	tests := []struct {
		name string
		med  *catalog.Medication
		req  CatalogDoseRequest
	}{
		{"nil medication", nil, CatalogDoseRequest{Tier: catalog.Adult}},
		{"missing weight", medication(t, "vancomycin"), CatalogDoseRequest{Tier: catalog.Adult}},
		{"negative weight", medication(t, "vancomycin"), CatalogDoseRequest{Tier: catalog.Adult, Weight: -3}},
		{"unknown unit", medication(t, "vancomycin"), CatalogDoseRequest{Tier: catalog.Adult, Weight: 70, WeightUnit: "st"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ComputeCatalogDose(tt.med, tt.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
			if res != nil {
				t.Errorf("Expected no partial result, got %+v", res)
			}
		})
	}
}

func TestCatalogDoseSynthetic(t *testing.T) {
	med := &catalog.Medication{
		ID:   "test-drug",
		Name: "Test Drug",
		Dosing: catalog.Dosing{
			Adult: &catalog.DoseRule{Amount: ptr(10), Unit: "mg", Frequency: "Q6H", MaxDaily: ptr(20), Fixed: true},
		},
	}
	res, err := ComputeCatalogDose(med, CatalogDoseRequest{Tier: catalog.Adult})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Capped || res.SingleDose != 5 {
		t.Errorf("Expected fixed dose capped to 5, got %+v", res)
	}
	if res.Warnings == nil {
		t.Error("Expected an empty warnings slice, not nil")
	}
}

func TestParseIndication(t *testing.T) {
	for in, want := range map[string]Indication{"": IndicationStandard, "Severe": IndicationSevere, " meningitis ": IndicationMeningitis} {
		got, err := ParseIndication(in)
		if err != nil || got != want {
			t.Errorf("ParseIndication(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseIndication("sepsis"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

package handlers

import (
	"fmt"
	"net/http"

	"github.com/giygas/medcalc-api/calculator"
	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/metrics"
	"github.com/giygas/medcalc-api/units"
)

// Operation labels used in metrics
const (
	opWeightDose     = "dose_weight"
	opCatalogDose    = "dose_catalog"
	opVolumeRate     = "infusion_volume"
	opDoseRate       = "infusion_dose"
	opDilution       = "dilution"
	opReconstitution = "reconstitution"

	// outcomeNotFound counts catalog doses for an unknown medication
	outcomeNotFound = "not_found"
)

// WeightDoseBody is the JSON body of POST /v1/dose/weight
type WeightDoseBody struct {
	Weight          float64 `json:"weight"`
	WeightUnit      string  `json:"weight_unit"`
	DosePerKg       float64 `json:"dose_per_kg"`
	DoseUnit        string  `json:"dose_unit"`
	FrequencyPerDay float64 `json:"frequency_per_day"`
}

// CatalogDoseBody is the JSON body of POST /v1/dose/catalog
type CatalogDoseBody struct {
	MedicationID string  `json:"medication_id"`
	AgeTier      string  `json:"age_tier"`
	Weight       float64 `json:"weight"`
	WeightUnit   string  `json:"weight_unit"`
	Renal        string  `json:"renal"`
	Indication   string  `json:"indication"`
}

// VolumeRateBody is the JSON body of POST /v1/infusion/volume
type VolumeRateBody struct {
	VolumeML   float64 `json:"volume_ml"`
	Time       float64 `json:"time"`
	TimeUnit   string  `json:"time_unit"`
	DropFactor float64 `json:"drop_factor"`
}

// DoseRateBody is the JSON body of POST /v1/infusion/dose
type DoseRateBody struct {
	DrugAmount  float64 `json:"drug_amount"`
	DrugUnit    string  `json:"drug_unit"`
	BagVolumeML float64 `json:"bag_volume_ml"`
	Dose        float64 `json:"dose"`
	DoseUnit    string  `json:"dose_unit"`
	Weight      float64 `json:"weight"`
	WeightUnit  string  `json:"weight_unit"`
}

// DilutionBody is the JSON body of POST /v1/dilution
type DilutionBody struct {
	StockConcentration  float64 `json:"stock_concentration"`
	StockUnit           string  `json:"stock_unit"`
	TargetConcentration float64 `json:"target_concentration"`
	TargetUnit          string  `json:"target_unit"`
	FinalVolumeML       float64 `json:"final_volume_ml"`
}

// ReconstitutionBody is the JSON body of POST /v1/dilution/reconstitution
type ReconstitutionBody struct {
	PowderAmount    float64 `json:"powder_amount"`
	PowderUnit      string  `json:"powder_unit"`
	DiluentVolumeML float64 `json:"diluent_volume_ml"`
	DesiredDose     float64 `json:"desired_dose"`
	DesiredUnit     string  `json:"desired_unit"`
}

// unitError turns a unit parsing failure into an input error of the named field
func unitError(field string, err error) error {
	return &calculator.InputError{Field: field, Reason: err.Error()}
}

func amountWithUnit(v float64, unit string) string {
	if unit == "" {
		return units.FormatNumber(v)
	}
	return units.FormatNumber(v) + " " + unit
}

// WeightDose computes a free-form weight-based dose
func (h *HTTPHandlerImpl) WeightDose(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	var body WeightDoseBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opWeightDose, id, err)
		return
	}

	weightUnit, err := units.ParseWeightUnit(body.WeightUnit)
	if err != nil {
		h.respondWithCalculationError(w, opWeightDose, id, unitError("weight unit", err))
		return
	}

	result, err := calculator.ComputeWeightBasedDose(calculator.WeightDoseRequest{
		Weight:          body.Weight,
		WeightUnit:      weightUnit,
		DosePerKg:       body.DosePerKg,
		DoseUnit:        body.DoseUnit,
		FrequencyPerDay: body.FrequencyPerDay,
	})
	if err != nil {
		h.respondWithCalculationError(w, opWeightDose, id, err)
		return
	}

	h.respondWithCalculation(w, opWeightDose, id, result, map[string]string{
		"single_dose": amountWithUnit(result.SingleDose, result.DoseUnit),
		"daily_dose":  amountWithUnit(result.DailyDose, result.DoseUnit) + "/day",
		"weight":      amountWithUnit(result.WeightKg, "kg"),
	})
}

// CatalogDose computes the dose of a catalog medication for a patient
func (h *HTTPHandlerImpl) CatalogDose(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	cat, ok := h.catalogReady(w)
	if !ok {
		return
	}

	var body CatalogDoseBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, err)
		return
	}

	medID, err := h.validator.ValidateMedicationID(body.MedicationID)
	if err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, &calculator.InputError{Field: "medication_id", Reason: err.Error()})
		return
	}
	med, found := cat.Medication(medID)
	if !found {
		metrics.RecordCalculation(opCatalogDose, outcomeNotFound)
		h.RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}

	req := calculator.CatalogDoseRequest{Weight: body.Weight}
	if req.Tier, err = catalog.ParseAgeTier(body.AgeTier); err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, &calculator.InputError{Field: "age_tier", Reason: err.Error()})
		return
	}
	if req.Renal, err = catalog.ParseRenalTier(body.Renal); err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, &calculator.InputError{Field: "renal", Reason: err.Error()})
		return
	}
	if req.Indication, err = calculator.ParseIndication(body.Indication); err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, err)
		return
	}
	if req.WeightUnit, err = units.ParseWeightUnit(body.WeightUnit); err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, unitError("weight unit", err))
		return
	}

	result, err := h.doses.ComputeCatalogDose(med, req)
	if err != nil {
		h.respondWithCalculationError(w, opCatalogDose, id, err)
		return
	}

	display := map[string]string{
		"single_dose": amountWithUnit(result.SingleDose, result.DoseUnit),
		"frequency":   result.Frequency,
		"daily_total": amountWithUnit(result.DailyTotal, result.DoseUnit) + "/day",
	}
	if result.MaxDaily != nil {
		display["max_daily"] = amountWithUnit(*result.MaxDaily, result.MaxDailyUnit) + "/day"
	}
	if result.WeightKg != nil {
		display["weight"] = amountWithUnit(*result.WeightKg, "kg")
	}

	h.respondWithCalculation(w, opCatalogDose, id, result, display)
}

// VolumeRate computes the pump and drip rates of a volume over a time
func (h *HTTPHandlerImpl) VolumeRate(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	var body VolumeRateBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opVolumeRate, id, err)
		return
	}

	timeUnit, err := units.ParseTimeUnit(body.TimeUnit)
	if err != nil {
		h.respondWithCalculationError(w, opVolumeRate, id, unitError("time unit", err))
		return
	}

	result, err := calculator.ComputeVolumeBasedRate(calculator.VolumeRateRequest{
		TotalVolumeML: body.VolumeML,
		InfusionTime:  body.Time,
		TimeUnit:      timeUnit,
		DropFactor:    body.DropFactor,
	})
	if err != nil {
		h.respondWithCalculationError(w, opVolumeRate, id, err)
		return
	}

	h.respondWithCalculation(w, opVolumeRate, id, VolumeRateResponse{
		VolumeRateResult:   *result,
		RoundedDropsPerMin: result.RoundedDropsPerMin(),
	}, map[string]string{
		"flow_rate":    amountWithUnit(result.FlowRateMLPerHr, "mL/hr"),
		"drip_rate":    fmt.Sprintf("%d gtt/min", result.RoundedDropsPerMin()),
		"exact_drops":  amountWithUnit(result.DropsPerMin, "gtt/min"),
		"duration":     units.FormatDuration(result.DurationHours),
		"total_volume": amountWithUnit(body.VolumeML, "mL"),
		"drop_factor":  amountWithUnit(body.DropFactor, "gtt/mL"),
	})
}

// VolumeRateResponse adds the rounded drip rate to a volume rate result
type VolumeRateResponse struct {
	calculator.VolumeRateResult
	RoundedDropsPerMin int `json:"rounded_drops_per_min"`
}

// DoseRate computes the pump rate delivering a dose rate from a prepared bag
func (h *HTTPHandlerImpl) DoseRate(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	var body DoseRateBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opDoseRate, id, err)
		return
	}

	drugUnit, err := units.ParseMassUnit(body.DrugUnit)
	if err != nil {
		h.respondWithCalculationError(w, opDoseRate, id, unitError("drug unit", err))
		return
	}
	doseUnit, err := calculator.ParseDoseRateUnit(body.DoseUnit)
	if err != nil {
		h.respondWithCalculationError(w, opDoseRate, id, err)
		return
	}
	weightUnit, err := units.ParseWeightUnit(body.WeightUnit)
	if err != nil {
		h.respondWithCalculationError(w, opDoseRate, id, unitError("weight unit", err))
		return
	}

	result, err := calculator.ComputeDoseBasedRate(calculator.DoseRateRequest{
		DrugAmount:    body.DrugAmount,
		DrugUnit:      drugUnit,
		BagVolumeML:   body.BagVolumeML,
		DesiredDose:   body.Dose,
		DesiredUnit:   doseUnit,
		PatientWeight: body.Weight,
		WeightUnit:    weightUnit,
	})
	if err != nil {
		h.respondWithCalculationError(w, opDoseRate, id, err)
		return
	}

	h.respondWithCalculation(w, opDoseRate, id, result, map[string]string{
		"flow_rate":     amountWithUnit(result.FlowRateMLPerHr, "mL/hr"),
		"concentration": amountWithUnit(result.Concentration, result.ConcentrationUnit),
		"dose_per_hour": amountWithUnit(result.DosePerHour, result.DosePerHourUnit),
		"duration":      units.FormatDuration(result.DurationHours),
	})
}

// Dilution computes the stock and diluent volumes reaching a target concentration
func (h *HTTPHandlerImpl) Dilution(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	var body DilutionBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opDilution, id, err)
		return
	}

	stockUnit, err := units.ParseConcentrationUnit(body.StockUnit)
	if err != nil {
		h.respondWithCalculationError(w, opDilution, id, unitError("stock unit", err))
		return
	}
	targetUnit, err := units.ParseConcentrationUnit(body.TargetUnit)
	if err != nil {
		h.respondWithCalculationError(w, opDilution, id, unitError("target unit", err))
		return
	}

	result, err := calculator.ComputeDilution(calculator.DilutionRequest{
		StockConc:     body.StockConcentration,
		StockUnit:     stockUnit,
		TargetConc:    body.TargetConcentration,
		TargetUnit:    targetUnit,
		FinalVolumeML: body.FinalVolumeML,
	})
	if err != nil {
		h.respondWithCalculationError(w, opDilution, id, err)
		return
	}

	h.respondWithCalculation(w, opDilution, id, result, map[string]string{
		"stock_volume":        amountWithUnit(result.StockVolumeML, "mL"),
		"diluent_volume":      amountWithUnit(result.DiluentVolumeML, "mL"),
		"final_concentration": amountWithUnit(result.FinalConc, result.FinalConcUnit),
		"final_volume":        amountWithUnit(body.FinalVolumeML, "mL"),
	})
}

// Reconstitution computes the concentration of a reconstituted vial and the volume to draw
func (h *HTTPHandlerImpl) Reconstitution(w http.ResponseWriter, r *http.Request) {
	id := newCalculationID(w)

	var body ReconstitutionBody
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithCalculationError(w, opReconstitution, id, err)
		return
	}

	powderUnit, err := units.ParseMassUnit(body.PowderUnit)
	if err != nil {
		h.respondWithCalculationError(w, opReconstitution, id, unitError("powder unit", err))
		return
	}
	desiredUnit, err := units.ParseMassUnit(body.DesiredUnit)
	if err != nil {
		h.respondWithCalculationError(w, opReconstitution, id, unitError("desired unit", err))
		return
	}

	result, err := calculator.ComputeReconstitution(calculator.ReconstitutionRequest{
		PowderAmount:    body.PowderAmount,
		PowderUnit:      powderUnit,
		DiluentVolumeML: body.DiluentVolumeML,
		DesiredDose:     body.DesiredDose,
		DesiredUnit:     desiredUnit,
	})
	if err != nil {
		h.respondWithCalculationError(w, opReconstitution, id, err)
		return
	}

	h.respondWithCalculation(w, opReconstitution, id, result, map[string]string{
		"concentration":   amountWithUnit(result.FinalConcentration, result.ConcentrationUnit),
		"volume_to_draw":  amountWithUnit(result.VolumeToDrawML, "mL"),
		"max_deliverable": amountWithUnit(result.MaxDeliverable, result.AmountUnit),
	})
}

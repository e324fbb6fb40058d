// Package handlers provides the JSON HTTP endpoints of the medication calculator API.
// Handlers decode requests, call the calculator and search engine and map engine errors to
// HTTP status codes; they hold no clinical logic of their own.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/medcalc-api/calculator"
	"github.com/giygas/medcalc-api/interfaces"
	"github.com/giygas/medcalc-api/logging"
	"github.com/giygas/medcalc-api/metrics"
	"github.com/google/uuid"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore interfaces.CatalogStore
	validator interfaces.CatalogValidator
	health    interfaces.HealthChecker
	doses     *calculator.DoseCalculator
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies. Catalog doses use the
// built-in indication override table.
func NewHTTPHandler(dataStore interfaces.CatalogStore, validator interfaces.CatalogValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore: dataStore,
		validator: validator,
		health:    health,
		doses:     calculator.NewDoseCalculator(calculator.DefaultOverrides()),
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error              string          `json:"error"`
	Message            string          `json:"message"`
	Code               int             `json:"code"`
	Kind               calculator.Kind `json:"kind,omitempty"`
	CalculationID      string          `json:"calculation_id,omitempty"`
	MaxDeliverable     *float64        `json:"max_deliverable,omitempty"`
	MaxDeliverableUnit string          `json:"max_deliverable_unit,omitempty"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// statusForKind maps a calculator error kind to its HTTP status
func statusForKind(kind calculator.Kind) int {
	switch kind {
	case calculator.KindInvalidInput:
		return http.StatusBadRequest
	case calculator.KindDosingNotEstablished, calculator.KindInfeasibleDilution, calculator.KindDoseExceedsAvailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondWithCalculationError records the failed calculation and writes the mapped error
func (h *HTTPHandlerImpl) respondWithCalculationError(w http.ResponseWriter, operation, calculationID string, err error) {
	kind := calculator.KindOf(err)
	metrics.RecordCalculation(operation, string(kind))

	code := statusForKind(kind)
	resp := ErrorResponse{
		Error:         http.StatusText(code),
		Message:       err.Error(),
		Code:          code,
		Kind:          kind,
		CalculationID: calculationID,
	}

	if code == http.StatusInternalServerError {
		logging.Error("Calculation failed", "operation", operation, "calculation_id", calculationID, "error", err)
		resp.Message = "Internal error"
	}

	var exceeds *calculator.DoseExceedsAvailableError
	if errors.As(err, &exceeds) {
		resp.MaxDeliverable = &exceeds.MaxDeliverable
		resp.MaxDeliverableUnit = exceeds.Unit
	}

	h.RespondWithJSON(w, code, resp)
}

// CalculationResponse wraps every successful calculation
type CalculationResponse struct {
	CalculationID string            `json:"calculation_id"`
	Result        any               `json:"result"`
	Display       map[string]string `json:"display"`
}

// respondWithCalculation records the successful calculation and writes its result
func (h *HTTPHandlerImpl) respondWithCalculation(w http.ResponseWriter, operation, calculationID string, result any, display map[string]string) {
	metrics.RecordCalculation(operation, "")
	w.Header().Set("Cache-Control", "no-store")
	h.RespondWithJSON(w, http.StatusOK, CalculationResponse{
		CalculationID: calculationID,
		Result:        result,
		Display:       display,
	})
}

// newCalculationID allocates the id of one calculation and exposes it to the access log
func newCalculationID(w http.ResponseWriter) string {
	id := uuid.NewString()
	w.Header().Set(logging.CalculationIDHeader, id)
	return id
}

// decodeJSON decodes a request body strictly. Failures are input errors.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return &calculator.InputError{Field: "body", Reason: "is required"}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &calculator.InputError{Field: "body", Reason: "is required"}
		case errors.As(err, &tooLarge):
			return &calculator.InputError{Field: "body", Reason: fmt.Sprintf("exceeds %d bytes", tooLarge.Limit)}
		default:
			return &calculator.InputError{Field: "body", Reason: err.Error()}
		}
	}

	if dec.More() {
		return &calculator.InputError{Field: "body", Reason: "must contain a single JSON object"}
	}
	return nil
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.health.HealthCheck()

	var uptime time.Duration
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime = time.Since(start)
	}

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

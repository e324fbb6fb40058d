// Package health provides health checking functionality for the medication calculator API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/medcalc-api/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore     interfaces.CatalogStore
	auditInterval time.Duration
}

// NewHealthChecker creates a new health checker. auditInterval is the period of the catalog
// audit job; audits older than three periods mark the service as degraded.
func NewHealthChecker(dataStore interfaces.CatalogStore, auditInterval time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore:     dataStore,
		auditInterval: auditInterval,
	}
}

// HealthCheck returns the health status, its details and the HTTP status of the /health endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	cat := h.dataStore.GetCatalog()
	report := h.dataStore.GetQualityReport()
	lastAudit := h.dataStore.GetLastAudit()
	isAuditing := h.dataStore.IsAuditing()

	auditAge := time.Since(lastAudit)

	switch {
	case cat == nil || cat.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case report != nil && report.InvalidDoseRules > 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case lastAudit.IsZero() || auditAge > 3*h.auditInterval:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isAuditing && auditAge > 2*h.auditInterval:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"is_auditing":    isAuditing,
		"quality_issues": report.IssueCount(),
	}

	if cat != nil {
		stats := cat.Stats()
		data["catalog_version"] = cat.Version()
		data["medications"] = stats.Medications
		data["with_reference"] = stats.WithReference
		data["categories"] = stats.Categories
		data["loaded_at"] = h.dataStore.GetLoadedAt().Format(time.RFC3339)
	}

	if !lastAudit.IsZero() {
		data["last_audit"] = lastAudit.Format(time.RFC3339)
		data["audit_age_minutes"] = math.Round(auditAge.Minutes()*10) / 10
		data["next_audit"] = h.NextAudit().Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// NextAudit returns when the next audit is due. Before the first audit it is due now.
func (h *HealthCheckerImpl) NextAudit() time.Time {
	lastAudit := h.dataStore.GetLastAudit()
	if lastAudit.IsZero() {
		return time.Now()
	}
	return lastAudit.Add(h.auditInterval)
}

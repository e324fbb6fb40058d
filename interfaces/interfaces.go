// Package interfaces defines core abstractions for the medication calculator API
// to improve testability and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/search"
)

// DataQualityReport summarizes data quality findings of a catalog audit. Findings are not
// integrity errors: the catalog is still served when the report is not empty.
// ID lists keep at most the first 10 entries; the counts are exact.
type DataQualityReport struct {
	GeneratedAt    time.Time `json:"generated_at"`
	CatalogVersion string    `json:"catalog_version"`
	Medications    int       `json:"medications"`

	OrphanAliases []string `json:"orphan_aliases"`

	MedicationsWithoutReference    int      `json:"medications_without_reference"`
	MedicationsWithoutReferenceIDs []string `json:"medications_without_reference_ids"`

	// NotEstablished counts medications without dosing for each age tier.
	NotEstablished map[catalog.AgeTier]int `json:"not_established"`

	RenalTableIssues   int      `json:"renal_table_issues"`
	RenalTableIssueIDs []string `json:"renal_table_issue_ids"`

	InvalidDoseRules   int      `json:"invalid_dose_rules"`
	InvalidDoseRuleIDs []string `json:"invalid_dose_rule_ids"`

	// AmbiguousDoseUnits counts weight-based rules whose unit has no per-kg part (mg/m², IU...).
	// The calculators still multiply them by weight.
	AmbiguousDoseUnits   int      `json:"ambiguous_dose_units"`
	AmbiguousDoseUnitIDs []string `json:"ambiguous_dose_unit_ids"`

	UncategorizedCategories []string `json:"uncategorized_categories"`
}

// IssueCount returns the number of findings that need attention from the catalog maintainers.
// Medications without a reference and tiers without dosing are expected and are not counted.
func (r *DataQualityReport) IssueCount() int {
	if r == nil {
		return 0
	}
	return len(r.OrphanAliases) + r.RenalTableIssues + r.InvalidDoseRules + len(r.UncategorizedCategories)
}

// CatalogStore defines the contract for the process-wide catalog state.
// The catalog and its index are replaced atomically; readers never see a partial update.
type CatalogStore interface {
	// Data retrieval methods
	GetCatalog() *catalog.Catalog
	GetIndex() *search.Index
	GetQualityReport() *DataQualityReport
	GetLoadedAt() time.Time
	GetLastAudit() time.Time
	IsAuditing() bool
	GetServerStartTime() time.Time

	// Data update methods
	LoadCatalog(cat *catalog.Catalog)
	StoreQualityReport(report *DataQualityReport)
	BeginAudit() bool
	EndAudit()
}

// Scheduler defines the contract for periodic background jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	// Catalog browsing
	ServeCategories(w http.ResponseWriter, r *http.Request)
	ServeMedications(w http.ResponseWriter, r *http.Request)
	FindMedication(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
	FilterIndex(w http.ResponseWriter, r *http.Request)

	// Calculators
	WeightDose(w http.ResponseWriter, r *http.Request)
	CatalogDose(w http.ResponseWriter, r *http.Request)
	VolumeRate(w http.ResponseWriter, r *http.Request)
	DoseRate(w http.ResponseWriter, r *http.Request)
	Dilution(w http.ResponseWriter, r *http.Request)
	Reconstitution(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the current status, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// NextAudit returns when the next catalog audit is due
	NextAudit() time.Time
}

// CatalogValidator defines the contract for catalog and input validation.
type CatalogValidator interface {
	// ValidateMedication checks a single medication entry
	ValidateMedication(m *catalog.Medication) error

	// ValidateCatalog returns an error when the catalog cannot be served
	ValidateCatalog(cat *catalog.Catalog) error

	// ReportQuality generates a data quality report with all findings
	ReportQuality(cat *catalog.Catalog) *DataQualityReport

	// ValidateInput validates free text search input
	ValidateInput(input string) error

	// ValidateMedicationID validates and normalizes a medication id path parameter
	ValidateMedicationID(input string) (string, error)
}

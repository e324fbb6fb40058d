// Package scheduler runs the periodic catalog audit of the medication calculator API. Each audit
// optionally reloads the catalog from its source, validates it and stores a fresh data quality
// report; a second job warns when audits stop completing.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/interfaces"
	"github.com/giygas/medcalc-api/logging"
	"github.com/giygas/medcalc-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrAuditInProgress is returned by Audit when another audit holds the store.
var ErrAuditInProgress = errors.New("audit already in progress")

// Loader returns a freshly parsed catalog.
type Loader func() (*catalog.Catalog, error)

// Options configures the audit jobs.
type Options struct {
	// Interval between audits
	Interval time.Duration
	// Loader provides the catalog for the first audit
	Loader Loader
	// Reload calls Loader on every audit, not only the first one
	Reload bool
}

// Scheduler handles catalog audits using dependency injection
type Scheduler struct {
	dataStore interfaces.CatalogStore
	validator interfaces.CatalogValidator
	opts      Options
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.CatalogStore, validator interfaces.CatalogValidator, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Scheduler{
		dataStore: dataStore,
		validator: validator,
		opts:      opts,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start loads the catalog, runs the first audit and schedules the following ones
func (s *Scheduler) Start() error {
	if err := s.Audit(); err != nil {
		logging.Error("Failed to perform initial catalog audit", "error", err)
		return fmt.Errorf("initial catalog audit failed: %w", err)
	}

	_, err := s.scheduler.Every(s.opts.Interval).SingletonMode().WaitForSchedule().Tag("audit").Do(func() {
		if err := s.Audit(); err != nil && !errors.Is(err, ErrAuditInProgress) {
			logging.Error("Failed to audit catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog audits", "error", err)
		return fmt.Errorf("failed to schedule catalog audits: %w", err)
	}

	_, err = s.scheduler.Every(s.opts.Interval).WaitForSchedule().Tag("staleness").Do(s.checkStaleness)
	if err != nil {
		logging.Error("Failed to schedule staleness monitoring", "error", err)
		return fmt.Errorf("failed to schedule staleness monitoring: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Catalog audits scheduled", "interval", s.opts.Interval.String(), "reload", s.opts.Reload)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Audit reloads the catalog when configured to, then reports its data quality. A reload that
// fails keeps the catalog already being served; only a failure without any catalog is an error.
func (s *Scheduler) Audit() error {
	// Prevent concurrent audits
	if !s.dataStore.BeginAudit() {
		logging.Info("Audit already in progress, skipping...")
		return ErrAuditInProgress
	}
	defer s.dataStore.EndAudit()

	start := time.Now()

	cat := s.dataStore.GetCatalog()
	if cat == nil || s.opts.Reload {
		fresh, err := s.load()
		switch {
		case err != nil && cat == nil:
			return err
		case err != nil:
			logging.Error("Catalog reload failed, keeping the current catalog", "error", err, "version", cat.Version())
		default:
			s.dataStore.LoadCatalog(fresh)
			cat = fresh
			logging.Info("Catalog loaded", "version", cat.Version(), "medications", cat.Len())
		}
	}

	report := s.validator.ReportQuality(cat)

	if len(report.OrphanAliases) > 0 {
		logging.Warn("Aliases reference medications outside the catalog",
			"count", len(report.OrphanAliases),
			"ids", report.OrphanAliases,
		)
	}

	if report.AmbiguousDoseUnits > 0 {
		logging.Warn("Weight-based rules without a per-kg unit",
			"count", report.AmbiguousDoseUnits,
			"ids", report.AmbiguousDoseUnitIDs,
		)
	}

	if report.RenalTableIssues > 0 {
		logging.Warn("Renal flag and renal table disagree",
			"count", report.RenalTableIssues,
			"ids", report.RenalTableIssueIDs,
		)
	}

	s.dataStore.StoreQualityReport(report)
	recordReport(report)

	logging.Info("Catalog audit completed",
		"duration", time.Since(start).String(),
		"medications", report.Medications,
		"issues", report.IssueCount(),
	)

	return nil
}

func (s *Scheduler) load() (*catalog.Catalog, error) {
	if s.opts.Loader == nil {
		return nil, fmt.Errorf("no catalog loader configured")
	}

	cat, err := s.opts.Loader()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if err := s.validator.ValidateCatalog(cat); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return cat, nil
}

func recordReport(report *interfaces.DataQualityReport) {
	metrics.CatalogMedications.Set(float64(report.Medications))
	metrics.CatalogQualityIssues.WithLabelValues("orphan_aliases").Set(float64(len(report.OrphanAliases)))
	metrics.CatalogQualityIssues.WithLabelValues("without_reference").Set(float64(report.MedicationsWithoutReference))
	metrics.CatalogQualityIssues.WithLabelValues("renal_table").Set(float64(report.RenalTableIssues))
	metrics.CatalogQualityIssues.WithLabelValues("invalid_dose_rules").Set(float64(report.InvalidDoseRules))
	metrics.CatalogQualityIssues.WithLabelValues("ambiguous_dose_units").Set(float64(report.AmbiguousDoseUnits))
	metrics.CatalogQualityIssues.WithLabelValues("uncategorized").Set(float64(len(report.UncategorizedCategories)))
	metrics.CatalogLastAudit.Set(float64(report.GeneratedAt.Unix()))
}

// checkStaleness warns when audits have stopped completing
func (s *Scheduler) checkStaleness() {
	lastAudit := s.dataStore.GetLastAudit()
	if limit := 3 * s.opts.Interval; time.Since(lastAudit) > limit {
		logging.Warn("Catalog hasn't been audited recently",
			"last_audit", lastAudit.Format(time.RFC3339),
			"limit", limit.String(),
		)
	}
}

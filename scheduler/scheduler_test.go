package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/data"
	"github.com/giygas/medcalc-api/metrics"
	"github.com/giygas/medcalc-api/validation"
	dto "github.com/prometheus/client_model/go"
)

func amount(v float64) *float64 { return &v }

// countingLoader returns catalogs with increasing versions and counts its calls
type countingLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
	bad   atomic.Bool
}

func (l *countingLoader) load() (*catalog.Catalog, error) {
	n := l.calls.Add(1)
	if l.fail.Load() {
		return nil, errors.New("source unavailable")
	}

	route := "IV"
	if l.bad.Load() {
		route = ""
	}
	meds := []catalog.Medication{{
		ID:     "test-drug",
		Name:   "Test Drug",
		Route:  route,
		Dosing: catalog.Dosing{Adult: &catalog.DoseRule{Amount: amount(1), Unit: "g", Frequency: "Q24H", Fixed: true}},
	}}
	return catalog.New(fmt.Sprintf("v%d", n), []catalog.Group{{Name: "G", Categories: []string{"c"}}},
		[]catalog.Category{{ID: "c", Name: "C", Medications: meds}},
		map[string][]string{"test-drug": {"Testex"}, "gone": {"Gone"}})
}

func gaugeValue(t *testing.T, g interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func newTestScheduler(loader *countingLoader, reload bool) (*Scheduler, *data.DataContainer) {
	store := data.NewDataContainer()
	s := NewScheduler(store, validation.NewDataValidator(), Options{
		Interval: time.Hour,
		Loader:   loader.load,
		Reload:   reload,
	})
	return s, store
}

func TestScheduler_InitialAudit(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, false)

	if err := s.Audit(); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	if store.GetCatalog() == nil || store.GetCatalog().Version() != "v1" {
		t.Fatalf("Expected catalog v1 to be loaded")
	}
	report := store.GetQualityReport()
	if report == nil {
		t.Fatal("Expected a quality report")
	}
	if len(report.OrphanAliases) != 1 || report.OrphanAliases[0] != "gone" {
		t.Errorf("Unexpected orphan aliases %v", report.OrphanAliases)
	}
	if store.GetLastAudit().IsZero() {
		t.Error("Expected last audit to be recorded")
	}
	if store.IsAuditing() {
		t.Error("Audit flag must be released")
	}

	if got := gaugeValue(t, metrics.CatalogMedications); got != 1 {
		t.Errorf("catalog_medications = %v, want 1", got)
	}
	if got := gaugeValue(t, metrics.CatalogQualityIssues.WithLabelValues("orphan_aliases")); got != 1 {
		t.Errorf("orphan_aliases gauge = %v, want 1", got)
	}
}

func TestScheduler_AuditWithoutReload(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, false)

	for range 3 {
		if err := s.Audit(); err != nil {
			t.Fatalf("Audit failed: %v", err)
		}
	}

	if got := loader.calls.Load(); got != 1 {
		t.Errorf("Expected the loader to be called once, got %d", got)
	}
	if store.GetCatalog().Version() != "v1" {
		t.Errorf("Expected v1 to stay loaded, got %s", store.GetCatalog().Version())
	}
}

func TestScheduler_AuditWithReload(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, true)

	_ = s.Audit()
	_ = s.Audit()

	if store.GetCatalog().Version() != "v2" {
		t.Errorf("Expected reloaded catalog v2, got %s", store.GetCatalog().Version())
	}
}

func TestScheduler_ReloadFailureKeepsCatalog(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, true)

	if err := s.Audit(); err != nil {
		t.Fatalf("Audit failed: %v", err)
	}

	loader.fail.Store(true)
	if err := s.Audit(); err != nil {
		t.Errorf("Reload failure with a served catalog must not fail the audit: %v", err)
	}
	if store.GetCatalog().Version() != "v1" {
		t.Errorf("Expected v1 to be kept, got %s", store.GetCatalog().Version())
	}

	loader.fail.Store(false)
	loader.bad.Store(true)
	_ = s.Audit()
	if store.GetCatalog().Version() != "v1" {
		t.Errorf("Invalid catalog must not replace v1, got %s", store.GetCatalog().Version())
	}
}

func TestScheduler_InitialLoadFailure(t *testing.T) {
	loader := &countingLoader{}
	loader.fail.Store(true)
	s, store := newTestScheduler(loader, false)

	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Expected Start to fail without a catalog")
	}
	if store.GetCatalog() != nil {
		t.Error("Expected no catalog")
	}
	if store.IsAuditing() {
		t.Error("Audit flag must be released after failure")
	}
}

func TestScheduler_InvalidInitialCatalog(t *testing.T) {
	loader := &countingLoader{}
	loader.bad.Store(true)
	s, _ := newTestScheduler(loader, false)

	err := s.Audit()
	if err == nil {
		t.Fatal("Expected validation error")
	}
}

func TestScheduler_NoLoader(t *testing.T) {
	s := NewScheduler(data.NewDataContainer(), validation.NewDataValidator(), Options{})
	if err := s.Audit(); err == nil {
		t.Error("Expected error without loader")
	}
	if s.opts.Interval != time.Hour {
		t.Errorf("Expected default interval, got %v", s.opts.Interval)
	}
}

func TestScheduler_ConcurrentAuditPrevention(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, false)

	if !store.BeginAudit() {
		t.Fatal("BeginAudit failed")
	}
	if err := s.Audit(); !errors.Is(err, ErrAuditInProgress) {
		t.Errorf("Expected ErrAuditInProgress, got %v", err)
	}
	if loader.calls.Load() != 0 {
		t.Error("Loader must not run while another audit holds the store")
	}
	store.EndAudit()
}

func TestScheduler_StartStop(t *testing.T) {
	loader := &countingLoader{}
	s, store := newTestScheduler(loader, false)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if store.GetCatalog() == nil {
		t.Fatal("Expected catalog after Start")
	}
	if got := len(s.scheduler.Jobs()); got != 2 {
		t.Errorf("Expected 2 scheduled jobs, got %d", got)
	}
	if !s.scheduler.IsRunning() {
		t.Error("Expected scheduler to be running")
	}
}

func TestScheduler_CheckStalenessDoesNotPanic(t *testing.T) {
	s, _ := newTestScheduler(&countingLoader{}, false)
	s.checkStaleness()
}

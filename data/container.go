// Package data provides thread-safe storage of the loaded medication catalog, its search index
// and the latest data quality report. Updates swap whole values atomically, so readers never
// block and never observe a catalog paired with another catalog's index.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/interfaces"
	"github.com/giygas/medcalc-api/logging"
	"github.com/giygas/medcalc-api/search"
)

// Compile-time check to ensure DataContainer implements CatalogStore
var _ interfaces.CatalogStore = (*DataContainer)(nil)

// snapshot pairs a catalog with the index built from it
type snapshot struct {
	catalog  *catalog.Catalog
	index    *search.Index
	loadedAt time.Time
}

// DataContainer holds all the data with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastAudit       atomic.Value // time.Time
	auditing        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with no catalog loaded
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.lastAudit.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetCatalog returns the loaded catalog, or nil before the first load
func (dc *DataContainer) GetCatalog() *catalog.Catalog {
	if s := dc.current.Load(); s != nil {
		return s.catalog
	}

	logging.Warn("Catalog requested before it was loaded")
	return nil
}

// GetIndex returns the search index of the loaded catalog, or nil before the first load
func (dc *DataContainer) GetIndex() *search.Index {
	if s := dc.current.Load(); s != nil {
		return s.index
	}

	logging.Warn("Search index requested before the catalog was loaded")
	return nil
}

// GetLoadedAt returns when the current catalog was loaded
func (dc *DataContainer) GetLoadedAt() time.Time {
	if s := dc.current.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// LoadCatalog builds the search index for cat and swaps both in
func (dc *DataContainer) LoadCatalog(cat *catalog.Catalog) {
	if cat == nil {
		logging.Warn("Ignoring nil catalog")
		return
	}

	dc.current.Store(&snapshot{
		catalog:  cat,
		index:    search.NewIndex(cat),
		loadedAt: time.Now(),
	})
}

// GetQualityReport returns the latest data quality report, or nil before the first audit
func (dc *DataContainer) GetQualityReport() *interfaces.DataQualityReport {
	return dc.report.Load()
}

// StoreQualityReport replaces the quality report and records the audit time
func (dc *DataContainer) StoreQualityReport(report *interfaces.DataQualityReport) {
	dc.report.Store(report)
	dc.lastAudit.Store(time.Now())
}

// GetLastAudit returns the time of the last completed audit
func (dc *DataContainer) GetLastAudit() time.Time {
	if v := dc.lastAudit.Load(); v != nil {
		if lastAudit, ok := v.(time.Time); ok {
			return lastAudit
		}
	}

	logging.Warn("Could not get the last audit value")
	return time.Time{}
}

// IsAuditing returns true if an audit is currently in progress
func (dc *DataContainer) IsAuditing() bool {
	return dc.auditing.Load()
}

// BeginAudit marks the start of an audit.
// Returns true if the audit can proceed, false if another audit is in progress
func (dc *DataContainer) BeginAudit() bool {
	return dc.auditing.CompareAndSwap(false, true)
}

// EndAudit marks the end of an audit
func (dc *DataContainer) EndAudit() {
	dc.auditing.Store(false)
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

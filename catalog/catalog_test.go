package catalog

import (
	"strings"
	"testing"
)

func loadEmbedded(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("Failed to load embedded catalog: %v", err)
	}
	return c
}

func TestLoadEmbedded(t *testing.T) {
	c := loadEmbedded(t)

	if c.Version() == "" {
		t.Error("Expected a dataset version")
	}

	stats := c.Stats()
	if stats.Medications != 140 {
		t.Errorf("Expected 140 medications, got %d", stats.Medications)
	}
	if stats.Categories != 13 {
		t.Errorf("Expected 13 categories, got %d", stats.Categories)
	}
	if stats.WithReference != 59 {
		t.Errorf("Expected 59 referenced medications, got %d", stats.WithReference)
	}
	if len(c.Groups()) != 4 {
		t.Errorf("Expected 4 groups, got %d", len(c.Groups()))
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	c := loadEmbedded(t)

	meds := c.Medications()
	first := meds[0]
	meds[0] = nil
	if c.Medications()[0] != first {
		t.Error("Medications() exposed the catalog order")
	}

	groups := c.Groups()
	groups[0].Name = "Changed"
	if c.Groups()[0].Name == "Changed" {
		t.Error("Groups() exposed the catalog groups")
	}

	categories := c.Categories()
	categories[0].Name = "Changed"
	if c.Categories()[0].Name == "Changed" {
		t.Error("Categories() exposed the catalog categories")
	}

	aliases := c.Aliases("ibuprofen")
	aliases[0] = "changed"
	if c.Aliases("ibuprofen")[0] != "advil" {
		t.Error("Aliases() exposed the alias list")
	}

	table := c.AliasTable()
	delete(table, "ibuprofen")
	if _, ok := c.AliasTable()["ibuprofen"]; !ok {
		t.Error("AliasTable() exposed the alias table")
	}
}

func TestMedicationLookup(t *testing.T) {
	c := loadEmbedded(t)

	med, ok := c.Medication("ceftriaxone")
	if !ok {
		t.Fatal("Expected ceftriaxone in catalog")
	}
	if med.Name != "Ceftriaxone (Rocephin)" {
		t.Errorf("Unexpected name %q", med.Name)
	}
	if med.CategoryID != "iv-common" {
		t.Errorf("Expected category iv-common, got %q", med.CategoryID)
	}
	if c.CategoryName(med.CategoryID) != "IV Antibiotics" {
		t.Errorf("Unexpected category name %q", c.CategoryName(med.CategoryID))
	}

	if _, ok := c.Medication("does-not-exist"); ok {
		t.Error("Expected unknown id to be absent")
	}
}

func TestRuleResolution(t *testing.T) {
	c := loadEmbedded(t)

	vanc, _ := c.Medication("vancomycin")
	rule, ok := vanc.Rule(Adult)
	if !ok {
		t.Fatal("Expected adult vancomycin rule")
	}
	if *rule.Amount != 15 || rule.Unit != "mg/kg" || rule.Frequency != "Q12H" || rule.Fixed {
		t.Errorf("Unexpected vancomycin adult rule: %+v", rule)
	}
	if rule.DoseUnit() != "mg" {
		t.Errorf("Expected dose unit mg, got %q", rule.DoseUnit())
	}

	cipro, _ := c.Medication("ciprofloxacin-iv")
	if _, ok := cipro.Rule(Neonate); ok {
		t.Error("Expected neonatal ciprofloxacin to be not established")
	}

	if _, ok := vanc.Rule(AgeTier("geriatric")); ok {
		t.Error("Expected unknown tier to be not established")
	}
}

func TestRenalAdjustmentFor(t *testing.T) {
	c := loadEmbedded(t)

	vanc, _ := c.Medication("vancomycin")
	adj, ok := vanc.RenalAdjustmentFor(RenalModerate)
	if !ok || adj.Frequency != "Q24H" {
		t.Errorf("Expected moderate adjustment Q24H, got %+v (%v)", adj, ok)
	}

	if _, ok := vanc.RenalAdjustmentFor(RenalNormal); ok {
		t.Error("Normal renal function must not produce an adjustment")
	}

	ceftriaxone, _ := c.Medication("ceftriaxone")
	if _, ok := ceftriaxone.RenalAdjustmentFor(RenalSevere); ok {
		t.Error("Non renal-adjustable medication must not produce an adjustment")
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	raw := `{
		"version": "test",
		"categories": [
			{"id": "a", "name": "A", "medications": [{"id": "x", "name": "X"}]},
			{"id": "b", "name": "B", "medications": [{"id": "x", "name": "X again"}]}
		]
	}`

	_, err := Parse([]byte(raw))
	if err == nil || !strings.Contains(err.Error(), "duplicate medication id") {
		t.Errorf("Expected duplicate medication error, got %v", err)
	}
}

func TestParseRejectsUnknownGroupCategory(t *testing.T) {
	raw := `{
		"version": "test",
		"groups": [{"name": "G", "categories": ["missing"]}],
		"categories": [{"id": "a", "name": "A", "medications": []}]
	}`

	if _, err := Parse([]byte(raw)); err == nil {
		t.Error("Expected error for group referencing unknown category")
	}
}

func TestReadInvalidJSON(t *testing.T) {
	if _, err := Read(strings.NewReader("{not json")); err == nil {
		t.Error("Expected decode error")
	}
}

func TestParseTiers(t *testing.T) {
	if tier, err := ParseAgeTier(" Pediatric "); err != nil || tier != Pediatric {
		t.Errorf("Expected pediatric, got %q (%v)", tier, err)
	}
	if _, err := ParseAgeTier("elderly"); err == nil {
		t.Error("Expected error for unknown age tier")
	}
	if tier, err := ParseRenalTier(""); err != nil || tier != RenalNormal {
		t.Errorf("Expected empty renal tier to mean normal, got %q (%v)", tier, err)
	}
	if tier, err := ParseRenalTier("ESRD"); err != nil || tier != RenalESRD {
		t.Errorf("Expected esrd, got %q (%v)", tier, err)
	}
}

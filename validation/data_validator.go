// Package validation checks the medication catalog and free text user input.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/interfaces"
	"github.com/giygas/medcalc-api/logging"
)

const (
	maxInputLength    = 50
	maxInputWords     = 6
	maxIDLength       = 64
	maxNameLength     = 100
	maxReportedIDs    = 10
	maxRepeatedLength = 10
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Input validation: letters in any script, digits and the punctuation found in drug names
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/()]+$`)

	// Medication ids are lowercase kebab-case
	idRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	// Dangerous patterns as strings (strings.Contains is faster than regex for these)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// LDAP injection patterns
		"*)(", "*|(", "*)%",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}
)

// DataValidatorImpl implements the interfaces.CatalogValidator interface
type DataValidatorImpl struct{}

var _ interfaces.CatalogValidator = (*DataValidatorImpl)(nil)

// NewDataValidator creates a new catalog validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateMedication checks that a medication entry can be served
func (v *DataValidatorImpl) ValidateMedication(m *catalog.Medication) error {
	if m == nil {
		return fmt.Errorf("medication is nil")
	}

	if !idRegex.MatchString(m.ID) || len(m.ID) > maxIDLength {
		return fmt.Errorf("invalid medication id %q", m.ID)
	}

	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("empty name for medication %s", m.ID)
	}
	if utf8.RuneCountInString(m.Name) > maxNameLength {
		return fmt.Errorf("name too long for medication %s: %d characters", m.ID, utf8.RuneCountInString(m.Name))
	}

	if strings.TrimSpace(m.Route) == "" {
		return fmt.Errorf("empty route for medication %s", m.ID)
	}

	for _, tier := range catalog.AgeTiers {
		rule, ok := m.Rule(tier)
		if !ok {
			continue
		}
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("invalid %s dosing for medication %s: %w", tier, m.ID, err)
		}
	}

	if m.RenalAdjustable && len(m.Renal) == 0 {
		return fmt.Errorf("renal adjustable medication %s has no renal table", m.ID)
	}
	for tier, adj := range m.Renal {
		if tier == catalog.RenalNormal || !slices.Contains(catalog.RenalTiers, tier) {
			return fmt.Errorf("unknown renal tier %q for medication %s", tier, m.ID)
		}
		if strings.TrimSpace(adj.Frequency) == "" {
			return fmt.Errorf("empty %s renal frequency for medication %s", tier, m.ID)
		}
	}

	return nil
}

func validateRule(rule catalog.DoseRule) error {
	if *rule.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", *rule.Amount)
	}
	if strings.TrimSpace(rule.Unit) == "" {
		return fmt.Errorf("empty unit")
	}
	if strings.TrimSpace(rule.Frequency) == "" {
		return fmt.Errorf("empty frequency")
	}
	if rule.MaxDaily != nil && *rule.MaxDaily <= 0 {
		return fmt.Errorf("max daily must be positive, got %v", *rule.MaxDaily)
	}
	return nil
}

// ValidateCatalog returns an error when the catalog is empty or any medication is invalid.
// Duplicate ids are already rejected when the catalog is built.
func (v *DataValidatorImpl) ValidateCatalog(cat *catalog.Catalog) error {
	if cat == nil || cat.Len() == 0 {
		return fmt.Errorf("no medications found")
	}

	for _, med := range cat.Medications() {
		if err := v.ValidateMedication(med); err != nil {
			return fmt.Errorf("invalid catalog %s: %w", cat.Version(), err)
		}
	}

	for id, names := range cat.AliasTable() {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("empty alias for %s", id)
			}
		}
	}

	return nil
}

// ReportQuality runs every quality check on the catalog and logs a summary
func (v *DataValidatorImpl) ReportQuality(cat *catalog.Catalog) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		GeneratedAt:                    time.Now(),
		OrphanAliases:                  []string{},
		MedicationsWithoutReferenceIDs: []string{},
		NotEstablished:                 make(map[catalog.AgeTier]int, len(catalog.AgeTiers)),
		RenalTableIssueIDs:             []string{},
		InvalidDoseRuleIDs:             []string{},
		AmbiguousDoseUnitIDs:           []string{},
		UncategorizedCategories:        []string{},
	}
	if cat == nil {
		return report
	}

	report.CatalogVersion = cat.Version()
	report.Medications = cat.Len()

	// Check 1: aliases whose id is not in the catalog (store all, sorted)
	for id := range cat.AliasTable() {
		if _, ok := cat.Medication(id); !ok {
			report.OrphanAliases = append(report.OrphanAliases, id)
		}
	}
	slices.Sort(report.OrphanAliases)

	for _, med := range cat.Medications() {
		// Check 2: medications without a literature reference
		if med.Reference == "" {
			report.MedicationsWithoutReference++
			report.MedicationsWithoutReferenceIDs = appendID(report.MedicationsWithoutReferenceIDs, med.ID)
		}

		// Check 3: tiers without established dosing
		for _, tier := range catalog.AgeTiers {
			if _, ok := med.Rule(tier); !ok {
				report.NotEstablished[tier]++
			}
		}

		// Check 4: renal flag and renal table disagree
		if med.RenalAdjustable != (len(med.Renal) > 0) {
			report.RenalTableIssues++
			report.RenalTableIssueIDs = appendID(report.RenalTableIssueIDs, med.ID)
		}

		// Check 5: rules the calculators would reject or misread
		if v.ValidateMedication(med) != nil {
			report.InvalidDoseRules++
			report.InvalidDoseRuleIDs = appendID(report.InvalidDoseRuleIDs, med.ID)
		}
		if hasAmbiguousUnit(med) {
			report.AmbiguousDoseUnits++
			report.AmbiguousDoseUnitIDs = appendID(report.AmbiguousDoseUnitIDs, med.ID)
		}
	}

	// Check 6: categories that no group displays
	grouped := make(map[string]bool)
	for _, g := range cat.Groups() {
		for _, id := range g.Categories {
			grouped[id] = true
		}
	}
	for _, c := range cat.Categories() {
		if !grouped[c.ID] {
			report.UncategorizedCategories = append(report.UncategorizedCategories, c.ID)
		}
	}

	if report.IssueCount() > 0 {
		logging.Warn("Catalog data quality issues detected",
			"version", report.CatalogVersion,
			"orphan_aliases", len(report.OrphanAliases),
			"renal_table_issues", report.RenalTableIssues,
			"invalid_dose_rules", report.InvalidDoseRules,
			"uncategorized_categories", len(report.UncategorizedCategories),
		)
	}

	return report
}

func appendID(ids []string, id string) []string {
	if len(ids) < maxReportedIDs {
		return append(ids, id)
	}
	return ids
}

// hasAmbiguousUnit reports a weight-based rule whose unit is not expressed per kg
func hasAmbiguousUnit(med *catalog.Medication) bool {
	for _, tier := range catalog.AgeTiers {
		rule, ok := med.Rule(tier)
		if ok && !rule.Fixed && !strings.Contains(rule.Unit, "/kg") {
			return true
		}
	}
	return false
}

// ValidateInput validates free text search input
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(input) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > maxInputWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxInputWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods, slashes, parentheses and plus sign are allowed")
	}

	if !strings.ContainsFunc(input, isAlphanumeric) {
		return fmt.Errorf("input must contain at least one letter or digit")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ValidateMedicationID validates a medication id path parameter
func (v *DataValidatorImpl) ValidateMedicationID(input string) (string, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return "", fmt.Errorf("input cannot be empty")
	}

	// Reject if original input contained whitespace
	if len(input) != len(trimmedInput) {
		return "", fmt.Errorf("input contains invalid characters. Only lowercase letters, digits and hyphens are allowed")
	}

	if len(trimmedInput) > maxIDLength {
		return "", fmt.Errorf("id too long: maximum %d characters", maxIDLength)
	}

	if !idRegex.MatchString(trimmedInput) {
		return "", fmt.Errorf("input contains invalid characters. Only lowercase letters, digits and hyphens are allowed")
	}

	return trimmedInput, nil
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > maxRepeatedLength {
			return true
		}
	}
	return false
}

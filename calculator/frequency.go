package calculator

import "strings"

// frequencyPattern maps substrings of a frequency label to a doses-per-day multiplier.
type frequencyPattern struct {
	substrings []string
	perDay     float64
}

// frequencyTable is evaluated top to bottom and the first matching row wins. Labels are free
// text ("Q24H (extended)", "750mg Q48H"), so matching is by substring, case sensitive.
var frequencyTable = []frequencyPattern{
	{substrings: []string{"Q4H", "Q4-6H"}, perDay: 6},
	{substrings: []string{"Q6H"}, perDay: 4},
	{substrings: []string{"Q8H"}, perDay: 3},
	{substrings: []string{"Q12H"}, perDay: 2},
	{substrings: []string{"Q24H", "daily", "QD"}, perDay: 1},
	{substrings: []string{"Q36H"}, perDay: 0.67},
	{substrings: []string{"Q48H"}, perDay: 0.5},
}

// defaultDosesPerDay applies to labels no pattern recognizes, such as compound regimens.
const defaultDosesPerDay = 1.0

// DosesPerDay derives how many doses a frequency label implies per day.
func DosesPerDay(label string) float64 {
	for _, row := range frequencyTable {
		for _, s := range row.substrings {
			if strings.Contains(label, s) {
				return row.perDay
			}
		}
	}
	return defaultDosesPerDay
}

package units

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FractionDigits returns how many decimals a value is displayed with.
// Larger magnitudes get fewer decimals.
func FractionDigits(x float64) int {
	switch {
	case x >= 1000:
		return 1
	case x >= 1:
		return 2
	case x >= 0.01:
		return 3
	default:
		return 4
	}
}

// FormatNumber renders x with en-US digit grouping and at most FractionDigits(x) decimals.
// Trailing zeros are dropped: 125 -> "125", 1234.56 -> "1,234.6".
func FormatNumber(x float64) string {
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprint(number.Decimal(x, number.MaxFractionDigits(FractionDigits(x))))
}

// maxDurationHours bounds the day/hour breakdown; longer durations render as plain hours.
const maxDurationHours = 1e6

// FormatDuration renders a duration given in hours as "45 min", "2 hr 30 min" or "1 day 6 hr".
// Durations beyond maxDurationHours, infinite or NaN render as "N hr".
func FormatDuration(hours float64) string {
	if math.IsNaN(hours) || hours > maxDurationHours {
		return FormatNumber(hours) + " hr"
	}

	if hours < 1 {
		return fmt.Sprintf("%d min", int(math.Round(hours*60)))
	}

	if hours < 24 {
		h := math.Floor(hours)
		m := math.Round((hours - h) * 60)
		if m == 60 {
			h++
			m = 0
		}
		if h == 24 {
			return "1 day"
		}
		if m == 0 {
			return fmt.Sprintf("%d hr", int(h))
		}
		return fmt.Sprintf("%d hr %d min", int(h), int(m))
	}

	d := math.Floor(hours / 24)
	h := math.Round(math.Mod(hours, 24))
	if h == 24 {
		d++
		h = 0
	}

	days := fmt.Sprintf("%d day", int(d))
	if d > 1 {
		days += "s"
	}
	if h == 0 {
		return days
	}
	return fmt.Sprintf("%s %d hr", days, int(h))
}

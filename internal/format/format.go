// Package format renders prices, odds and countdowns for display.
package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for values that are not known yet.
const Placeholder = "—"

// Price renders a USD price: whole dollars with separators from 1000 up,
// otherwise up to four decimals.
func Price(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return Placeholder
	}
	d := decimal.NewFromFloat(p)
	if p >= 1000 {
		return "$" + humanize.Comma(d.Round(0).IntPart())
	}
	return "$" + d.Round(4).String()
}

// Countdown renders seconds as m:ss.
func Countdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Multiplier renders a payout multiplier like "1.72x".
func Multiplier(odd float64) string {
	if math.IsNaN(odd) || math.IsInf(odd, 0) {
		return Placeholder
	}
	return decimal.NewFromFloat(odd).StringFixed(2) + "x"
}

// Delta renders fractional drift as a percentage with two decimals.
func Delta(delta float64, ready bool) string {
	if !ready {
		return Placeholder
	}
	return decimal.NewFromFloat(delta*100).StringFixed(2) + "%"
}

// Implied renders a probability as a whole percentage.
func Implied(p float64, ready bool) string {
	if !ready {
		return Placeholder
	}
	return fmt.Sprintf("%d%%", int(math.Round(p*100)))
}

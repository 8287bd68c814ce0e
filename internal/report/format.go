package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders d as "<symbol> 1,234.56". An empty symbol omits
// the prefix.
func FormatCurrency(d decimal.Decimal, symbol string) string {
	s := groupThousands(d.Round(2).Abs().StringFixed(2))
	if d.IsNegative() && !d.Round(2).IsZero() {
		s = "-" + s
	}
	if symbol == "" {
		return s
	}
	return symbol + " " + s
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatPercentage renders a ratio (0.1 is 10%) with the given decimals.
func FormatPercentage(ratio float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, ratio*100)
}

// FormatCompact abbreviates large values with K, M or B.
func FormatCompact(f float64) string {
	abs := math.Abs(f)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	}
	return fmt.Sprintf("%.0f", f)
}

package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount accepted for a single transaction.
var MaxAmount = decimal.NewFromInt(999_999_999)

var (
	currencyNoise  = regexp.MustCompile(`(?i)(\$|€|£|¥|₹|\busd\b|\beur\b|\bgbp\b|\beuros?\b|\bdollars?\b|\bbucks\b)`)
	thousandsComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	thousandsDot   = regexp.MustCompile(`^\d{1,3}(\.\d{3}){2,}$`)
	plainNumber    = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseAmount converts a human written amount into a decimal.
//
// Currency symbols and codes are dropped. When both separators appear the
// rightmost one is the decimal mark. A lone comma followed by exactly three
// digits groups thousands ("1,250"), otherwise it is a decimal comma ("12,50").
// The sign is preserved; callers decide what a negative amount means.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = currencyNoise.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	// "(25.00)" accounting notation
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if thousandsComma.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dot >= 0 && thousandsDot.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	if !plainNumber.MatchString(s) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

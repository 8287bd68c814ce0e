package extract

import (
	"regexp"
	"strings"
	"unicode"

	"fintrack/internal/core"
)

// MaxInputLength is the longest accepted submission, in runes, ignoring
// leading and trailing whitespace.
const MaxInputLength = 1000

// Normalized is cleaned input text plus the literal amount token found in it,
// if any.
type Normalized struct {
	Text        string
	AmountToken string
}

func (n Normalized) Empty() bool { return n.Text == "" }

var (
	symbolAmount = regexp.MustCompile(`[$€£¥₹]\s?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)`)
	codeAmount   = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)\s?(?:usd|eur|gbp|dollars?|euros?|bucks)\b`)
	decimalToken = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+[.,]\d{1,2})\b`)
	integerToken = regexp.MustCompile(`\b(\d+)\b`)

	// referenceDate anchors date phrase detection when only the phrase
	// positions matter.
	referenceDate = core.NewDate(2000, 1, 1)
)

// Normalize strips control characters, collapses whitespace and picks out an
// explicit amount literal. It never fails; blank input gives an empty result.
func Normalize(raw string) Normalized {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, raw)
	text := strings.Join(strings.Fields(cleaned), " ")
	if text == "" {
		return Normalized{}
	}
	return Normalized{Text: text, AmountToken: amountToken(text)}
}

func amountToken(text string) string {
	if m := symbolAmount.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := codeAmount.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	// Numbers that belong to a date phrase are not amounts.
	masked := []byte(text)
	for _, d := range findDates(text, referenceDate) {
		for i := d.Start; i < d.End; i++ {
			masked[i] = ' '
		}
	}
	if m := decimalToken.FindSubmatch(masked); m != nil {
		return string(m[1])
	}
	if m := integerToken.FindSubmatch(masked); m != nil {
		return string(m[1])
	}
	return ""
}

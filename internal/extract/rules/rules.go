// Package rules is a deterministic, offline text-understanding capability.
// It recognises transaction types by verb phrases and amounts and dates by
// literal patterns, and guesses a category only when a known label appears
// in the text.
package rules

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/extract"
)

var typePatterns = []struct {
	typ core.TransactionType
	re  *regexp.Regexp
}{
	{core.ToReceive, regexp.MustCompile(`(?i)\b(owes?\s+me|owed\s+to\s+me|to\s+receive|will\s+(?:receive|get\s+paid|be\s+paid)|expect(?:ing)?\s+(?:to\s+receive|a\s+payment|payment)|should\s+receive|pay\s+me\s+back|receivable)\b`)},
	{core.ToPay, regexp.MustCompile(`(?i)\b((?:need|needs|have|has|got|must|should|going)\s+to\s+pay|remind\s+me\s+to\s+pay|i\s+owe|owe\s+\w+|payable|(?:bill|rent|invoice|payment)\s+(?:is\s+)?due|due\s+(?:on|by|next|tomorrow|in))\b`)},
	{core.Income, regexp.MustCompile(`(?i)\b(received|receive|got\s+paid|earned|earn|salary|paycheck|payday|income|refund(?:ed)?|deposit(?:ed)?|sold|bonus|dividends?|interest\s+earned|reimbursed)\b`)},
	{core.Expense, regexp.MustCompile(`(?i)\b(spent|spend|paid|bought|buy|purchased|purchase|cost|costs|charged|ordered|expense|lunch|dinner|breakfast|groceries)\b`)},
}

// Capability implements extract.Capability without any network access.
type Capability struct{}

func New() *Capability { return &Capability{} }

var _ extract.Capability = (*Capability)(nil)

func (c *Capability) Extract(ctx context.Context, req extract.Request) (extract.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := req.Text
	resp := extract.Response{"note": text}

	if t, ok := detectType(text); ok {
		resp["type"] = string(t)
	}
	if n := extract.Normalize(text); n.AmountToken != "" {
		resp["amount"] = n.AmountToken
	}
	if m, ok := extract.ResolveDate(text, req.CurrentDate); ok {
		resp["date"] = m.Date.String()
	}
	if label := knownLabel(text, req.KnownCategories); label != "" {
		resp["category"] = label
	}
	return resp, nil
}

func detectType(text string) (core.TransactionType, bool) {
	for _, p := range typePatterns {
		if p.re.MatchString(text) {
			return p.typ, true
		}
	}
	return "", false
}

// knownLabel returns the longest known category label that appears in text as
// whole words. Equal lengths keep the order of known.
func knownLabel(text string, known []string) string {
	labels := append([]string(nil), known...)
	sort.SliceStable(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })
	lower := strings.ToLower(text)
	for _, label := range labels {
		l := strings.ToLower(strings.TrimSpace(label))
		if l == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(l) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(lower) {
			return label
		}
	}
	return ""
}

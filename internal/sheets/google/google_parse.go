package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// parseRecordRows decodes a values matrix from the records sheet. A leading
// header row is skipped. The 1-based sheet row numbers of rows that failed to
// decode are returned alongside.
func parseRecordRows(values [][]interface{}) ([]core.Record, []int) {
	var (
		out     []core.Record
		skipped []int
	)
	for i, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), core.RowHeader[0]) {
			continue
		}
		r, err := core.RecordFromRow(row)
		if err != nil {
			skipped = append(skipped, i+1)
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

// parseCategoryRows reads type|category|subcategory rows, skipping the
// header, comments and rows with an unknown type.
func parseCategoryRows(values [][]interface{}) []core.CategoryRow {
	var out []core.CategoryRow
	seen := map[core.CategoryRow]bool{}
	for _, raw := range values {
		row := toStrings(raw)
		if len(row) < 2 || strings.HasPrefix(row[0], "#") {
			continue
		}
		typ, ok := core.ParseTransactionType(row[0])
		if !ok {
			continue
		}
		c := core.CategoryRow{Type: typ, Category: row[1]}
		if len(row) > 2 {
			c.Subcategory = row[2]
		}
		if c.Category == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// toStrings converts a sheet row to strings. Free-text columns keep their
// whitespace, the rest are trimmed.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		s := cellString(v)
		if i != noteColumn && i != sourceColumn {
			s = strings.TrimSpace(s)
		}
		out[i] = s
	}
	return out
}

const (
	noteColumn   = 6
	sourceColumn = 8
)

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// UNFORMATTED_VALUE returns numbers for cells the sheet coerced.
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	}
	return fmt.Sprint(v)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

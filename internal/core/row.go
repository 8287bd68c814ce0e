package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RowHeader lists the record columns in storage order.
var RowHeader = []string{
	"id", "type", "amount", "category", "subcategory",
	"date", "note", "status", "source_text", "ingested_at",
}

// Row encodes r into the column order of RowHeader.
func (r Record) Row() []string {
	return []string{
		r.ID,
		string(r.Type),
		r.Amount.String(),
		r.Category,
		r.Subcategory,
		r.Date.String(),
		r.Note,
		string(r.Status),
		r.SourceText,
		r.IngestedAt.UTC().Format(time.RFC3339Nano),
	}
}

// RecordFromRow decodes a row written by Row. Short rows are padded, so rows
// edited by hand with trailing empty cells still decode.
func RecordFromRow(row []string) (Record, error) {
	raw := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	get := func(i int) string { return strings.TrimSpace(raw(i)) }

	id := get(0)
	if id == "" {
		return Record{}, fmt.Errorf("row missing id")
	}
	typ, ok := ParseTransactionType(get(1))
	if !ok {
		return Record{}, fmt.Errorf("row %s: unknown type %q", id, get(1))
	}
	amount, err := decimal.NewFromString(get(2))
	if err != nil {
		return Record{}, fmt.Errorf("row %s: parse amount: %w", id, err)
	}
	if !amount.IsPositive() {
		return Record{}, fmt.Errorf("row %s: %w", id, ErrInvalidAmount)
	}
	date, err := ParseDate(get(5))
	if err != nil {
		return Record{}, fmt.Errorf("row %s: %w", id, err)
	}
	status, ok := ParseStatus(get(7))
	if !ok {
		status = Confirmed
	}
	var ingested time.Time
	if v := get(9); v != "" {
		ingested, err = time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Record{}, fmt.Errorf("row %s: parse ingested_at: %w", id, err)
		}
	}
	category := get(3)
	if category == "" {
		category = Uncategorized
	}

	return Record{
		ID:          id,
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Subcategory: get(4),
		Date:        date,
		Note:        raw(6),
		Status:      status,
		SourceText:  raw(8),
		IngestedAt:  ingested,
	}, nil
}

// Uncategorized is the category sentinel for records with no resolvable
// category.
const Uncategorized = "Uncategorized"

package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/taxonomy"
)

// optionalFields are the candidate fields whose diagnostics lower confidence
// without rejecting the record.
var optionalFields = []string{"category", "subcategory", "note"}

// Gate turns a resolved candidate into an immutable record or refuses it.
type Gate struct {
	now   func() time.Time
	newID func() (string, error)
}

func NewGate(now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{now: now, newID: newRecordID}
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id.String(), nil
}

// Validate checks required fields in order (type, amount, date) and derives
// the record status. ingestDate stands in for a missing date.
func (g *Gate) Validate(c core.Candidate, res taxonomy.Resolution, ingestDate core.Date) (core.Record, error) {
	typ, ok := core.ParseTransactionType(c.Type)
	if !ok {
		return core.Record{}, &core.ValidationError{Reason: core.MissingType, Field: "type", Detail: c.Type}
	}

	fallback := false

	if c.Amount == nil {
		if c.HasDiagnostic("amount") {
			return core.Record{}, &core.ValidationError{Reason: core.InvalidAmount, Field: "amount", Detail: c.AmountRaw}
		}
		return core.Record{}, &core.ValidationError{Reason: core.MissingAmount, Field: "amount"}
	}
	amount := *c.Amount
	if c.HasDiagnostic("amount") {
		fallback = true
	}
	if amount.IsNegative() {
		amount = amount.Abs()
		fallback = true
	}
	if amount.IsZero() {
		return core.Record{}, &core.ValidationError{Reason: core.InvalidAmount, Field: "amount", Detail: "amount must be positive"}
	}
	if amount.GreaterThan(core.MaxAmount) {
		return core.Record{}, &core.ValidationError{Reason: core.InvalidAmount, Field: "amount", Detail: fmt.Sprintf("amount exceeds %s", core.MaxAmount)}
	}

	var date core.Date
	switch {
	case c.Date != nil:
		date = *c.Date
		// A due-date phrase only looks ahead for scheduled types.
		if typ.IsScheduled() && c.DueDate && c.ForwardDate != nil {
			date = *c.ForwardDate
		}
		if y := date.Year(); y < core.MinYear || y > core.MaxYear {
			return core.Record{}, &core.ValidationError{Reason: core.InvalidDate, Field: "date", Detail: fmt.Sprintf("year %d out of range", y)}
		}
	case c.HasDiagnostic("date"):
		return core.Record{}, &core.ValidationError{Reason: core.InvalidDate, Field: "date", Detail: c.DateRaw}
	default:
		date = ingestDate
		if typ.IsScheduled() {
			fallback = true
		}
	}

	if res.Match == taxonomy.Fallback {
		fallback = true
	}
	for _, f := range optionalFields {
		if c.HasDiagnostic(f) {
			fallback = true
		}
	}

	category := res.Category
	if category == "" {
		category = core.Uncategorized
	}

	id, err := g.newID()
	if err != nil {
		return core.Record{}, err
	}

	return core.Record{
		ID:          id,
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Subcategory: res.Subcategory,
		Date:        date,
		Note:        c.Note,
		Status:      status(typ, fallback),
		SourceText:  c.SourceText,
		IngestedAt:  g.now().UTC(),
	}, nil
}

func status(typ core.TransactionType, fallback bool) core.Status {
	switch {
	case fallback:
		return core.LowConfidence
	case typ.IsScheduled():
		return core.Pending
	}
	return core.Confirmed
}

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense   TransactionType = "Expense"
	Income    TransactionType = "Income"
	ToPay     TransactionType = "ToPay"
	ToReceive TransactionType = "ToReceive"
)

const (
	Confirmed     Status = "Confirmed"
	Pending       Status = "Pending"
	LowConfidence Status = "LowConfidence"
)

// DateLayout is the canonical calendar date representation used on every
// boundary (rows, JSON, query strings).
const DateLayout = "2006-01-02"

// MinYear and MaxYear bound every accepted calendar date.
const (
	MinYear = 1900
	MaxYear = 2999
)

type (
	TransactionType string

	Status string

	Date struct {
		time.Time
	}

	// Record is a validated ledger entry. Once built by the validation gate
	// none of its fields change.
	Record struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory,omitempty"`
		Date        Date            `json:"date"`
		Note        string          `json:"note,omitempty"`
		Status      Status          `json:"status"`
		SourceText  string          `json:"source_text"`
		IngestedAt  time.Time       `json:"ingested_at"`
	}

	// Diagnostic records a field that was present in an extraction response
	// but could not be parsed.
	Diagnostic struct {
		Field  string `json:"field"`
		Value  string `json:"value"`
		Reason string `json:"reason"`
	}

	// Candidate is the loosely typed result of field extraction. Every field
	// may be missing.
	Candidate struct {
		Type        string
		Amount      *decimal.Decimal
		AmountRaw   string
		Date        *Date
		DateRaw     string
		DueDate     bool
		ForwardDate *Date // Date read as a deadline, set with DueDate
		Category    string
		Subcategory string
		Note        string
		Diagnostics []Diagnostic
		SourceText  string
	}

	// CategoryRow is a single taxonomy entry as stored in a backing store.
	CategoryRow struct {
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory,omitempty"`
	}
)

var transactionTypes = []TransactionType{Expense, Income, ToPay, ToReceive}

// TransactionTypes returns all representable transaction types in display order.
func TransactionTypes() []TransactionType {
	return append([]TransactionType(nil), transactionTypes...)
}

// ParseTransactionType accepts any casing and ignores spaces, dashes and
// underscores, so "to_pay", "To Pay" and "TOPAY" are all ToPay.
func ParseTransactionType(s string) (TransactionType, bool) {
	key := compactKey(s)
	for _, t := range transactionTypes {
		if compactKey(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

// IsScheduled reports whether the type describes a future obligation.
func (t TransactionType) IsScheduled() bool {
	return t == ToPay || t == ToReceive
}

// IsInflow reports whether money flows towards the user.
func (t TransactionType) IsInflow() bool {
	return t == Income || t == ToReceive
}

func (t TransactionType) String() string { return string(t) }

func ParseStatus(s string) (Status, bool) {
	key := compactKey(s)
	for _, st := range []Status{Confirmed, Pending, LowConfidence} {
		if compactKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

func compactKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves by n calendar months, clamping the day to the target
// month's last day (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := DaysIn(first.Year(), int(first.Month())); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// Before, After and Equal compare calendar dates.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BusinessDays counts Monday to Friday dates between start and end, both
// inclusive. It returns 0 when end is before start.
func BusinessDays(start, end Date) int {
	if end.Before(start) {
		return 0
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if !d.IsWeekend() {
			n++
		}
	}
	return n
}

// Before orders records by date, then ingestion time, then id.
func (r Record) Before(o Record) bool {
	if !r.Date.Equal(o.Date) {
		return r.Date.Before(o.Date)
	}
	if !r.IngestedAt.Equal(o.IngestedAt) {
		return r.IngestedAt.Before(o.IngestedAt)
	}
	return r.ID < o.ID
}

// Copy returns a Candidate that shares no slices with c.
func (c Candidate) Copy() Candidate {
	c.Diagnostics = append([]Diagnostic(nil), c.Diagnostics...)
	return c
}

// HasDiagnostic reports whether field failed to parse.
func (c Candidate) HasDiagnostic(field string) bool {
	for _, d := range c.Diagnostics {
		if d.Field == field {
			return true
		}
	}
	return false
}

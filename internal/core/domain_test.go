package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"Expense", Expense, true},
		{"expense", Expense, true},
		{" INCOME ", Income, true},
		{"to_pay", ToPay, true},
		{"To Pay", ToPay, true},
		{"to-receive", ToReceive, true},
		{"ToReceive", ToReceive, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseTransactionType(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseTransactionType(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTransactionTypeFlags(t *testing.T) {
	if !ToPay.IsScheduled() || !ToReceive.IsScheduled() {
		t.Fatalf("scheduled types not reported")
	}
	if Expense.IsScheduled() || Income.IsScheduled() {
		t.Fatalf("settled types reported as scheduled")
	}
	if !Income.IsInflow() || !ToReceive.IsInflow() || Expense.IsInflow() {
		t.Fatalf("inflow flags wrong")
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 1, 31)
	if got := d.AddMonths(1); !got.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("AddMonths clamp: got %s", got)
	}
	if got := d.AddMonths(-2); !got.Equal(NewDate(2023, 11, 30)) {
		t.Fatalf("AddMonths back: got %s", got)
	}
	if got := NewDate(2024, 6, 10).AddDays(7); got.String() != "2024-06-17" {
		t.Fatalf("AddDays: got %s", got)
	}
	if !NewDate(2024, 6, 8).IsWeekend() || NewDate(2024, 6, 10).IsWeekend() {
		t.Fatalf("IsWeekend wrong")
	}
	if DaysIn(2023, 2) != 28 || DaysIn(2024, 2) != 29 || DaysIn(2024, 12) != 31 {
		t.Fatalf("DaysIn wrong")
	}
	if got := DateOf(time.Date(2024, 6, 10, 23, 59, 0, 0, time.UTC)); !got.Equal(NewDate(2024, 6, 10)) {
		t.Fatalf("DateOf: got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{NewDate(2024, 12, 1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2024-12-01"}` {
		t.Fatalf("unexpected json %s", b)
	}
	var out struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.D.Equal(NewDate(2024, 12, 1)) {
		t.Fatalf("round trip got %s", out.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"12/01/2024"}`), &out); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestCandidateCopy(t *testing.T) {
	c := Candidate{Diagnostics: []Diagnostic{{Field: "date"}}}
	cp := c.Copy()
	cp.Diagnostics[0].Field = "amount"
	if c.Diagnostics[0].Field != "date" {
		t.Fatalf("copy shares diagnostics")
	}
	if !c.HasDiagnostic("date") || c.HasDiagnostic("amount") {
		t.Fatalf("HasDiagnostic wrong")
	}
}

func TestBusinessDays(t *testing.T) {
	cases := []struct {
		start, end Date
		want       int
	}{
		{NewDate(2024, 6, 10), NewDate(2024, 6, 10), 1}, // Monday
		{NewDate(2024, 6, 15), NewDate(2024, 6, 16), 0}, // weekend
		{NewDate(2024, 6, 10), NewDate(2024, 6, 16), 5}, // full week
		{NewDate(2024, 6, 1), NewDate(2024, 6, 30), 20}, // June 2024
		{NewDate(2024, 6, 14), NewDate(2024, 6, 17), 2}, // Fri..Mon
		{NewDate(2024, 6, 17), NewDate(2024, 6, 14), 0}, // reversed
	}
	for _, tc := range cases {
		if got := BusinessDays(tc.start, tc.end); got != tc.want {
			t.Fatalf("BusinessDays(%s, %s) = %d want %d", tc.start, tc.end, got, tc.want)
		}
	}
}

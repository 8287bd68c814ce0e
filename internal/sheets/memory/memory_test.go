package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func sampleRecord(id string) core.Record {
	return core.Record{
		ID:         id,
		Type:       core.Expense,
		Amount:     decimal.RequireFromString("12.50"),
		Category:   "Food & Dining",
		Date:       core.NewDate(2024, 6, 10),
		Note:       "lunch, with a comma",
		Status:     core.Confirmed,
		SourceText: "spent 12.50 on lunch",
		IngestedAt: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreAppendAndReadAll(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	if err := s.Append(ctx, sampleRecord("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, sampleRecord("b")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected records %+v", got)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("12.5")) || got[0].Note != "lunch, with a comma" {
		t.Fatalf("record not round-tripped: %+v", got[0])
	}
}

func TestStoreRejectsDuplicateID(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	if err := s.Append(ctx, sampleRecord("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, sampleRecord("a")); !errors.Is(err, core.ErrAppendConflict) {
		t.Fatalf("duplicate append error = %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing seed file should not fail: %v", err)
	}
	if cats, _ := s.ListCategories(context.Background()); len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}

	content := "# type|category|subcategory\nExpense|Pets|Vet\nexpense|Pets|Vet\n\nIncome|Side Hustle\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 2 {
		t.Fatalf("unexpected categories %v", cats)
	}
	if cats[0] != (core.CategoryRow{Type: core.Expense, Category: "Pets", Subcategory: "Vet"}) {
		t.Fatalf("unexpected first row %+v", cats[0])
	}
	if cats[1].Type != core.Income || cats[1].Subcategory != "" {
		t.Fatalf("unexpected second row %+v", cats[1])
	}
}

func TestNewFromFilesRejectsBadType(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte("Loan|Bank\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

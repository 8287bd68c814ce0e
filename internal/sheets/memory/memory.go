// Package memory is an in-process row store. Records are kept in their row
// encoding so the codec is exercised exactly as with a spreadsheet.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// SeedFile is the optional taxonomy seed read by NewFromFiles. Each line is
// type|category|subcategory; blank lines and # comments are skipped.
const SeedFile = "seed_categories.txt"

type Store struct {
	mu   sync.RWMutex
	cats []core.CategoryRow
	rows [][]string
	ids  map[string]struct{}
}

var (
	_ sheets.RecordStore    = (*Store)(nil)
	_ sheets.TaxonomyReader = (*Store)(nil)
)

func New(cats []core.CategoryRow) *Store {
	return &Store{cats: dedupe(cats), ids: map[string]struct{}{}}
}

// NewFromFiles seeds the taxonomy from base/SeedFile when present.
func NewFromFiles(base string) (*Store, error) {
	cats, err := readSeed(filepath.Join(base, SeedFile))
	if err != nil {
		return nil, err
	}
	return New(cats), nil
}

func (s *Store) Append(ctx context.Context, r core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[r.ID]; dup {
		return fmt.Errorf("record %s: %w", r.ID, core.ErrAppendConflict)
	}
	s.ids[r.ID] = struct{}{}
	s.rows = append(s.rows, r.Row())
	return nil
}

func (s *Store) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Record, 0, len(s.rows))
	for i, row := range s.rows {
		r, err := core.RecordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.CategoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.CategoryRow(nil), s.cats...), nil
}

// Len reports the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func readSeed(path string) ([]core.CategoryRow, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var out []core.CategoryRow
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			return nil, fmt.Errorf("seed line %d: want type|category|subcategory", lineNo)
		}
		typ, ok := core.ParseTransactionType(parts[0])
		if !ok {
			return nil, fmt.Errorf("seed line %d: unknown type %q", lineNo, parts[0])
		}
		row := core.CategoryRow{Type: typ, Category: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			row.Subcategory = strings.TrimSpace(parts[2])
		}
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return dedupe(out), nil
}

// dedupe keeps the first occurrence of each row, in input order.
func dedupe(in []core.CategoryRow) []core.CategoryRow {
	seen := map[core.CategoryRow]struct{}{}
	out := make([]core.CategoryRow, 0, len(in))
	for _, r := range in {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

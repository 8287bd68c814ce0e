// Package storage is the SQLite row store. It keeps the same record fields
// as the spreadsheet plus a per-row sync state used by the sync worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// ErrNotFound is returned when a record id is not stored.
var ErrNotFound = errors.New("record not found")

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ sheets.RecordStore    = (*SQLiteRepository)(nil)
	_ sheets.TaxonomyReader = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: NewQueries(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append stores r with sync status pending. A duplicate id is reported as
// core.ErrAppendConflict.
func (r *SQLiteRepository) Append(ctx context.Context, rec core.Record) error {
	row := rec.Row()
	err := r.queries.InsertTransaction(ctx, transactionRow{
		ID:          row[0],
		Type:        row[1],
		Amount:      row[2],
		Category:    row[3],
		Subcategory: row[4],
		Date:        row[5],
		Note:        row[6],
		Status:      row[7],
		SourceText:  row[8],
		IngestedAt:  row[9],
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("record %s: %w", rec.ID, core.ErrAppendConflict)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReadAll(ctx context.Context) ([]core.Record, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toRecords(rows)
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.Record, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return row.record()
}

// GetPendingSync returns up to limit records not yet copied to the remote
// sheet, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := r.queries.ListPendingSync(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	return toRecords(rows)
}

// SyncStatus reports the sync state of one record.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id string) (string, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get transaction %s: %w", id, err)
	}
	return row.SyncStatus, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	n, err := r.queries.MarkSynced(ctx, id, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark %s synced: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	n, err := r.queries.MarkSyncError(ctx, id, msg)
	if err != nil {
		return fmt.Errorf("mark %s sync error: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark %s sync error: %w", id, ErrNotFound)
	}
	return nil
}

// RetryFailed moves errored records back to pending and returns how many.
func (r *SQLiteRepository) RetryFailed(ctx context.Context) (int64, error) {
	n, err := r.queries.ResetSyncErrors(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset sync errors: %w", err)
	}
	return n, nil
}

// SyncCounts returns the number of records per sync status.
func (r *SQLiteRepository) SyncCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := r.queries.CountBySyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sync status: %w", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.CategoryRow, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.CategoryRow, 0, len(rows))
	for _, c := range rows {
		typ, ok := core.ParseTransactionType(c.Type)
		if !ok {
			continue
		}
		out = append(out, core.CategoryRow{Type: typ, Category: c.Category, Subcategory: c.Subcategory})
	}
	return out, nil
}

// SaveCategories upserts rows inside one transaction.
func (r *SQLiteRepository) SaveCategories(ctx context.Context, rows []core.CategoryRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, c := range rows {
		if strings.TrimSpace(c.Category) == "" {
			continue
		}
		if err := q.UpsertCategory(ctx, string(c.Type), strings.TrimSpace(c.Category), strings.TrimSpace(c.Subcategory)); err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Category, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit categories: %w", err)
	}
	return nil
}

// CategoryCount reports how many category rows are cached locally.
func (r *SQLiteRepository) CategoryCount(ctx context.Context) (int64, error) {
	n, err := r.queries.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (t transactionRow) record() (core.Record, error) {
	return core.RecordFromRow([]string{
		t.ID, t.Type, t.Amount, t.Category, t.Subcategory,
		t.Date, t.Note, t.Status, t.SourceText, t.IngestedAt,
	})
}

func toRecords(rows []transactionRow) ([]core.Record, error) {
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(serr.Error(), "UNIQUE")
	}
	return false
}

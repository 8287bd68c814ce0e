package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// transactionRow mirrors the transactions table.
type transactionRow struct {
	ID          string
	Type        string
	Amount      string
	Category    string
	Subcategory string
	Date        string
	Note        string
	Status      string
	SourceText  string
	IngestedAt  string
	SyncStatus  string
	SyncedAt    sql.NullString
	SyncError   sql.NullString
}

const transactionColumns = `id, type, amount, category, subcategory, date, note, status, source_text, ingested_at, sync_status, synced_at, sync_error`

func scanTransaction(sc interface{ Scan(...any) error }) (transactionRow, error) {
	var t transactionRow
	err := sc.Scan(&t.ID, &t.Type, &t.Amount, &t.Category, &t.Subcategory, &t.Date,
		&t.Note, &t.Status, &t.SourceText, &t.IngestedAt, &t.SyncStatus, &t.SyncedAt, &t.SyncError)
	return t, err
}

const insertTransaction = `INSERT INTO transactions (id, type, amount, category, subcategory, date, note, status, source_text, ingested_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t transactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.Type, t.Amount, t.Category, t.Subcategory, t.Date, t.Note, t.Status, t.SourceText, t.IngestedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (transactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date, ingested_at, id`

func (q *Queries) ListTransactions(ctx context.Context) ([]transactionRow, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const listPendingSync = `SELECT ` + transactionColumns + ` FROM transactions
WHERE sync_status = 'pending' ORDER BY ingested_at, id LIMIT ?`

func (q *Queries) ListPendingSync(ctx context.Context, limit int) ([]transactionRow, error) {
	return q.queryTransactions(ctx, listPendingSync, limit)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []transactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markSynced = `UPDATE transactions SET sync_status = 'synced', synced_at = ?, sync_error = NULL WHERE id = ?`

func (q *Queries) MarkSynced(ctx context.Context, id, at string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE transactions SET sync_status = 'error', sync_error = ? WHERE id = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id, msg string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSyncError, msg, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const resetSyncErrors = `UPDATE transactions SET sync_status = 'pending', sync_error = NULL WHERE sync_status = 'error'`

func (q *Queries) ResetSyncErrors(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, resetSyncErrors)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countBySyncStatus = `SELECT sync_status, COUNT(*) FROM transactions GROUP BY sync_status`

func (q *Queries) CountBySyncStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countBySyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

const upsertCategory = `INSERT INTO categories (type, category, subcategory) VALUES (?, ?, ?)
ON CONFLICT (type, category, subcategory) DO UPDATE SET updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

func (q *Queries) UpsertCategory(ctx context.Context, typ, category, subcategory string) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, typ, category, subcategory)
	return err
}

const listCategories = `SELECT type, category, subcategory FROM categories ORDER BY rowid`

type categoryRow struct {
	Type        string
	Category    string
	Subcategory string
}

func (q *Queries) ListCategories(ctx context.Context) ([]categoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []categoryRow
	for rows.Next() {
		var c categoryRow
		if err := rows.Scan(&c.Type, &c.Category, &c.Subcategory); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const countCategories = `SELECT COUNT(*) FROM categories`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

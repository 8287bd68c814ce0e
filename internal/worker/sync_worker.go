// Package worker copies locally stored records to the remote sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// LocalStore is the subset of storage.SQLiteRepository the worker drives.
type LocalStore interface {
	GetRecord(ctx context.Context, id string) (core.Record, error)
	SyncStatus(ctx context.Context, id string) (string, error)
	GetPendingSync(ctx context.Context, limit int) ([]core.Record, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string, cause error) error
	RetryFailed(ctx context.Context) (int64, error)
	CategoryCount(ctx context.Context) (int64, error)
	SaveCategories(ctx context.Context, rows []core.CategoryRow) error
}

const categoryRefreshInterval = 24 * time.Hour

// SyncWorker handles synchronization of records from SQLite to Google Sheets.
type SyncWorker struct {
	storage   LocalStore
	remote    sheets.RecordAppender
	taxonomy  sheets.TaxonomyReader
	batchSize int
	logger    *log.Logger
}

// NewSyncWorker builds a worker. taxonomy may be nil when the remote has no
// category sheet.
func NewSyncWorker(storage LocalStore, remote sheets.RecordAppender, taxonomy sheets.TaxonomyReader, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		remote:    remote,
		taxonomy:  taxonomy,
		batchSize: batchSize,
		logger:    log.Default().WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes one sync message from AMQP. Redelivered
// messages for records already synced are acknowledged without a second
// remote append.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message", log.FieldTxID, msg.ID)

	status, err := w.storage.SyncStatus(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Sync message for unknown record, dropping", log.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sync status: %w", err)
	}
	if status == storage.SyncSynced {
		return nil
	}

	rec, err := w.storage.GetRecord(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	return w.syncRecord(ctx, rec)
}

// ProcessPending syncs one batch of records that never got a message through.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processBatch(ctx, w.batchSize)
	return err
}

// StartupSyncCheck requeues errored records and syncs a larger batch of
// pending ones, to recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if n, err := w.storage.RetryFailed(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to requeue errored records", log.FieldError, err)
	} else if n > 0 {
		w.logger.InfoContext(ctx, "Requeued errored records", "count", n)
	}

	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.storage.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending records", "count", len(pending))
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if err := w.syncRecord(ctx, rec); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync record", log.FieldTxID, rec.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec core.Record) error {
	err := w.remote.Append(ctx, rec)
	if err != nil && !errors.Is(err, core.ErrAppendConflict) {
		if markErr := w.storage.MarkSyncError(ctx, rec.ID, err); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldTxID, rec.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, rec.ID); err != nil {
		// The remote row exists; a later sweep will append it again.
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldTxID, rec.ID, log.FieldError, err)
		return fmt.Errorf("mark synced: %w", err)
	}

	w.logger.InfoContext(ctx, "Synced record",
		log.NewFields().
			WithOperation(log.OpSync).
			WithTransaction(rec.ID, string(rec.Type), rec.Amount.String(), rec.Category, rec.Subcategory, string(rec.Status)).
			ToSlice()...)
	return nil
}

// SyncCategoriesIfNeeded copies the remote category sheet into the local
// cache when the cache is empty.
func (w *SyncWorker) SyncCategoriesIfNeeded(ctx context.Context) error {
	count, err := w.storage.CategoryCount(ctx)
	if err != nil {
		return fmt.Errorf("check category count: %w", err)
	}
	if count > 0 {
		w.logger.InfoContext(ctx, "Category cache is populated", "count", count)
		return nil
	}
	return w.RefreshCategories(ctx)
}

// RefreshCategories upserts every remote category row into the local cache.
func (w *SyncWorker) RefreshCategories(ctx context.Context) error {
	if w.taxonomy == nil {
		return nil
	}
	rows, err := w.taxonomy.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories from sheets: %w", err)
	}
	if err := w.storage.SaveCategories(ctx, rows); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	w.logger.InfoContext(ctx, "Categories cached", "count", len(rows))
	return nil
}

// Run sweeps pending records every interval and refreshes categories daily
// until ctx is done. Sweep errors are logged, not returned.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	categories := time.NewTicker(categoryRefreshInterval)
	defer categories.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		case <-categories.C:
			if _, err := w.storage.RetryFailed(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Failed to requeue errored records", log.FieldError, err)
			}
			if err := w.RefreshCategories(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic category refresh failed", log.FieldError, err)
			}
		}
	}
}

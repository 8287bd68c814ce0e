// Package services composes row stores with side effects the core does not
// know about.
package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// Publisher announces a stored record to the sync worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
}

// LocalStore is the durable side of a SyncingStore.
type LocalStore interface {
	sheets.RecordStore
	sheets.TaxonomyReader
}

// SyncingStore writes records to a local store and then asks the worker to
// copy them to the remote sheet. The local write is the source of truth: a
// failed publish is logged and the worker's pending sweep picks the record up
// later.
type SyncingStore struct {
	local     LocalStore
	publisher Publisher
	logger    *log.Logger
}

// NewSyncingStore wraps local. publisher may be nil, in which case records
// stay pending until the worker sweeps them.
func NewSyncingStore(local LocalStore, publisher Publisher, logger *log.Logger) *SyncingStore {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncingStore{
		local:     local,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

func (s *SyncingStore) Append(ctx context.Context, r core.Record) error {
	if err := s.local.Append(ctx, r); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, leaving record pending", log.FieldTxID, r.ID)
		return nil
	}
	if err := s.publisher.PublishTransactionSync(ctx, r.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldTxID, r.ID, log.FieldError, err)
	}
	return nil
}

func (s *SyncingStore) ReadAll(ctx context.Context) ([]core.Record, error) {
	return s.local.ReadAll(ctx)
}

func (s *SyncingStore) ListCategories(ctx context.Context) ([]core.CategoryRow, error) {
	return s.local.ListCategories(ctx)
}

// Close closes the local store and publisher when they support it.
func (s *SyncingStore) Close() error {
	var errs []error
	if c, ok := s.local.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok && s.publisher != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

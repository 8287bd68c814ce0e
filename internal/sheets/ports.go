// Package sheets defines the row store ports the ledger and taxonomy read
// and write through. Implementations live in subpackages and in storage.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

type (
	// RecordAppender durably stores one record. Implementations report a
	// duplicate id with core.ErrAppendConflict.
	RecordAppender interface {
		Append(ctx context.Context, r core.Record) error
	}

	// RecordReader returns every stored record in storage order.
	RecordReader interface {
		ReadAll(ctx context.Context) ([]core.Record, error)
	}

	RecordStore interface {
		RecordAppender
		RecordReader
	}

	// TaxonomyReader lists the category rows kept alongside the records.
	TaxonomyReader interface {
		ListCategories(ctx context.Context) ([]core.CategoryRow, error)
	}
)

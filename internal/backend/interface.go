package backend

import (
	"context"
	"slices"

	"fintrack/internal/sheets"
)

// Backend is a row store that also serves the category taxonomy.
type Backend interface {
	sheets.RecordStore
	sheets.TaxonomyReader
}

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult pairs a ready backend with what must run at shutdown.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// sqlite, with optional AMQP publishing
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string

	// memory: directory holding the category seed file
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// BackendTypes lists the supported backends.
func BackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, SheetsBackend}
}

func (bt BackendType) IsValid() bool {
	return slices.Contains(BackendTypes(), bt)
}

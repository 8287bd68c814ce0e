package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
	gsheet "fintrack/internal/sheets/google"
)

// FromAppConfig picks the backend related settings out of the process config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("nil app config")
	}
	bt := BackendType(app.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q: must be one of %v", app.DataBackend, BackendTypes())
	}

	return Config{
		Type: bt,

		SQLiteDBPath: app.SQLiteDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,

		GoogleSpreadsheetID:       app.GoogleSpreadsheetID,
		GoogleSheetName:           app.GoogleSheetName,
		GoogleCategoriesSheetName: app.GoogleCategoriesSheetName,
		GoogleServiceAccountJSON:  app.GoogleServiceAccountJSON,
		GoogleServiceAccountFile:  app.GoogleServiceAccountFile,

		DataDirectory: app.DataDir,
	}, nil
}

// Validate reports every setting the selected backend is missing.
// AMQP stays optional for sqlite.
func (c Config) Validate() error {
	var errs []error
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			errs = append(errs, errors.New("sqlite backend needs a database path"))
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, errors.New("sheets backend needs a spreadsheet id"))
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errs = append(errs, errors.New("sheets backend needs service account JSON or a credentials file"))
		}
	case MemoryBackend:
	default:
		errs = append(errs, fmt.Errorf("unknown backend type %q", c.Type))
	}
	return errors.Join(errs...)
}

// SheetsConfig returns the Google Sheets part of c.
func (c Config) SheetsConfig() gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:       c.GoogleSpreadsheetID,
		SheetName:           c.GoogleSheetName,
		CategoriesSheetName: c.GoogleCategoriesSheetName,
		ServiceAccountJSON:  c.GoogleServiceAccountJSON,
		ServiceAccountFile:  c.GoogleServiceAccountFile,
	}
}

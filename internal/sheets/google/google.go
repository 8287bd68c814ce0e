// Package google stores records in a Google Sheets spreadsheet, one row per
// record, using the shared row codec.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Config struct {
	SpreadsheetID       string
	SheetName           string
	CategoriesSheetName string
	ServiceAccountJSON  string
	ServiceAccountFile  string
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	recordsSheet    string
	categoriesSheet string
}

var (
	_ ports.RecordStore    = (*Client)(nil)
	_ ports.TaxonomyReader = (*Client)(nil)
)

// NewClient authenticates with a service account and returns a client for
// the configured spreadsheet.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return newWithService(svc, cfg), nil
}

func newWithService(svc *gsheet.Service, cfg Config) *Client {
	records := strings.TrimSpace(cfg.SheetName)
	if records == "" {
		records = "Transactions"
	}
	cats := strings.TrimSpace(cfg.CategoriesSheetName)
	if cats == "" {
		cats = "Categories"
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   strings.TrimSpace(cfg.SpreadsheetID),
		recordsSheet:    records,
		categoriesSheet: cats,
	}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

func (c *Client) recordsRange() string {
	return fmt.Sprintf("%s!A:%s", c.recordsSheet, lastColumn(len(core.RowHeader)))
}

// EnsureHeader writes the column header into an empty records sheet.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", c.recordsSheet, lastColumn(len(core.RowHeader)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{toCells(core.RowHeader)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	return nil
}

// Append adds r as a new row. Values are written RAW so amounts and dates
// are stored exactly as encoded.
func (c *Client) Append(ctx context.Context, r core.Record) error {
	vr := &gsheet.ValueRange{Values: [][]any{toCells(r.Row())}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.recordsRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.recordsSheet, err)
	}
	return nil
}

// ReadAll reads the whole records sheet. Rows that do not decode are skipped
// and logged so a hand-edited cell does not block every read.
func (c *Client) ReadAll(ctx context.Context) ([]core.Record, error) {
	rng := c.recordsRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	records, skipped := parseRecordRows(resp.Values)
	if len(skipped) > 0 {
		slog.WarnContext(ctx, "Skipped malformed sheet rows", "sheet", c.recordsSheet, "rows", skipped)
	}
	return records, nil
}

// ListCategories reads type, category and subcategory from the first three
// columns of the categories sheet.
func (c *Client) ListCategories(ctx context.Context) ([]core.CategoryRow, error) {
	rng := fmt.Sprintf("%s!A:C", c.categoriesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseCategoryRows(resp.Values), nil
}

func toCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// lastColumn returns the A1 letter of the n-th column (n <= 26).
func lastColumn(n int) string {
	return string(rune('A' + n - 1))
}

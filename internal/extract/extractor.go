package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Request is what a text-understanding capability receives.
type Request struct {
	Text            string    `json:"text"`
	CurrentDate     core.Date `json:"current_date"`
	KnownCategories []string  `json:"known_categories"`
}

// Response holds the capability's answer. Keys are type, amount, date,
// category, subcategory and note; any of them may be missing or malformed.
type Response map[string]any

// Capability turns free text into loosely structured fields. Implementations
// must honor ctx cancellation.
type Capability interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// CategorySource lists the category labels offered to the capability.
type CategorySource interface {
	Names() []string
}

// Extractor calls a Capability under a timeout and converts its untyped
// response into a core.Candidate.
type Extractor struct {
	capability Capability
	categories CategorySource
	timeout    time.Duration
}

func NewExtractor(capability Capability, categories CategorySource, timeout time.Duration) *Extractor {
	return &Extractor{capability: capability, categories: categories, timeout: timeout}
}

// Extract never trusts field types coming back from the capability. Fields
// that are present but unparsable come back nil with a Diagnostic attached.
func (e *Extractor) Extract(ctx context.Context, n Normalized, currentDate core.Date) (core.Candidate, error) {
	if n.Empty() {
		return core.Candidate{}, core.ErrEmptyInput
	}

	req := Request{Text: n.Text, CurrentDate: currentDate}
	if e.categories != nil {
		req.KnownCategories = e.categories.Names()
	}

	resp, err := e.call(ctx, req)
	if err != nil {
		return core.Candidate{}, err
	}

	c := core.Candidate{SourceText: n.Text}
	c.Type = e.stringField(&c, resp, "type")
	c.Category = e.stringField(&c, resp, "category")
	c.Subcategory = e.stringField(&c, resp, "subcategory")
	c.Note = e.stringField(&c, resp, "note")
	e.amountField(&c, resp, n.AmountToken)
	e.dateField(&c, resp, n.Text, currentDate)

	slog.DebugContext(ctx, "Fields extracted",
		"type", c.Type,
		"amount", c.AmountRaw,
		"date", c.DateRaw,
		"category", c.Category,
		"diagnostics", len(c.Diagnostics))
	return c, nil
}

func (e *Extractor) call(ctx context.Context, req Request) (Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := e.capability.Extract(ctx, req)
		done <- result{resp, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-done:
	}

	switch {
	case res.err == nil && res.resp == nil:
		return nil, fmt.Errorf("%w: empty response", core.ErrExtractionFormat)
	case res.err == nil:
		return res.resp, nil
	case errors.Is(res.err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %v", core.ErrExtractionTimeout, e.timeout)
	case errors.Is(res.err, core.ErrExtractionFormat), errors.Is(res.err, core.ErrExtractionTimeout):
		return nil, res.err
	case errors.Is(res.err, context.Canceled):
		return nil, res.err
	}
	return nil, fmt.Errorf("%w: %v", core.ErrExtractionUnavailable, res.err)
}

func (e *Extractor) stringField(c *core.Candidate, resp Response, key string) string {
	v, ok := lookup(resp, key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	diagnose(c, key, v, "not a string")
	return ""
}

func (e *Extractor) amountField(c *core.Candidate, resp Response, token string) {
	if v, ok := lookup(resp, "amount"); ok {
		amount, raw, err := toDecimal(v)
		if err == nil {
			c.Amount, c.AmountRaw = &amount, raw
			return
		}
		diagnose(c, "amount", v, err.Error())
	}
	if token == "" {
		return
	}
	if amount, err := core.ParseAmount(token); err == nil {
		c.Amount, c.AmountRaw = &amount, token
	}
}

func (e *Extractor) dateField(c *core.Candidate, resp Response, text string, currentDate core.Date) {
	if v, ok := lookup(resp, "date"); ok {
		s, isString := v.(string)
		s = strings.TrimSpace(s)
		switch {
		case !isString:
			diagnose(c, "date", v, "not a string")
		default:
			if d, err := core.ParseDate(s); err == nil {
				c.Date, c.DateRaw = &d, s
			} else if m, found := ResolveDate(s, currentDate); found && strings.EqualFold(m.Phrase, s) {
				c.Date, c.DateRaw = &m.Date, s
			} else {
				diagnose(c, "date", v, "unrecognized date")
			}
		}
	}

	// A date phrase in the user's own text always wins over the provider's
	// reading of it, since only the local resolution is anchored on
	// currentDate.
	m, found := ResolveDate(text, currentDate)
	if !found {
		return
	}
	d := m.Date
	c.Date, c.DateRaw = &d, m.Phrase
	c.DueDate, c.ForwardDate = false, nil
	if IsDueDate(text, m) {
		fwd := m.Forward(currentDate)
		c.DueDate, c.ForwardDate = true, &fwd
	}
	dropDiagnostic(c, "date")
}

func lookup(resp Response, key string) (any, bool) {
	if v, ok := resp[key]; ok {
		return v, present(v)
	}
	for k, v := range resp {
		if strings.EqualFold(k, key) {
			return v, present(v)
		}
	}
	return nil, false
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != "" && !strings.EqualFold(strings.TrimSpace(t), "null")
	}
	return true
}

func toDecimal(v any) (decimal.Decimal, string, error) {
	switch t := v.(type) {
	case string:
		d, err := core.ParseAmount(t)
		return d, strings.TrimSpace(t), err
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, "", core.ErrInvalidAmount
		}
		d := decimal.NewFromFloat(t)
		return d, d.String(), nil
	case int:
		d := decimal.NewFromInt(int64(t))
		return d, d.String(), nil
	case int64:
		d := decimal.NewFromInt(t)
		return d, d.String(), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Decimal{}, "", core.ErrInvalidAmount
		}
		return d, t.String(), nil
	case decimal.Decimal:
		return t, t.String(), nil
	}
	return decimal.Decimal{}, "", fmt.Errorf("unsupported amount type %T", v)
}

func diagnose(c *core.Candidate, field string, v any, reason string) {
	c.Diagnostics = append(c.Diagnostics, core.Diagnostic{Field: field, Value: fmt.Sprint(v), Reason: reason})
}

func dropDiagnostic(c *core.Candidate, field string) {
	kept := c.Diagnostics[:0]
	for _, d := range c.Diagnostics {
		if d.Field != field {
			kept = append(kept, d)
		}
	}
	c.Diagnostics = kept
}

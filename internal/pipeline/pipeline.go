// Package pipeline runs one free-text submission through normalization,
// extraction, category resolution and validation, then appends the result
// to the ledger.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"fintrack/internal/core"
	"fintrack/internal/extract"
	"fintrack/internal/log"
	"fintrack/internal/taxonomy"
)

type Extractor interface {
	Extract(ctx context.Context, n extract.Normalized, currentDate core.Date) (core.Candidate, error)
}

type Appender interface {
	Append(ctx context.Context, r core.Record) error
}

type Pipeline struct {
	extractor Extractor
	resolver  *taxonomy.Resolver
	gate      *Gate
	ledger    Appender
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Pipeline)

// WithClock replaces time.Now for ingestion timestamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.gate.now = now
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger.WithComponent(log.ComponentPipeline) }
}

func New(extractor Extractor, resolver *taxonomy.Resolver, ledger Appender, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		resolver:  resolver,
		gate:      NewGate(time.Now),
		ledger:    ledger,
		now:       time.Now,
		logger:    log.Default().WithComponent(log.ComponentPipeline),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit processes text end to end. A zero currentDate means today. The
// record keeps text verbatim as its source. Every error is a
// *core.SubmissionError carrying the original text; nothing is appended
// unless the record passed validation.
func (p *Pipeline) Submit(ctx context.Context, text string, currentDate core.Date) (core.Record, error) {
	today := core.DateOf(p.now().UTC())
	if currentDate.IsEmpty() {
		currentDate = today
	}

	if l := utf8.RuneCountInString(strings.TrimSpace(text)); l > extract.MaxInputLength {
		err := fmt.Errorf("%w: %d characters, at most %d allowed", core.ErrInputTooLong, l, extract.MaxInputLength)
		return core.Record{}, p.reject(ctx, text, err)
	}

	n := extract.Normalize(text)
	if n.Empty() {
		return core.Record{}, p.reject(ctx, text, core.ErrEmptyInput)
	}

	c, err := p.extractor.Extract(ctx, n, currentDate)
	if err != nil {
		return core.Record{}, p.reject(ctx, text, err)
	}

	typ, _ := core.ParseTransactionType(c.Type)
	res := p.resolver.ResolveWithHint(c.Category, c.Subcategory, c.Note, typ)

	rec, err := p.gate.Validate(c, res, currentDate)
	if err != nil {
		return core.Record{}, p.reject(ctx, text, err)
	}
	rec.SourceText = text

	if err := p.ledger.Append(ctx, rec); err != nil {
		return core.Record{}, p.reject(ctx, text, err)
	}

	p.logger.InfoContext(ctx, "Transaction recorded", log.NewFields().
		WithOperation(log.OpAppend).
		WithTransaction(rec.ID, rec.Type.String(), rec.Amount.String(), rec.Category, rec.Subcategory, string(rec.Status)).
		ToSlice()...)
	return rec, nil
}

func (p *Pipeline) reject(ctx context.Context, text string, err error) error {
	p.logger.WarnContext(ctx, "Submission rejected", log.FieldError, err, "retryable", core.IsRetryable(err))
	return &core.SubmissionError{Input: text, Err: err}
}

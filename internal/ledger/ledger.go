// Package ledger is the append-only transaction collection. Writes go
// through a single slot; reads are served from an immutable snapshot that is
// reloaded from the backing store when it gets old.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	DefaultRefreshInterval = 30 * time.Second

	rangeCacheSize = 64
	rangeCacheTTL  = 5 * time.Minute
	reloadAttempts = 3
)

type Ledger struct {
	store   sheets.RecordStore
	writeMu *semaphore.Weighted
	loads   singleflight.Group
	ranges  *cache.LRU[[]core.Record]
	refresh time.Duration
	now     func() time.Time
	logger  *log.Logger

	mu       sync.RWMutex
	records  []core.Record
	ids      map[string]struct{}
	gen      uint64
	loaded   bool
	loadedAt time.Time
}

type Option func(*Ledger)

// WithRefreshInterval sets how old a snapshot may get before reads reload
// it. Zero disables periodic reloads.
func WithRefreshInterval(d time.Duration) Option {
	return func(l *Ledger) { l.refresh = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(log.ComponentLedger) }
}

func New(store sheets.RecordStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		writeMu: semaphore.NewWeighted(1),
		ranges:  cache.NewLRU[[]core.Record](rangeCacheSize, rangeCacheTTL),
		refresh: DefaultRefreshInterval,
		now:     time.Now,
		logger:  log.Default().WithComponent(log.ComponentLedger),
		ids:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RangeCache exposes the memoized range reads so they can be swept.
func (l *Ledger) RangeCache() cache.Cleaner { return l.ranges }

// Append writes r to the store and publishes it to readers. Only one append
// runs at a time; waiting honors ctx. A failed write leaves the snapshot as
// it was.
func (l *Ledger) Append(ctx context.Context, r core.Record) error {
	if err := l.writeMu.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for append slot: %w", err)
	}
	defer l.writeMu.Release(1)

	if err := l.ensureFresh(ctx); err != nil {
		return err
	}

	l.mu.RLock()
	_, dup := l.ids[r.ID]
	l.mu.RUnlock()
	if dup {
		return fmt.Errorf("record %s already in ledger: %w", r.ID, core.ErrAppendConflict)
	}

	if err := l.store.Append(ctx, r); err != nil {
		if errors.Is(err, core.ErrAppendConflict) {
			// The store moved on without us; reload before the next read.
			l.invalidate()
			return err
		}
		return fmt.Errorf("append to store: %w", err)
	}

	l.mu.Lock()
	l.records = insertSorted(l.records, r)
	l.ids[r.ID] = struct{}{}
	l.gen++
	l.mu.Unlock()
	l.ranges.Purge()

	l.logger.DebugContext(ctx, "Record appended", log.FieldTxID, r.ID, log.FieldOperation, log.OpAppend)
	return nil
}

// ReadAll returns every record in ledger order.
func (l *Ledger) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := l.ensureFresh(ctx); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Record(nil), l.records...), nil
}

// ReadRange returns records dated within [start, end]. A zero bound is open.
func (l *Ledger) ReadRange(ctx context.Context, start, end core.Date) ([]core.Record, error) {
	if !start.IsEmpty() && !end.IsEmpty() && end.Before(start) {
		return nil, fmt.Errorf("range %s..%s: %w", start, end, core.ErrInvalidWindow)
	}
	if err := l.ensureFresh(ctx); err != nil {
		return nil, err
	}

	l.mu.RLock()
	key := fmt.Sprintf("%d|%s|%s", l.gen, start, end)
	if hit, ok := l.ranges.Get(key); ok {
		l.mu.RUnlock()
		return append([]core.Record(nil), hit...), nil
	}
	w := core.Window{Start: start, End: end}
	var out []core.Record
	for _, r := range l.records {
		if w.Contains(r.Date) {
			out = append(out, r)
		}
	}
	l.mu.RUnlock()

	l.ranges.Set(key, out)
	return append([]core.Record(nil), out...), nil
}

// invalidate forces the next read to reload from the store.
func (l *Ledger) invalidate() {
	l.mu.Lock()
	l.loaded = false
	l.mu.Unlock()
	l.ranges.Purge()
}

// Len reports the number of records in the current snapshot.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Ledger) ensureFresh(ctx context.Context) error {
	l.mu.RLock()
	stale := !l.loaded || (l.refresh > 0 && l.now().Sub(l.loadedAt) >= l.refresh)
	l.mu.RUnlock()
	if !stale {
		return nil
	}

	_, err, _ := l.loads.Do("reload", func() (any, error) {
		return nil, l.reload(ctx)
	})
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	return nil
}

// reload replaces the snapshot with the store contents. If an append lands
// while the store is being read the read is retried, so a published record
// is never dropped by an older read.
func (l *Ledger) reload(ctx context.Context) error {
	for attempt := 0; attempt < reloadAttempts; attempt++ {
		l.mu.RLock()
		gen := l.gen
		l.mu.RUnlock()

		records, err := l.store.ReadAll(ctx)
		if err != nil {
			return err
		}
		sortRecords(records)
		ids := make(map[string]struct{}, len(records))
		for _, r := range records {
			ids[r.ID] = struct{}{}
		}

		l.mu.Lock()
		if l.gen != gen {
			l.mu.Unlock()
			continue
		}
		l.records, l.ids = records, ids
		l.gen++
		l.loaded, l.loadedAt = true, l.now()
		l.mu.Unlock()
		l.ranges.Purge()

		l.logger.DebugContext(ctx, "Ledger reloaded", "records", len(records), log.FieldOperation, log.OpReload)
		return nil
	}

	// Appends kept landing; the published snapshot already includes them.
	l.mu.Lock()
	l.loaded, l.loadedAt = true, l.now()
	l.mu.Unlock()
	return nil
}

func less(a, b core.Record) bool { return a.Before(b) }

func sortRecords(rs []core.Record) {
	sort.SliceStable(rs, func(i, j int) bool { return less(rs[i], rs[j]) })
}

// insertSorted returns a new slice; the old one may still be held by readers.
func insertSorted(rs []core.Record, r core.Record) []core.Record {
	i := sort.Search(len(rs), func(i int) bool { return less(r, rs[i]) })
	out := make([]core.Record, 0, len(rs)+1)
	out = append(out, rs[:i]...)
	out = append(out, r)
	return append(out, rs[i:]...)
}

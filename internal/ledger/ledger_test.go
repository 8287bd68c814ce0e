package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
)

var base = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func rec(id string, date core.Date, ingestOffset time.Duration) core.Record {
	return core.Record{
		ID:         id,
		Type:       core.Expense,
		Amount:     decimal.NewFromInt(10),
		Category:   "Food & Dining",
		Date:       date,
		Status:     core.Confirmed,
		SourceText: "spent 10 on " + id,
		IngestedAt: base.Add(ingestOffset),
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingStore wraps the memory store and counts reads.
type countingStore struct {
	*memory.Store
	mu        sync.Mutex
	reads     int
	appendErr error
	readErr   error
}

func (s *countingStore) ReadAll(ctx context.Context) ([]core.Record, error) {
	s.mu.Lock()
	s.reads++
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.ReadAll(ctx)
}

func (s *countingStore) Append(ctx context.Context, r core.Record) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.Store.Append(ctx, r)
}

func (s *countingStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func newStore() *countingStore { return &countingStore{Store: memory.New(nil)} }

func TestAppendAndReadOrdering(t *testing.T) {
	ctx := context.Background()
	l := New(newStore())

	require.NoError(t, l.Append(ctx, rec("c", core.NewDate(2024, 6, 2), 0)))
	require.NoError(t, l.Append(ctx, rec("b", core.NewDate(2024, 6, 1), 2*time.Second)))
	require.NoError(t, l.Append(ctx, rec("a", core.NewDate(2024, 6, 1), time.Second)))
	require.NoError(t, l.Append(ctx, rec("d", core.NewDate(2024, 6, 1), time.Second)))

	all, err := l.ReadAll(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
}

func TestReadRangeInclusive(t *testing.T) {
	ctx := context.Background()
	l := New(newStore())
	for i, d := range []int{1, 5, 10, 15, 20} {
		require.NoError(t, l.Append(ctx, rec(fmt.Sprintf("r%d", i), core.NewDate(2024, 6, d), 0)))
	}

	got, err := l.ReadRange(ctx, core.NewDate(2024, 6, 5), core.NewDate(2024, 6, 15))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-06-05", got[0].Date.String())
	assert.Equal(t, "2024-06-15", got[2].Date.String())

	open, err := l.ReadRange(ctx, core.Date{}, core.NewDate(2024, 6, 5))
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = l.ReadRange(ctx, core.NewDate(2024, 6, 15), core.NewDate(2024, 6, 5))
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

func TestRangeCacheIsPurgedOnAppend(t *testing.T) {
	ctx := context.Background()
	l := New(newStore())
	june := core.Month(2024, 6)

	require.NoError(t, l.Append(ctx, rec("a", core.NewDate(2024, 6, 1), 0)))
	first, err := l.ReadRange(ctx, june.Start, june.End)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, l.Append(ctx, rec("b", core.NewDate(2024, 6, 2), 0)))
	second, err := l.ReadRange(ctx, june.Start, june.End)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	l := New(newStore())
	require.NoError(t, l.Append(ctx, rec("a", core.NewDate(2024, 6, 1), 0)))

	all, _ := l.ReadAll(ctx)
	all[0].Category = "mutated"
	ranged, _ := l.ReadRange(ctx, core.Date{}, core.Date{})
	ranged[0].Category = "mutated"

	again, _ := l.ReadRange(ctx, core.Date{}, core.Date{})
	assert.Equal(t, "Food & Dining", again[0].Category)
}

func TestDuplicateIDIsConflict(t *testing.T) {
	ctx := context.Background()
	l := New(newStore())
	r := rec("a", core.NewDate(2024, 6, 1), 0)
	require.NoError(t, l.Append(ctx, r))

	err := l.Append(ctx, r)
	require.ErrorIs(t, err, core.ErrAppendConflict)
	assert.Equal(t, 1, l.Len())
}

func TestStoreConflictIsReported(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := New(store)
	require.NoError(t, store.Store.Append(ctx, rec("a", core.NewDate(2024, 6, 1), 0)))
	_, err := l.ReadAll(ctx)
	require.NoError(t, err)

	// Out-of-band write after the snapshot was taken.
	require.NoError(t, store.Store.Append(ctx, rec("b", core.NewDate(2024, 6, 1), 0)))
	err = l.Append(ctx, rec("b", core.NewDate(2024, 6, 1), 0))
	require.ErrorIs(t, err, core.ErrAppendConflict)
	assert.Equal(t, 1, l.Len())

	// The conflict drops the stale snapshot.
	all, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFailedAppendLeavesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := New(store)
	require.NoError(t, l.Append(ctx, rec("a", core.NewDate(2024, 6, 1), 0)))

	store.appendErr = errors.New("quota exceeded")
	err := l.Append(ctx, rec("b", core.NewDate(2024, 6, 2), 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrAppendConflict)

	all, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
}

func TestSnapshotRefresh(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: base}
	store := newStore()
	l := New(store, WithClock(c.now), WithRefreshInterval(time.Minute))

	_, err := l.ReadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Store.Append(ctx, rec("out-of-band", core.NewDate(2024, 6, 1), 0)))

	all, _ := l.ReadAll(ctx)
	assert.Empty(t, all, "snapshot is still fresh")

	c.advance(2 * time.Minute)
	all, _ = l.ReadAll(ctx)
	assert.Len(t, all, 1)
	assert.Equal(t, 2, store.readCount())
}

func TestReloadError(t *testing.T) {
	store := newStore()
	store.readErr = errors.New("sheet unavailable")
	l := New(store)

	_, err := l.ReadAll(context.Background())
	require.Error(t, err)
	err = l.Append(context.Background(), rec("a", core.NewDate(2024, 6, 1), 0))
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	l := New(store)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(ctx, rec(fmt.Sprintf("r%02d", i), core.NewDate(2024, 6, 1+i%28), 0)))
		}(i)
		go func() {
			defer wg.Done()
			_, err := l.ReadRange(ctx, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := l.ReadRange(ctx, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))
	require.NoError(t, err)
	require.Len(t, all, n)
	seen := map[string]int{}
	for i, r := range all {
		seen[r.ID]++
		if i > 0 {
			assert.False(t, r.Date.Before(all[i-1].Date), "records out of order at %d", i)
		}
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "record %s seen %d times", id, count)
	}
	assert.Equal(t, n, store.Len())
}

func TestAppendHonorsContext(t *testing.T) {
	l := New(newStore())
	require.NoError(t, l.writeMu.Acquire(context.Background(), 1))
	defer l.writeMu.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Append(ctx, rec("a", core.NewDate(2024, 6, 1), 0))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func totals(in []core.Record) Totals {
	t := Totals{ByType: make(map[core.TransactionType]TypeTotal, 4), Net: decimal.Zero}
	for _, typ := range core.TransactionTypes() {
		t.ByType[typ] = TypeTotal{Amount: decimal.Zero}
	}
	for _, r := range in {
		tt, ok := t.ByType[r.Type]
		if !ok {
			continue
		}
		tt.Amount = tt.Amount.Add(r.Amount)
		tt.Count++
		t.ByType[r.Type] = tt
	}
	t.Net = t.ByType[core.Income].Amount.Sub(t.ByType[core.Expense].Amount)
	return t
}

type monthKey struct{ year, month int }

func (k monthKey) next() monthKey {
	if k.month == 12 {
		return monthKey{k.year + 1, 1}
	}
	return monthKey{k.year, k.month + 1}
}

func (k monthKey) after(o monthKey) bool {
	return k.year > o.year || (k.year == o.year && k.month > o.month)
}

func keyOf(d core.Date) monthKey { return monthKey{d.Year(), d.Month()} }

// monthlyTrend spans the window's months, falling back to the first and last
// record months for an unbounded side. A bounded window lists its months even
// when no record falls inside it.
func monthlyTrend(in []core.Record, w core.Window) []MonthPoint {
	if len(in) == 0 && !w.Bounded() {
		return []MonthPoint{}
	}

	var first, last monthKey
	if len(in) > 0 {
		first, last = keyOf(in[0].Date), keyOf(in[len(in)-1].Date)
	}
	if !w.Start.IsZero() {
		first = keyOf(w.Start)
	}
	if !w.End.IsZero() {
		last = keyOf(w.End)
	}

	index := make(map[monthKey]int)
	var points []MonthPoint
	for k := first; !k.after(last); k = k.next() {
		index[k] = len(points)
		points = append(points, MonthPoint{Year: k.year, Month: k.month, ByType: zeroByType()})
	}
	for _, r := range in {
		i, ok := index[keyOf(r.Date)]
		if !ok {
			continue
		}
		if cur, ok := points[i].ByType[r.Type]; ok {
			points[i].ByType[r.Type] = cur.Add(r.Amount)
		}
	}
	return points
}

func categoryBreakdown(in []core.Record) map[core.TransactionType][]CategoryAmount {
	type acc struct {
		amount decimal.Decimal
		count  int
	}
	sums := make(map[core.TransactionType]map[string]*acc)
	typeTotal := make(map[core.TransactionType]decimal.Decimal)
	for _, r := range in {
		if sums[r.Type] == nil {
			sums[r.Type] = make(map[string]*acc)
		}
		a := sums[r.Type][r.Category]
		if a == nil {
			a = &acc{amount: decimal.Zero}
			sums[r.Type][r.Category] = a
		}
		a.amount = a.amount.Add(r.Amount)
		a.count++
		typeTotal[r.Type] = typeTotal[r.Type].Add(r.Amount)
	}

	out := make(map[core.TransactionType][]CategoryAmount, 4)
	for _, typ := range core.TransactionTypes() {
		rows := make([]CategoryAmount, 0, len(sums[typ]))
		total := typeTotal[typ]
		for name, a := range sums[typ] {
			share := 0.0
			if total.IsPositive() {
				share = a.amount.Div(total).InexactFloat64()
			}
			rows = append(rows, CategoryAmount{Category: name, Amount: a.amount, Count: a.count, Share: share})
		}
		sort.Slice(rows, func(i, j int) bool {
			if c := rows[i].Amount.Cmp(rows[j].Amount); c != 0 {
				return c > 0
			}
			return rows[i].Category < rows[j].Category
		})
		out[typ] = rows
	}
	return out
}

func top(rows []CategoryAmount, n int) []CategoryAmount {
	if len(rows) > n {
		rows = rows[:n]
	}
	out := make([]CategoryAmount, len(rows))
	copy(out, rows)
	return out
}

func weekdayWeekend(in []core.Record) DayTypeSplit {
	var s DayTypeSplit
	s.Weekday.Total, s.Weekend.Total = decimal.Zero, decimal.Zero
	for _, r := range in {
		if r.Type != core.Expense && r.Type != core.Income {
			continue
		}
		p := &s.Weekday
		if r.Date.IsWeekend() {
			p = &s.Weekend
		}
		p.Count++
		p.Total = p.Total.Add(r.Amount)
	}
	for _, p := range []*Partition{&s.Weekday, &s.Weekend} {
		p.Mean = decimal.Zero
		if p.Count > 0 {
			p.Mean = p.Total.Div(decimal.NewFromInt(int64(p.Count)))
		}
	}
	return s
}

// weekOfMonth buckets days 1-7 into week 1 and so on; week 5 holds 29-31.
func weekOfMonth(in []core.Record) []WeekBucket {
	buckets := make([]WeekBucket, 5)
	for i := range buckets {
		buckets[i] = WeekBucket{Week: i + 1, ByType: zeroByType()}
	}
	for _, r := range in {
		b := buckets[(r.Date.Day()-1)/7]
		if cur, ok := b.ByType[r.Type]; ok {
			b.ByType[r.Type] = cur.Add(r.Amount)
		}
	}
	return buckets
}

package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type typeCategory struct {
	typ      core.TransactionType
	category string
}

// fixedVariable classifies each (type, category) by how steady its monthly
// totals are. Categories seen in a single transaction are left out.
func fixedVariable(in []core.Record, threshold float64) []Recurrence {
	type group struct {
		count  int
		months map[monthKey]decimal.Decimal
	}
	groups := make(map[typeCategory]*group)
	for _, r := range in {
		k := typeCategory{r.Type, r.Category}
		g := groups[k]
		if g == nil {
			g = &group{months: make(map[monthKey]decimal.Decimal)}
			groups[k] = g
		}
		g.count++
		m := keyOf(r.Date)
		g.months[m] = g.months[m].Add(r.Amount)
	}

	out := make([]Recurrence, 0, len(groups))
	for k, g := range groups {
		if g.count < 2 {
			continue
		}
		keys := make([]monthKey, 0, len(g.months))
		for m := range g.months {
			keys = append(keys, m)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[j].after(keys[i]) })

		monthly := make([]decimal.Decimal, len(keys))
		values := make([]float64, len(keys))
		for i, m := range keys {
			monthly[i] = g.months[m]
			values[i] = g.months[m].InexactFloat64()
		}

		mean, sd := meanStdDev(values)
		cv := 0.0
		if mean > 0 {
			cv = sd / mean
		}
		out = append(out, Recurrence{
			Type:          k.typ,
			Category:      k.category,
			Months:        len(keys),
			MonthlyTotals: monthly,
			Mean:          mean,
			StdDev:        sd,
			CV:            cv,
			Fixed:         len(keys) >= 2 && mean > 0 && cv < threshold,
		})
	}

	order := typeOrder()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return order[out[i].Type] < order[out[j].Type]
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func typeOrder() map[core.TransactionType]int {
	m := make(map[core.TransactionType]int, 4)
	for i, t := range core.TransactionTypes() {
		m[t] = i
	}
	return m
}

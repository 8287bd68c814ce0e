// Package analytics computes time-windowed insights over ledger records.
//
// The engine is pure: the same records and window always produce the same
// Result. Sums are exact decimals; only dispersion statistics use float64.
// Nothing here rounds for display.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	DefaultTopN              = 5
	DefaultFixedCVThreshold  = 0.15
	DefaultAnomalyStdDevs    = 2.0
	DefaultMinAnomalyHistory = 3
)

type Options struct {
	// TopN bounds TopSources and TopExpenses.
	TopN int
	// FixedCVThreshold is the coefficient of variation below which a
	// recurring category counts as fixed.
	FixedCVThreshold float64
	// AnomalyStdDevs is k in mean + k·σ.
	AnomalyStdDevs float64
	// MinAnomalyHistory is the number of prior observations a category needs
	// before any of its transactions can be flagged.
	MinAnomalyHistory int
}

func DefaultOptions() Options {
	return Options{
		TopN:              DefaultTopN,
		FixedCVThreshold:  DefaultFixedCVThreshold,
		AnomalyStdDevs:    DefaultAnomalyStdDevs,
		MinAnomalyHistory: DefaultMinAnomalyHistory,
	}
}

type Engine struct {
	opts Options
}

// NewEngine fills unset or non-positive options with their defaults.
func NewEngine(opts Options) *Engine {
	d := DefaultOptions()
	if opts.TopN <= 0 {
		opts.TopN = d.TopN
	}
	if opts.FixedCVThreshold <= 0 {
		opts.FixedCVThreshold = d.FixedCVThreshold
	}
	if opts.AnomalyStdDevs <= 0 {
		opts.AnomalyStdDevs = d.AnomalyStdDevs
	}
	if opts.MinAnomalyHistory <= 0 {
		opts.MinAnomalyHistory = d.MinAnomalyHistory
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

type (
	// TypeTotal is the sum and count of one transaction type.
	TypeTotal struct {
		Amount decimal.Decimal
		Count  int
	}

	Totals struct {
		ByType map[core.TransactionType]TypeTotal
		// Net is Income minus Expense. Scheduled types do not count.
		Net decimal.Decimal
	}

	MonthPoint struct {
		Year   int
		Month  int
		ByType map[core.TransactionType]decimal.Decimal
	}

	CategoryAmount struct {
		Category string
		Amount   decimal.Decimal
		Count    int
		// Share of the type total, in [0, 1].
		Share float64
	}

	Partition struct {
		Count int
		Total decimal.Decimal
		Mean  decimal.Decimal
	}

	DayTypeSplit struct {
		Weekday Partition
		Weekend Partition
	}

	Recurrence struct {
		Type          core.TransactionType
		Category      string
		Months        int
		MonthlyTotals []decimal.Decimal
		Mean          float64
		StdDev        float64
		CV            float64
		Fixed         bool
	}

	WeekBucket struct {
		Week   int
		ByType map[core.TransactionType]decimal.Decimal
	}

	Anomaly struct {
		Record    core.Record
		History   int
		Mean      float64
		StdDev    float64
		Threshold float64
	}

	Result struct {
		Window            core.Window
		Totals            Totals
		MonthlyTrend      []MonthPoint
		CategoryBreakdown map[core.TransactionType][]CategoryAmount
		TopSources        []CategoryAmount
		TopExpenses       []CategoryAmount
		WeekdayWeekend    DayTypeSplit
		FixedVariable     []Recurrence
		WeekOfMonth       []WeekBucket
		Anomalies         []Anomaly
	}
)

// Analyze computes every insight for records inside w. Records outside w
// still serve as anomaly history. The input slice is not modified.
func (e *Engine) Analyze(records []core.Record, w core.Window) Result {
	all := make([]core.Record, len(records))
	copy(all, records)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Before(all[j]) })

	in := make([]core.Record, 0, len(all))
	for _, r := range all {
		if w.Contains(r.Date) {
			in = append(in, r)
		}
	}

	breakdown := categoryBreakdown(in)
	return Result{
		Window:            w,
		Totals:            totals(in),
		MonthlyTrend:      monthlyTrend(in, w),
		CategoryBreakdown: breakdown,
		TopSources:        top(breakdown[core.Income], e.opts.TopN),
		TopExpenses:       top(breakdown[core.Expense], e.opts.TopN),
		WeekdayWeekend:    weekdayWeekend(in),
		FixedVariable:     fixedVariable(in, e.opts.FixedCVThreshold),
		WeekOfMonth:       weekOfMonth(in),
		Anomalies:         e.anomalies(all, w),
	}
}

func zeroByType() map[core.TransactionType]decimal.Decimal {
	m := make(map[core.TransactionType]decimal.Decimal, 4)
	for _, t := range core.TransactionTypes() {
		m[t] = decimal.Zero
	}
	return m
}

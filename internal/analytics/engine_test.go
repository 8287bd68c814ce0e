package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

var seq int

func rec(typ core.TransactionType, category, amount string, y, m, d int) core.Record {
	seq++
	return core.Record{
		ID:         fmt.Sprintf("r%03d", seq),
		Type:       typ,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		Date:       core.NewDate(y, m, d),
		Status:     core.Confirmed,
		IngestedAt: time.Date(y, time.Month(m), d, 12, 0, seq, 0, time.UTC),
	}
}

func dec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestAnalyzeEmpty(t *testing.T) {
	e := NewEngine(Options{})
	for _, tc := range []struct {
		w      core.Window
		months int
	}{
		{core.AllTime(), 0},
		{core.Year(2024), 12},
		{core.Month(2024, 2), 1},
	} {
		res := e.Analyze(nil, tc.w)

		require.Len(t, res.Totals.ByType, 4)
		for _, tt := range res.Totals.ByType {
			assert.True(t, tt.Amount.IsZero())
			assert.Zero(t, tt.Count)
		}
		assert.True(t, res.Totals.Net.IsZero())
		require.Len(t, res.MonthlyTrend, tc.months)
		for _, p := range res.MonthlyTrend {
			for _, v := range p.ByType {
				assert.True(t, v.IsZero())
			}
		}
		for _, rows := range res.CategoryBreakdown {
			assert.Empty(t, rows)
		}
		assert.Empty(t, res.TopSources)
		assert.Empty(t, res.TopExpenses)
		assert.Empty(t, res.FixedVariable)
		assert.Empty(t, res.Anomalies)
		assert.Len(t, res.WeekOfMonth, 5)
		assert.Zero(t, res.WeekdayWeekend.Weekday.Count)
		assert.True(t, res.WeekdayWeekend.Weekend.Mean.IsZero())
	}
}

func TestTotals(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Food & Dining", "25.10", 2024, 6, 3),
		rec(core.Expense, "Transportation", "14.90", 2024, 6, 4),
		rec(core.Income, "Salary", "5000", 2024, 6, 1),
		rec(core.ToPay, "Bills & Utilities", "120", 2024, 6, 17),
		rec(core.Expense, "Food & Dining", "99", 2023, 12, 31),
	}
	res := NewEngine(DefaultOptions()).Analyze(records, core.Year(2024))

	dec(t, "40", res.Totals.ByType[core.Expense].Amount)
	assert.Equal(t, 2, res.Totals.ByType[core.Expense].Count)
	dec(t, "5000", res.Totals.ByType[core.Income].Amount)
	dec(t, "120", res.Totals.ByType[core.ToPay].Amount)
	dec(t, "0", res.Totals.ByType[core.ToReceive].Amount)
	dec(t, "4960", res.Totals.Net)
}

func TestMonthlyTrendZeroFills(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Food & Dining", "10", 2024, 1, 15),
		rec(core.Expense, "Food & Dining", "30", 2024, 4, 2),
	}
	e := NewEngine(DefaultOptions())

	allTime := e.Analyze(records, core.AllTime())
	require.Len(t, allTime.MonthlyTrend, 4)
	assert.Equal(t, 1, allTime.MonthlyTrend[0].Month)
	assert.Equal(t, 4, allTime.MonthlyTrend[3].Month)
	dec(t, "0", allTime.MonthlyTrend[1].ByType[core.Expense])
	dec(t, "30", allTime.MonthlyTrend[3].ByType[core.Expense])

	year := e.Analyze(records, core.Year(2024))
	require.Len(t, year.MonthlyTrend, 12)
	dec(t, "10", year.MonthlyTrend[0].ByType[core.Expense])
	dec(t, "0", year.MonthlyTrend[11].ByType[core.Expense])

	empty := e.Analyze(records, core.Year(2022))
	require.Len(t, empty.MonthlyTrend, 12)
	assert.Equal(t, [2]int{2022, 1}, [2]int{empty.MonthlyTrend[0].Year, empty.MonthlyTrend[0].Month})
	dec(t, "0", empty.MonthlyTrend[0].ByType[core.Expense])
}

func TestMonthlyTrendAcrossYears(t *testing.T) {
	records := []core.Record{
		rec(core.Income, "Salary", "1", 2023, 11, 1),
		rec(core.Income, "Salary", "1", 2024, 2, 1),
	}
	res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())
	require.Len(t, res.MonthlyTrend, 4)
	assert.Equal(t, [2]int{2023, 12}, [2]int{res.MonthlyTrend[1].Year, res.MonthlyTrend[1].Month})
	assert.Equal(t, [2]int{2024, 1}, [2]int{res.MonthlyTrend[2].Year, res.MonthlyTrend[2].Month})
}

func TestCategoryBreakdownAndTop(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Shopping", "50", 2024, 6, 1),
		rec(core.Expense, "Food & Dining", "30", 2024, 6, 2),
		rec(core.Expense, "Food & Dining", "20", 2024, 6, 3),
		rec(core.Expense, "Travel", "100", 2024, 6, 4),
		rec(core.Income, "Salary", "3000", 2024, 6, 1),
		rec(core.Income, "Freelance", "1000", 2024, 6, 20),
	}
	res := NewEngine(Options{TopN: 2}).Analyze(records, core.Month(2024, 6))

	exp := res.CategoryBreakdown[core.Expense]
	require.Len(t, exp, 3)
	assert.Equal(t, "Travel", exp[0].Category)
	// ties on amount sort by name
	assert.Equal(t, "Food & Dining", exp[1].Category)
	assert.Equal(t, "Shopping", exp[2].Category)
	assert.Equal(t, 2, exp[1].Count)
	assert.InDelta(t, 0.5, exp[0].Share, 1e-9)

	require.Len(t, res.TopExpenses, 2)
	assert.Equal(t, "Travel", res.TopExpenses[0].Category)
	require.Len(t, res.TopSources, 2)
	assert.Equal(t, "Salary", res.TopSources[0].Category)
	assert.InDelta(t, 0.75, res.TopSources[0].Share, 1e-9)
}

func TestWeekdayWeekend(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Food & Dining", "10", 2024, 6, 10), // Monday
		rec(core.Expense, "Food & Dining", "20", 2024, 6, 11),
		rec(core.Expense, "Entertainment", "90", 2024, 6, 15), // Saturday
		rec(core.ToPay, "Housing", "900", 2024, 6, 16),
	}
	res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())

	assert.Equal(t, 2, res.WeekdayWeekend.Weekday.Count)
	dec(t, "15", res.WeekdayWeekend.Weekday.Mean)
	assert.Equal(t, 1, res.WeekdayWeekend.Weekend.Count)
	dec(t, "90", res.WeekdayWeekend.Weekend.Total)
}

func TestFixedVariable(t *testing.T) {
	var records []core.Record
	for i, amt := range []string{"100", "102", "98", "101"} {
		records = append(records, rec(core.Expense, "Housing", amt, 2024, i+1, 5))
	}
	for i, amt := range []string{"50", "400", "30", "500"} {
		records = append(records, rec(core.Expense, "Shopping", amt, 2024, i+1, 12))
	}
	records = append(records, rec(core.Expense, "Travel", "700", 2024, 3, 3))
	records = append(records,
		rec(core.Expense, "Gifts & Donations", "20", 2024, 2, 3),
		rec(core.Expense, "Gifts & Donations", "20", 2024, 2, 9),
	)

	res := NewEngine(DefaultOptions()).Analyze(records, core.Year(2024))

	byName := map[string]Recurrence{}
	for _, r := range res.FixedVariable {
		byName[r.Category] = r
	}
	require.Contains(t, byName, "Housing")
	require.Contains(t, byName, "Shopping")
	assert.NotContains(t, byName, "Travel", "single transaction is unclassified")

	assert.True(t, byName["Housing"].Fixed)
	assert.Equal(t, 4, byName["Housing"].Months)
	assert.Less(t, byName["Housing"].CV, 0.15)
	assert.False(t, byName["Shopping"].Fixed)

	// two transactions in one month cannot be fixed
	assert.False(t, byName["Gifts & Donations"].Fixed)
	assert.Equal(t, 1, byName["Gifts & Donations"].Months)
}

func TestWeekOfMonth(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Food & Dining", "1", 2024, 1, 1),
		rec(core.Expense, "Food & Dining", "2", 2024, 1, 7),
		rec(core.Expense, "Food & Dining", "4", 2024, 1, 8),
		rec(core.Expense, "Food & Dining", "8", 2024, 1, 29),
		rec(core.Expense, "Food & Dining", "16", 2024, 1, 31),
		rec(core.Income, "Salary", "100", 2024, 1, 28),
	}
	res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())

	require.Len(t, res.WeekOfMonth, 5)
	dec(t, "3", res.WeekOfMonth[0].ByType[core.Expense])
	dec(t, "4", res.WeekOfMonth[1].ByType[core.Expense])
	dec(t, "0", res.WeekOfMonth[2].ByType[core.Expense])
	dec(t, "100", res.WeekOfMonth[3].ByType[core.Income])
	dec(t, "24", res.WeekOfMonth[4].ByType[core.Expense])
	assert.Equal(t, 5, res.WeekOfMonth[4].Week)
}

func TestAnomalies(t *testing.T) {
	t.Run("flags outlier with enough history", func(t *testing.T) {
		records := []core.Record{
			rec(core.Expense, "Food & Dining", "20", 2024, 1, 1),
			rec(core.Expense, "Food & Dining", "22", 2024, 1, 2),
			rec(core.Expense, "Food & Dining", "18", 2024, 1, 3),
			rec(core.Expense, "Food & Dining", "200", 2024, 1, 4),
		}
		res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())
		require.Len(t, res.Anomalies, 1)
		a := res.Anomalies[0]
		dec(t, "200", a.Record.Amount)
		assert.Equal(t, 3, a.History)
		assert.InDelta(t, 20, a.Mean, 1e-9)
		assert.Greater(t, 200.0, a.Threshold)
	})

	t.Run("never flags with fewer than three priors", func(t *testing.T) {
		records := []core.Record{
			rec(core.Expense, "Travel", "10", 2024, 1, 1),
			rec(core.Expense, "Travel", "10", 2024, 1, 2),
			rec(core.Expense, "Travel", "5000", 2024, 1, 3),
		}
		res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())
		assert.Empty(t, res.Anomalies)
	})

	t.Run("history ignores later records", func(t *testing.T) {
		records := []core.Record{
			rec(core.Expense, "Shopping", "500", 2024, 1, 1),
			rec(core.Expense, "Shopping", "10", 2024, 2, 1),
			rec(core.Expense, "Shopping", "10", 2024, 2, 2),
			rec(core.Expense, "Shopping", "10", 2024, 2, 3),
		}
		res := NewEngine(DefaultOptions()).Analyze(records, core.AllTime())
		assert.Empty(t, res.Anomalies)
	})

	t.Run("history reaches outside the window", func(t *testing.T) {
		records := []core.Record{
			rec(core.Expense, "Food & Dining", "20", 2023, 11, 1),
			rec(core.Expense, "Food & Dining", "21", 2023, 12, 1),
			rec(core.Expense, "Food & Dining", "19", 2023, 12, 2),
			rec(core.Expense, "Food & Dining", "300", 2024, 1, 5),
		}
		res := NewEngine(DefaultOptions()).Analyze(records, core.Year(2024))
		require.Len(t, res.Anomalies, 1)
		assert.Equal(t, 2024, res.Anomalies[0].Record.Date.Year())
	})
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	records := []core.Record{
		rec(core.Expense, "Food & Dining", "20", 2024, 1, 1),
		rec(core.Expense, "Food & Dining", "22", 2024, 2, 2),
		rec(core.Expense, "Food & Dining", "18", 2024, 3, 3),
		rec(core.Expense, "Food & Dining", "200", 2024, 4, 4),
		rec(core.Income, "Salary", "3000", 2024, 1, 1),
		rec(core.ToReceive, "Refunds", "40", 2024, 5, 9),
	}
	reversed := make([]core.Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	e := NewEngine(DefaultOptions())
	first := e.Analyze(records, core.AllTime())
	second := e.Analyze(records, core.AllTime())
	assert.Equal(t, first, second)

	third := e.Analyze(reversed, core.AllTime())
	assert.Equal(t, first.Anomalies, third.Anomalies)
	assert.Equal(t, first.MonthlyTrend, third.MonthlyTrend)
	assert.Equal(t, "20", records[0].Amount.String(), "input not mutated")
}

func TestNewEngineDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), NewEngine(Options{}).Options())
	assert.Equal(t, 3, NewEngine(Options{TopN: 3}).Options().TopN)
}

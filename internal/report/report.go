// Package report turns analytics results into presentation views. Display
// rounding happens here and nowhere else.
package report

import (
	"math"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

// Insight keys of View.Insights.
const (
	KeyTotals            = "totals"
	KeyMonthlyTrend      = "monthly_trend"
	KeyCategoryBreakdown = "category_breakdown"
	KeyTopSources        = "top_sources"
	KeyTopExpenses       = "top_expenses"
	KeyWeekdayWeekend    = "weekday_weekend"
	KeyFixedVsVariable   = "fixed_vs_variable"
	KeyWeekOfMonth       = "week_of_month"
	KeyAnomalies         = "anomalies"
)

type (
	View struct {
		Window   WindowView     `json:"window"`
		Insights map[string]any `json:"insights"`
	}

	WindowView struct {
		Granularity  string `json:"granularity"`
		Start        string `json:"start,omitempty"`
		End          string `json:"end,omitempty"`
		BusinessDays int    `json:"business_days,omitempty"`
	}

	TypeTotalView struct {
		Amount  string `json:"amount"`
		Display string `json:"display"`
		Compact string `json:"compact"`
		Count   int    `json:"count"`
	}

	TotalsView struct {
		ByType     map[core.TransactionType]TypeTotalView `json:"by_type"`
		Net        string                                 `json:"net"`
		NetDisplay string                                 `json:"net_display"`
	}

	MonthPointView struct {
		Month  string                          `json:"month"`
		ByType map[core.TransactionType]string `json:"by_type"`
	}

	CategoryView struct {
		Category     string  `json:"category"`
		Amount       string  `json:"amount"`
		Display      string  `json:"display"`
		Count        int     `json:"count"`
		Share        float64 `json:"share_pct"`
		ShareDisplay string  `json:"share"`
	}

	PartitionView struct {
		Count int    `json:"count"`
		Total string `json:"total"`
		Mean  string `json:"mean"`
	}

	DayTypeView struct {
		Weekday PartitionView `json:"weekday"`
		Weekend PartitionView `json:"weekend"`
	}

	RecurrenceView struct {
		Type           core.TransactionType `json:"type"`
		Category       string               `json:"category"`
		Classification string               `json:"classification"`
		Months         int                  `json:"months"`
		MonthlyTotals  []string             `json:"monthly_totals"`
		Mean           string               `json:"mean"`
		CV             float64              `json:"cv"`
	}

	WeekView struct {
		Week   int                             `json:"week"`
		ByType map[core.TransactionType]string `json:"by_type"`
	}

	AnomalyView struct {
		ID        string               `json:"id"`
		Date      string               `json:"date"`
		Type      core.TransactionType `json:"type"`
		Category  string               `json:"category"`
		Amount    string               `json:"amount"`
		Mean      string               `json:"mean"`
		StdDev    string               `json:"stddev"`
		Threshold string               `json:"threshold"`
		History   int                  `json:"history"`
	}
)

type formatter struct {
	symbol string
}

type Option func(*formatter)

// WithCurrencySymbol prefixes display amounts with symbol.
func WithCurrencySymbol(symbol string) Option {
	return func(f *formatter) { f.symbol = symbol }
}

// Format maps an analytics result onto its display view.
func Format(res analytics.Result, opts ...Option) View {
	f := &formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return View{
		Window: formatWindow(res.Window),
		Insights: map[string]any{
			KeyTotals:            f.totals(res.Totals),
			KeyMonthlyTrend:      formatTrend(res.MonthlyTrend),
			KeyCategoryBreakdown: f.breakdown(res.CategoryBreakdown),
			KeyTopSources:        f.categories(res.TopSources),
			KeyTopExpenses:       f.categories(res.TopExpenses),
			KeyWeekdayWeekend: DayTypeView{
				Weekday: formatPartition(res.WeekdayWeekend.Weekday),
				Weekend: formatPartition(res.WeekdayWeekend.Weekend),
			},
			KeyFixedVsVariable: formatRecurrences(res.FixedVariable),
			KeyWeekOfMonth:     formatWeeks(res.WeekOfMonth),
			KeyAnomalies:       formatAnomalies(res.Anomalies),
		},
	}
}

func formatWindow(w core.Window) WindowView {
	g := string(w.Granularity)
	if g == "" {
		g = string(core.AllTimeGranularity)
	}
	v := WindowView{Granularity: g, Start: w.Start.String(), End: w.End.String()}
	if w.Bounded() {
		v.BusinessDays = core.BusinessDays(w.Start, w.End)
	}
	return v
}

// amount renders d with exactly two decimals, rounding half away from zero.
func amount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func amountFloat(f float64) string {
	return amount(decimal.NewFromFloat(f))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func formatByType(m map[core.TransactionType]decimal.Decimal) map[core.TransactionType]string {
	out := make(map[core.TransactionType]string, len(m))
	for t, d := range m {
		out[t] = amount(d)
	}
	return out
}

func (f *formatter) totals(t analytics.Totals) TotalsView {
	v := TotalsView{
		ByType:     make(map[core.TransactionType]TypeTotalView, len(t.ByType)),
		Net:        amount(t.Net),
		NetDisplay: FormatCurrency(t.Net, f.symbol),
	}
	for typ, tt := range t.ByType {
		v.ByType[typ] = TypeTotalView{
			Amount:  amount(tt.Amount),
			Display: FormatCurrency(tt.Amount, f.symbol),
			Compact: FormatCompact(tt.Amount.InexactFloat64()),
			Count:   tt.Count,
		}
	}
	return v
}

func formatTrend(points []analytics.MonthPoint) []MonthPointView {
	out := make([]MonthPointView, 0, len(points))
	for _, p := range points {
		out = append(out, MonthPointView{
			Month:  core.NewDate(p.Year, p.Month, 1).Format("2006-01"),
			ByType: formatByType(p.ByType),
		})
	}
	return out
}

func (f *formatter) categories(rows []analytics.CategoryAmount) []CategoryView {
	out := make([]CategoryView, 0, len(rows))
	for _, c := range rows {
		out = append(out, CategoryView{
			Category:     c.Category,
			Amount:       amount(c.Amount),
			Display:      FormatCurrency(c.Amount, f.symbol),
			Count:        c.Count,
			Share:        round2(c.Share * 100),
			ShareDisplay: FormatPercentage(c.Share, 1),
		})
	}
	return out
}

func (f *formatter) breakdown(b map[core.TransactionType][]analytics.CategoryAmount) map[core.TransactionType][]CategoryView {
	out := make(map[core.TransactionType][]CategoryView, len(b))
	for typ, rows := range b {
		out[typ] = f.categories(rows)
	}
	return out
}

func formatPartition(p analytics.Partition) PartitionView {
	return PartitionView{Count: p.Count, Total: amount(p.Total), Mean: amount(p.Mean)}
}

func formatRecurrences(rs []analytics.Recurrence) []RecurrenceView {
	out := make([]RecurrenceView, 0, len(rs))
	for _, r := range rs {
		class := "variable"
		if r.Fixed {
			class = "fixed"
		}
		totals := make([]string, len(r.MonthlyTotals))
		for i, d := range r.MonthlyTotals {
			totals[i] = amount(d)
		}
		out = append(out, RecurrenceView{
			Type:           r.Type,
			Category:       r.Category,
			Classification: class,
			Months:         r.Months,
			MonthlyTotals:  totals,
			Mean:           amountFloat(r.Mean),
			CV:             round2(r.CV),
		})
	}
	return out
}

func formatWeeks(ws []analytics.WeekBucket) []WeekView {
	out := make([]WeekView, 0, len(ws))
	for _, w := range ws {
		out = append(out, WeekView{Week: w.Week, ByType: formatByType(w.ByType)})
	}
	return out
}

func formatAnomalies(as []analytics.Anomaly) []AnomalyView {
	out := make([]AnomalyView, 0, len(as))
	for _, a := range as {
		out = append(out, AnomalyView{
			ID:        a.Record.ID,
			Date:      a.Record.Date.String(),
			Type:      a.Record.Type,
			Category:  a.Record.Category,
			Amount:    amount(a.Record.Amount),
			Mean:      amountFloat(a.Mean),
			StdDev:    amountFloat(a.StdDev),
			Threshold: amountFloat(a.Threshold),
			History:   a.History,
		})
	}
	return out
}

package analytics

import (
	"fintrack/internal/core"
)

// anomalies flags in-window transactions that exceed mean + k·σ of their
// category's earlier amounts. all must be in ledger order.
func (e *Engine) anomalies(all []core.Record, w core.Window) []Anomaly {
	groups := make(map[typeCategory][]int)
	for i, r := range all {
		k := typeCategory{r.Type, r.Category}
		groups[k] = append(groups[k], i)
	}

	out := []Anomaly{}
	for i, r := range all {
		if !w.Contains(r.Date) {
			continue
		}
		var history []float64
		for _, j := range groups[typeCategory{r.Type, r.Category}] {
			if j == i || all[j].Date.After(r.Date) {
				continue
			}
			history = append(history, all[j].Amount.InexactFloat64())
		}
		if len(history) < e.opts.MinAnomalyHistory {
			continue
		}
		mean, sd := meanStdDev(history)
		threshold := mean + e.opts.AnomalyStdDevs*sd
		if r.Amount.InexactFloat64() > threshold {
			out = append(out, Anomaly{
				Record:    r,
				History:   len(history),
				Mean:      mean,
				StdDev:    sd,
				Threshold: threshold,
			})
		}
	}
	return out
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/taxonomy"
)

type (
	transactionList struct {
		Start        core.Date     `json:"start_date"`
		End          core.Date     `json:"end_date"`
		Count        int           `json:"count"`
		Transactions []core.Record `json:"transactions"`
	}

	categoryList struct {
		Type       core.TransactionType `json:"type"`
		Categories []taxonomy.Entry     `json:"categories"`
	}

	healthResponse struct {
		Status        string `json:"status"`
		UptimeSeconds int64  `json:"uptime_seconds"`
		Records       int    `json:"records"`
	}

	readyResponse struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createTransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(ctx, w, &requestError{Field: "body", Rule: "json", msg: "malformed request body: " + err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(ctx, w, validationFailure(err))
		return
	}

	current := core.Today(s.now)
	if req.CurrentDate != "" {
		d, err := core.ParseDate(req.CurrentDate)
		if err != nil {
			writeError(ctx, w, &requestError{Field: "current_date", Rule: "datetime", msg: err.Error()})
			return
		}
		current = d
	}

	rec, err := s.deps.Submitter.Submit(ctx, req.Text, current)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, rec)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := rangeQuery{
		Start: strings.TrimSpace(r.URL.Query().Get("start")),
		End:   strings.TrimSpace(r.URL.Query().Get("end")),
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(ctx, w, validationFailure(err))
		return
	}
	start, end, err := parseBounds(q.Start, q.End)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := s.deps.Ledger.ReadRange(ctx, start, end)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(ctx, w, http.StatusOK, transactionList{
		Start:        start,
		End:          end,
		Count:        len(records),
		Transactions: records,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseInsightsQuery(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(ctx, w, validationFailure(err))
		return
	}
	window, err := q.window(core.Today(s.now))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// Anomaly detection needs history from before the window.
	records, err := s.deps.Ledger.ReadAll(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	started := time.Now()
	result := s.deps.Analyzer.Analyze(records, window)
	log.FromContext(ctx).DebugContext(ctx, "Insights computed",
		log.FieldOperation, log.OpAnalyze,
		log.FieldGranularity, window.Granularity,
		log.FieldWindowStart, window.Start.String(),
		log.FieldWindowEnd, window.End.String(),
		"records", len(records),
		log.FieldDuration, time.Since(started).Milliseconds())

	writeJSON(ctx, w, http.StatusOK, report.Format(result, report.WithCurrencySymbol(s.currency)))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := categoriesQuery{Type: strings.TrimSpace(r.URL.Query().Get("type"))}
	if err := s.validate.Struct(q); err != nil {
		writeError(ctx, w, validationFailure(err))
		return
	}

	if q.Type != "" {
		typ, _ := core.ParseTransactionType(q.Type)
		writeJSON(ctx, w, http.StatusOK, categoryList{Type: typ, Categories: s.deps.Categories.Entries(typ)})
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[taxonomy.Scope][]taxonomy.Entry{
		taxonomy.ExpenseScope: s.deps.Categories.Entries(core.Expense),
		taxonomy.IncomeScope:  s.deps.Categories.Entries(core.Income),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(s.now().Sub(s.started).Seconds()),
		Records:       s.deps.Ledger.Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := readyResponse{Status: "ready", Checks: make(map[string]string, len(s.deps.Ready))}
	status := http.StatusOK
	for _, c := range s.deps.Ready {
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = fmt.Sprintf("error: %v", err)
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(r.Context(), w, status, resp)
}

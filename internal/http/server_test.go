package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/extract"
	"fintrack/internal/extract/rules"
	"fintrack/internal/ledger"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/pipeline"
	"fintrack/internal/report"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/taxonomy"
)

var testNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

type fakeSubmitter struct{ err error }

func (f fakeSubmitter) Submit(_ context.Context, text string, _ core.Date) (core.Record, error) {
	return core.Record{}, &core.SubmissionError{Input: text, Err: f.err}
}

type testEnv struct {
	srv    *Server
	ledger *ledger.Ledger
}

func newTestEnv(t *testing.T, sub Submitter, opts ...Option) *testEnv {
	t.Helper()
	tax := taxonomy.Default()
	led := ledger.New(memory.New(nil))
	if sub == nil {
		ex := extract.NewExtractor(rules.New(), tax, time.Second)
		sub = pipeline.New(ex, taxonomy.NewResolver(tax, taxonomy.DefaultThreshold), led)
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	srv := NewServer(":0", Deps{
		Submitter:  sub,
		Ledger:     led,
		Analyzer:   analytics.NewEngine(analytics.DefaultOptions()),
		Categories: tax,
	}, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, ledger: led}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

func seed(t *testing.T, led *ledger.Ledger, typ core.TransactionType, amount int64, category string, date core.Date) {
	t.Helper()
	r := core.Record{
		ID:         fmt.Sprintf("%s-%s-%d", typ, date, amount),
		Type:       typ,
		Amount:     decimal.NewFromInt(amount),
		Category:   category,
		Date:       date,
		Status:     core.Confirmed,
		SourceText: "seeded",
		IngestedAt: testNow,
	}
	if err := led.Append(context.Background(), r); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if got := decode[healthResponse](t, rr); got.Status != "ok" || got.Records != 0 {
		t.Fatalf("healthz body=%+v", got)
	}

	rr = env.do(http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz with no checks status=%d", rr.Code)
	}
}

func TestReadyReportsFailingCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.deps.Ready = []ReadyCheck{
		{Name: "store", Check: func(context.Context) error { return nil }},
		{Name: "broker", Check: func(context.Context) error { return errors.New("connection refused") }},
	}

	rr := env.do(http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	resp := decode[readyResponse](t, rr)
	if resp.Status != "not_ready" || resp.Checks["store"] != "ok" || !strings.Contains(resp.Checks["broker"], "refused") {
		t.Fatalf("unexpected ready body: %+v", resp)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodGet, "/healthz", "")

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Fatalf("Content-Type=%q", got)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/transactions",
		`{"text":"Spent $25 on lunch at McDonald's","current_date":"2024-06-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	rec := decode[core.Record](t, rr)
	if rec.Type != core.Expense || rec.Category != "Food & Dining" || rec.Date.String() != "2024-06-10" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("amount=%s", rec.Amount)
	}

	rr = env.do(http.MethodGet, "/api/transactions?start=2024-06-01&end=2024-06-30", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	list := decode[transactionList](t, rr)
	if list.Count != 1 || list.Transactions[0].ID != rec.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	if got := decode[healthResponse](t, env.do(http.MethodGet, "/healthz", "")).Records; got != 1 {
		t.Fatalf("healthz records=%d want 1", got)
	}

	rr = env.do(http.MethodGet, "/api/transactions?start=2024-07-01", "")
	if got := decode[transactionList](t, rr); got.Count != 0 || got.Transactions == nil {
		t.Fatalf("expected empty non-nil list, got %+v", got)
	}
}

func TestCreateTransactionDefaultsToToday(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodPost, "/api/transactions", `{"text":"Spent $25 on lunch at McDonald's"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Record](t, rr).Date.String(); got != "2024-06-10" {
		t.Fatalf("date=%s want 2024-06-10", got)
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name   string
		body   string
		status int
		field  string
		input  string
	}{
		{"malformed json", `{"text":`, http.StatusBadRequest, "body", ""},
		{"unknown field", `{"text":"x","amount":5}`, http.StatusBadRequest, "body", ""},
		{"bad current date", `{"text":"Spent $5","current_date":"10/06/2024"}`, http.StatusBadRequest, "current_date", ""},
		{"too long", `{"text":"` + strings.Repeat("a", 1001) + `"}`, http.StatusBadRequest, "text", strings.Repeat("a", 1001)},
		{"blank text", `{"text":"   "}`, http.StatusBadRequest, "", "   "},
		{"missing amount", `{"text":"Spent on lunch","current_date":"2024-06-10"}`, http.StatusUnprocessableEntity, "amount", "Spent on lunch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			view := decode[report.ErrorView](t, rr)
			if view.Message == "" {
				t.Fatalf("empty error message")
			}
			if view.Field != tt.field {
				t.Fatalf("field=%q want %q", view.Field, tt.field)
			}
			if view.Input != tt.input {
				t.Fatalf("input=%q want %q", view.Input, tt.input)
			}
		})
	}
	if env.ledger.Len() != 0 {
		t.Fatalf("rejected submissions must not be stored, ledger has %d", env.ledger.Len())
	}
}

func TestCreateTransactionUpstreamErrors(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		retryable bool
	}{
		{core.ErrExtractionTimeout, http.StatusGatewayTimeout, true},
		{core.ErrExtractionFormat, http.StatusBadGateway, false},
		{core.ErrExtractionUnavailable, http.StatusServiceUnavailable, true},
		{core.ErrAppendConflict, http.StatusConflict, true},
		{errors.New("disk on fire"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t, fakeSubmitter{err: tt.err})
			rr := env.do(http.MethodPost, "/api/transactions", `{"text":"Spent $5 on coffee"}`)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d", rr.Code, tt.status)
			}
			view := decode[report.ErrorView](t, rr)
			if view.Retryable != tt.retryable {
				t.Fatalf("retryable=%v want %v", view.Retryable, tt.retryable)
			}
			if view.Input != "Spent $5 on coffee" {
				t.Fatalf("input not preserved: %q", view.Input)
			}
		})
	}
}

func TestListTransactionsRejectsBadRange(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, target := range []string{
		"/api/transactions?start=2024-06-30&end=2024-06-01",
		"/api/transactions?start=june",
	} {
		if rr := env.do(http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d want 400", target, rr.Code)
		}
	}
}

func TestInsights(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env.ledger, core.Expense, 40, "Food & Dining", core.NewDate(2024, 6, 3))
	seed(t, env.ledger, core.Expense, 60, "Transportation", core.NewDate(2024, 6, 8))
	seed(t, env.ledger, core.Income, 1000, "Salary", core.NewDate(2024, 6, 1))
	seed(t, env.ledger, core.Expense, 500, "Shopping", core.NewDate(2024, 5, 20))

	rr := env.do(http.MethodGet, "/api/insights?granularity=month&year=2024&month=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Window   report.WindowView `json:"window"`
		Insights struct {
			Totals report.TotalsView `json:"totals"`
		} `json:"insights"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Window.Granularity != "monthly" || body.Window.Start != "2024-06-01" || body.Window.End != "2024-06-30" {
		t.Fatalf("window=%+v", body.Window)
	}
	if body.Window.BusinessDays != 20 {
		t.Fatalf("business days=%d want 20", body.Window.BusinessDays)
	}
	if body.Insights.Totals.Net != "900.00" {
		t.Fatalf("net=%s want 900.00", body.Insights.Totals.Net)
	}
	if got := body.Insights.Totals.ByType[core.Expense]; got.Amount != "100.00" || got.Count != 2 {
		t.Fatalf("expense total=%+v", got)
	}
}

func TestInsightsWindows(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		query       string
		granularity string
		start, end  string
	}{
		{"", "all-time", "", ""},
		{"?year=2023", "yearly", "2023-01-01", "2023-12-31"},
		{"?granularity=month", "monthly", "2024-06-01", "2024-06-30"},
		{"?start=2024-06-01&end=2024-06-05", "custom", "2024-06-01", "2024-06-05"},
		{"?period=last_month", "custom", "2024-05-01", "2024-05-31"},
		{"?period=this_week", "custom", "2024-06-10", "2024-06-16"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := env.do(http.MethodGet, "/api/insights"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			w := decode[report.View](t, rr).Window
			if w.Granularity != tt.granularity || w.Start != tt.start || w.End != tt.end {
				t.Fatalf("window=%+v", w)
			}
		})
	}
}

func TestInsightsRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, q := range []string{
		"?granularity=fortnight",
		"?month=13",
		"?year=abc",
		"?granularity=custom&start=2024-06-10",
		"?start=2024-06-10&end=2024-06-01",
		"?period=someday",
		"?year=9999",
		"?start=0001-01-01&end=9999-12-31",
		"?start=1899-12-31&end=2024-06-01",
	} {
		if rr := env.do(http.MethodGet, "/api/insights"+q, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d want 400 body=%s", q, rr.Code, rr.Body.String())
		}
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	all := decode[map[taxonomy.Scope][]taxonomy.Entry](t, rr)
	if len(all[taxonomy.ExpenseScope]) == 0 || len(all[taxonomy.IncomeScope]) == 0 {
		t.Fatalf("expected both scopes, got %v", all)
	}

	rr = env.do(http.MethodGet, "/api/categories?type=Income", "")
	list := decode[categoryList](t, rr)
	if list.Type != core.Income || len(list.Categories) != len(all[taxonomy.IncomeScope]) {
		t.Fatalf("unexpected income list: %+v", list)
	}

	if rr := env.do(http.MethodGet, "/api/categories?type=Gift", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown type status=%d want 400", rr.Code)
	}
}

func TestRateLimitAppliesToSubmissionsOnly(t *testing.T) {
	env := newTestEnv(t, nil, WithRateLimit(ratelimit.Config{RequestsPerMinute: 1}))
	body := `{"text":"Spent $25 on lunch at McDonald's"}`

	if rr := env.do(http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
		t.Fatalf("first submission status=%d", rr.Code)
	}
	rr := env.do(http.MethodPost, "/api/transactions", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second submission status=%d want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After")
	}
	if !decode[report.ErrorView](t, rr).Retryable {
		t.Fatalf("rate limit rejection should be retryable")
	}

	for i := 0; i < 3; i++ {
		if rr := env.do(http.MethodGet, "/api/transactions", ""); rr.Code != http.StatusOK {
			t.Fatalf("read %d status=%d", i, rr.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	if rr := env.do(http.MethodDelete, "/api/transactions", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", rr.Code)
	}
}

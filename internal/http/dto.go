package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
)

type createTransactionRequest struct {
	Text        string `json:"text"`
	CurrentDate string `json:"current_date" validate:"omitempty,datetime=2006-01-02"`
}

// Query structs carry json tags only so validation errors name the query
// parameter.
type rangeQuery struct {
	Start string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type insightsQuery struct {
	Period      string `json:"period" validate:"omitempty,max=32"`
	Granularity string `json:"granularity" validate:"omitempty,granularity"`
	Year        int    `json:"year" validate:"omitempty,min=1900,max=2999"`
	Month       int    `json:"month" validate:"omitempty,min=1,max=12"`
	Start       string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End         string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type categoriesQuery struct {
	Type string `json:"type" validate:"omitempty,transaction_type"`
}

// requestError is a malformed request: bad JSON, a bad query parameter or a
// failed field rule.
type requestError struct {
	Field string
	Rule  string
	msg   string
}

func (e *requestError) Error() string { return e.msg }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("granularity", validateGranularity)
	return v
}

func validateTransactionType(fl validator.FieldLevel) bool {
	_, ok := core.ParseTransactionType(fl.Field().String())
	return ok
}

func validateGranularity(fl validator.FieldLevel) bool {
	_, ok := parseGranularity(fl.Field().String())
	return ok
}

func parseGranularity(s string) (core.Granularity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "all-time", "all_time":
		return core.AllTimeGranularity, true
	case "year", "yearly":
		return core.YearlyGranularity, true
	case "month", "monthly":
		return core.MonthlyGranularity, true
	case "custom":
		return core.CustomGranularity, true
	}
	return "", false
}

// validationFailure turns the first validator failure into a requestError.
func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		return &requestError{
			Field: field,
			Rule:  fe.Tag(),
			msg:   fmt.Sprintf("invalid %s: failed %q rule", field, fe.Tag()),
		}
	}
	return &requestError{msg: err.Error()}
}

func parseInsightsQuery(q url.Values) (insightsQuery, error) {
	out := insightsQuery{
		Period:      strings.TrimSpace(q.Get("period")),
		Granularity: strings.TrimSpace(q.Get("granularity")),
		Start:       strings.TrimSpace(q.Get("start")),
		End:         strings.TrimSpace(q.Get("end")),
	}
	var err error
	if out.Year, err = queryInt(q, "year"); err != nil {
		return out, err
	}
	if out.Month, err = queryInt(q, "month"); err != nil {
		return out, err
	}
	return out, nil
}

func queryInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &requestError{Field: key, Rule: "number", msg: fmt.Sprintf("invalid %s %q: must be a number", key, raw)}
	}
	return n, nil
}

// window resolves the query onto an analysis window. A named period wins
// over an explicit granularity; a bare start/end pair means custom.
func (q insightsQuery) window(today core.Date) (core.Window, error) {
	if q.Period != "" {
		return core.WindowForPeriod(q.Period, today)
	}

	g, _ := parseGranularity(q.Granularity)
	if q.Granularity == "" {
		switch {
		case q.Start != "" || q.End != "":
			g = core.CustomGranularity
		case q.Month != 0:
			g = core.MonthlyGranularity
		case q.Year != 0:
			g = core.YearlyGranularity
		default:
			g = core.AllTimeGranularity
		}
	}

	year := q.Year
	if year == 0 {
		year = today.Year()
	}
	switch g {
	case core.YearlyGranularity:
		return core.Year(year), nil
	case core.MonthlyGranularity:
		month := q.Month
		if month == 0 {
			month = today.Month()
		}
		return core.Month(year, month), nil
	case core.CustomGranularity:
		start, end, err := parseBounds(q.Start, q.End)
		if err != nil {
			return core.Window{}, err
		}
		return core.Custom(start, end)
	}
	return core.AllTime(), nil
}

func parseBounds(startRaw, endRaw string) (core.Date, core.Date, error) {
	var start, end core.Date
	var err error
	if startRaw != "" {
		if start, err = core.ParseDate(startRaw); err != nil {
			return start, end, &requestError{Field: "start", Rule: "datetime", msg: err.Error()}
		}
	}
	if endRaw != "" {
		if end, err = core.ParseDate(endRaw); err != nil {
			return start, end, &requestError{Field: "end", Rule: "datetime", msg: err.Error()}
		}
	}
	if err := checkYear("start", start); err != nil {
		return start, end, err
	}
	if err := checkYear("end", end); err != nil {
		return start, end, err
	}
	return start, end, nil
}

func checkYear(field string, d core.Date) error {
	if d.IsEmpty() {
		return nil
	}
	if y := d.Year(); y < core.MinYear || y > core.MaxYear {
		return &requestError{
			Field: field,
			Rule:  "year",
			msg:   fmt.Sprintf("invalid %s: year %d outside %d-%d", field, y, core.MinYear, core.MaxYear),
		}
	}
	return nil
}

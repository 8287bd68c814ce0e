package report

import (
	"errors"

	"fintrack/internal/core"
)

// ErrorView is what the presentation layer shows for a failed submission.
// Input carries the original text so it can be resubmitted.
type ErrorView struct {
	Message   string `json:"message"`
	Input     string `json:"input,omitempty"`
	Field     string `json:"field,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable"`
}

func FormatError(err error) ErrorView {
	if err == nil {
		return ErrorView{}
	}
	v := ErrorView{
		Message:   core.UserMessage(err),
		Retryable: core.IsRetryable(err),
	}
	var serr *core.SubmissionError
	if errors.As(err, &serr) {
		v.Input = serr.Input
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		v.Field = verr.Field
		v.Reason = string(verr.Reason)
	}
	if errors.Is(err, core.ErrInputTooLong) {
		v.Field = "text"
	}
	return v
}

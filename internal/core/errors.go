package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput            = errors.New("empty input")
	ErrInputTooLong          = errors.New("input too long")
	ErrExtractionTimeout     = errors.New("extraction timed out")
	ErrExtractionFormat      = errors.New("extraction response malformed")
	ErrExtractionUnavailable = errors.New("extraction capability unavailable")
	ErrAppendConflict        = errors.New("append conflict")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidWindow         = errors.New("invalid window")
)

const (
	MissingType   ValidationReason = "MissingType"
	MissingAmount ValidationReason = "MissingAmount"
	InvalidAmount ValidationReason = "InvalidAmount"
	InvalidDate   ValidationReason = "InvalidDate"
)

type ValidationReason string

// ValidationError is returned when a candidate record fails a required field
// check. Field names the offending field as it appears in the record.
type ValidationError struct {
	Reason ValidationReason
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
	}
	return fmt.Sprintf("validation failed: %s (%s): %s", e.Reason, e.Field, e.Detail)
}

// SubmissionError carries the original input of a rejected submission so the
// caller can offer it back for re-submission.
type SubmissionError struct {
	Input string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsRetryable reports whether resubmitting the same input may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExtractionTimeout) ||
		errors.Is(err, ErrExtractionUnavailable) ||
		errors.Is(err, ErrAppendConflict)
}

// UserMessage returns a short message suitable for showing to the person who
// submitted the input.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "Please describe a transaction."
	case errors.Is(err, ErrInputTooLong):
		return "The description is too long. Please shorten it."
	case errors.Is(err, ErrExtractionTimeout):
		return "Reading the transaction took too long. Please try again."
	case errors.Is(err, ErrExtractionUnavailable):
		return "The transaction reader is unavailable right now. Please try again."
	case errors.Is(err, ErrExtractionFormat):
		return "The transaction could not be understood. Try rephrasing it."
	case errors.Is(err, ErrAppendConflict):
		return "The transaction could not be saved because of a concurrent write. Please retry."
	case errors.As(err, &verr):
		switch verr.Reason {
		case MissingType:
			return "Could not tell whether this is an expense, income, or a payment to make or receive."
		case MissingAmount:
			return "No amount was found in the description."
		case InvalidAmount:
			return "The amount is not a valid positive number."
		case InvalidDate:
			return "The date could not be understood."
		}
	}
	return "The transaction could not be processed."
}

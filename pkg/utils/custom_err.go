package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a failure surfaced to clients.
type ErrorKind string

const (
	KindClassificationFailure       ErrorKind = "classification_failure"
	KindExtractionFailure           ErrorKind = "extraction_failure"
	KindProviderFailure             ErrorKind = "provider_failure"
	KindBuildSchemaFailure          ErrorKind = "build_schema_failure"
	KindBuildConstraint             ErrorKind = "build_constraint_violation"
	KindEditParseFailure            ErrorKind = "edit_parse_failure"
	KindEditScopeViolation          ErrorKind = "edit_scope_violation"
	KindSessionNotFound             ErrorKind = "session_not_found"
	KindExternalWorkflowUnavailable ErrorKind = "external_workflow_unavailable"
	KindInvalidState                ErrorKind = "invalid_state"
	KindInvalidInput                ErrorKind = "invalid_input"
	KindInternal                    ErrorKind = "internal"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("operation not valid in the current conversation state")
	ErrNoItinerary         = errors.New("no itinerary has been planned yet")
	ErrProviderExhausted   = errors.New("all POI providers failed")
	ErrInsufficientPOIs    = errors.New("not enough points of interest for the requested pace")
	ErrEditParse           = errors.New("could not understand the edit")
	ErrWorkflowUnavailable = errors.New("export service unavailable")
	ErrDatabaseError       = errors.New("database error")
)

// AppError carries a kind and a human-readable message next to the cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// KindOf classifies any error, falling back to the sentinel table.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNoItinerary):
		return KindInvalidState
	case errors.Is(err, ErrProviderExhausted):
		return KindProviderFailure
	case errors.Is(err, ErrInsufficientPOIs):
		return KindBuildConstraint
	case errors.Is(err, ErrEditParse):
		return KindEditParseFailure
	case errors.Is(err, ErrWorkflowUnavailable):
		return KindExternalWorkflowUnavailable
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	switch KindOf(err) {
	case KindSessionNotFound:
		return "Session not found. Start a new conversation."
	case KindProviderFailure:
		return "I couldn't reach any place-search service right now. Please try again shortly."
	case KindExternalWorkflowUnavailable:
		return "The export service is unavailable right now."
	case KindInternal:
		return "Internal server error"
	}
	return err.Error()
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TimeoutMessage is the record text for a call that exceeded its deadline.
const TimeoutMessage = "Request timed out"

// Error represents a typed failure raised inside an adapter.
type Error struct {
	// Provider that generated the error
	Provider string

	// Kind is the outcome the failure maps to.
	Kind Outcome

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Message is shown to the user as the record text.
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new provider error
func NewError(provider string, kind Outcome, statusCode int, message string, cause error) *Error {
	return &Error{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// Fallback builds the zero-confidence record used whenever a provider could
// not produce an answer. An empty message yields the generic apology.
func Fallback(name, message string) ResponseRecord {
	return fallback(name, message, OutcomeProviderError)
}

// FallbackFromError classifies err and folds it into a fallback record.
func FallbackFromError(name string, err error) ResponseRecord {
	if err == nil {
		return Fallback(name, "")
	}
	if IsTimeout(err) {
		return fallback(name, TimeoutMessage, OutcomeTimeout)
	}

	var provErr *Error
	if errors.As(err, &provErr) {
		return fallback(name, provErr.Message, provErr.Kind)
	}

	return fallback(name, err.Error(), OutcomeTransportError)
}

// UnavailableMessage is the generic apology for a provider.
func UnavailableMessage(name string) string {
	return fmt.Sprintf("I apologize, but %s is currently unavailable. Please try again later or select a different AI model.", name)
}

func fallback(name, message string, outcome Outcome) ResponseRecord {
	if message == "" {
		message = UnavailableMessage(name)
	}
	return ResponseRecord{
		Text:           message,
		Confidence:     0,
		LatencySeconds: 0,
		Outcome:        outcome,
	}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

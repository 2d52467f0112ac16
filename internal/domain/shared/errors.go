// Package shared contains common domain types, errors, events, and value objects
// that are used across the learner and curriculum domains.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds, matched with errors.Is().
var (
	ErrNotFound = errors.New("entity not found")

	// Validation
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Concurrency and availability
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrServiceUnavailable     = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // "learner", "curriculum", "storage"
	Op      string // operation that failed
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner domain errors
var (
	ErrInvalidLearnerID   = NewDomainError("learner", "Validate", ErrInvalidID, "invalid learner ID")
	ErrInvalidScore       = NewDomainError("learner", "RecordQuizResult", ErrValueOutOfRange, "score must be between 0 and totalQuestions")
	ErrInvalidTotal       = NewDomainError("learner", "RecordQuizResult", ErrValueOutOfRange, "totalQuestions must be positive")
	ErrInvalidPoints      = NewDomainError("learner", "AddPoints", ErrNegativeValue, "points cannot be negative")
	ErrInvalidChallengeID = NewDomainError("learner", "CompleteDailyChallenge", ErrInvalidFormat, "challenge ID must look like challenge-YYYY-MM-DD")
	ErrProfileConflict    = NewDomainError("learner", "Save", ErrConcurrentModification, "profile was modified concurrently")
)

// Curriculum domain errors
var (
	ErrUnknownModule  = NewDomainError("curriculum", "FindModule", ErrNotFound, "unknown learning module")
	ErrUnknownGame    = NewDomainError("curriculum", "FindGame", ErrNotFound, "unknown mini-game")
	ErrTooManyAnswers = NewDomainError("curriculum", "Grade", ErrInvalidInput, "more answers than questions")
	ErrInvalidAnswer  = NewDomainError("curriculum", "Grade", ErrValueOutOfRange, "answer refers to an option that does not exist")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}

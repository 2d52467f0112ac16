// Package shared contains common domain types, errors, events, and value objects
// that are used across the learner and curriculum domains.
package shared

import (
	"math"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// LearnerID is the opaque identifier of a learner profile ("guest-user", a UUID, ...).
type LearnerID string

// Learner IDs end up inside storage keys, so they are restricted to a safe alphabet.
var learnerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,63}$`)

// IsValid checks if the learner ID is well-formed.
func (l LearnerID) IsValid() bool {
	return learnerIDRegex.MatchString(string(l))
}

// String returns the string representation.
func (l LearnerID) String() string {
	return string(l)
}

// IsEmpty checks if the ID is empty.
func (l LearnerID) IsEmpty() bool {
	return l == ""
}

// NewLearnerID creates a new LearnerID with validation.
func NewLearnerID(id string) (LearnerID, error) {
	lid := LearnerID(strings.TrimSpace(id))
	if !lid.IsValid() {
		return "", ErrInvalidLearnerID
	}
	return lid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points is a non-negative amount of eco points.
type Points int

// IsValid checks that the amount is not negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// NewPoints creates a Points value with validation.
func NewPoints(amount int) (Points, error) {
	if amount < 0 {
		return 0, ErrInvalidPoints
	}
	return Points(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage
// ═══════════════════════════════════════════════════════════════════════════

// Percentage returns part/whole*100. A non-positive whole yields 0.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// RoundPercentage rounds half away from zero, the same way scores are shown to learners.
func RoundPercentage(p float64) int {
	return int(math.Round(p))
}

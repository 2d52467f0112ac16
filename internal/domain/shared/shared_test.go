package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesKind(t *testing.T) {
	assert.True(t, errors.Is(ErrUnknownModule, ErrNotFound))
	assert.True(t, IsNotFound(ErrUnknownGame))
	assert.True(t, IsValidation(ErrInvalidScore))
	assert.True(t, IsValidation(ErrInvalidChallengeID))
	assert.False(t, IsValidation(ErrUnknownModule))
	assert.True(t, IsRetryable(ErrProfileConflict))
}

func TestDomainError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError("storage", "Put", ErrServiceUnavailable, "write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, "storage.Put: write failed: disk full", err.Error())

	wrapped := fmt.Errorf("record_quiz_result: %w", err)
	assert.True(t, IsRetryable(wrapped))
}

func TestNewLearnerID(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"guest-user", true},
		{"  guest-user  ", true},
		{"6f1c1d1e-7a3b-4c2d-9e8f-0a1b2c3d4e5f", true},
		{"", false},
		{"-leading-dash", false},
		{"has space", false},
		{"colon:inside", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := NewLearnerID(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidID)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 100.0, Percentage(4, 4))
	assert.Equal(t, 75.0, Percentage(3, 4))
	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 67, RoundPercentage(Percentage(2, 3)))
	assert.Equal(t, 33, RoundPercentage(Percentage(1, 3)))
}

func TestNewPoints(t *testing.T) {
	p, err := NewPoints(10)
	assert.NoError(t, err)
	assert.Equal(t, 10, p.Int())

	_, err = NewPoints(-1)
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestEvents_Payload(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewBadgeEarnedEvent("guest-user", "quiz-whiz", "Quiz Whiz", at)

	assert.Equal(t, EventBadgeEarned, e.EventType())
	assert.Equal(t, "guest-user", e.AggregateID())
	assert.Equal(t, at, e.OccurredAt())
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "quiz-whiz", e.Payload()["badge_id"])

	s := NewStreakUpdatedEvent("guest-user", 4, 1, at)
	assert.True(t, s.Broken())
	assert.False(t, NewStreakUpdatedEvent("guest-user", 1, 2, at).Broken())
}

// Package shared contains common domain types, errors, events, and value objects
// that are used across the learner and curriculum domains.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one is published after a profile transition
// has been persisted.
const (
	// Progress events
	EventPointsEarned       EventType = "progress.points_earned"
	EventModuleCompleted    EventType = "progress.module_completed"
	EventBadgeEarned        EventType = "progress.badge_earned"
	EventChallengeCompleted EventType = "progress.challenge_completed"
	EventStreakUpdated      EventType = "progress.streak_updated"
	EventProgressReset      EventType = "progress.reset"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsEarnedEvent is emitted when a learner's point total grows.
type PointsEarnedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	Amount    int    `json:"amount"`
	NewTotal  int    `json:"new_total"`
	Source    string `json:"source"` // "quiz", "daily_challenge", "game"
}

// Payload implements Event interface.
func (e PointsEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"amount":     e.Amount,
		"new_total":  e.NewTotal,
		"source":     e.Source,
	}
}

// NewPointsEarnedEvent creates a new PointsEarnedEvent.
func NewPointsEarnedEvent(learnerID string, amount, newTotal int, source string, at time.Time) PointsEarnedEvent {
	return PointsEarnedEvent{
		BaseEvent: NewBaseEvent(EventPointsEarned, learnerID, at),
		LearnerID: learnerID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// ModuleCompletedEvent is emitted the first time a learner passes a module quiz.
type ModuleCompletedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	ModuleID  string `json:"module_id"`
	Score     int    `json:"score"`
}

// Payload implements Event interface.
func (e ModuleCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"module_id":  e.ModuleID,
		"score":      e.Score,
	}
}

// NewModuleCompletedEvent creates a new ModuleCompletedEvent.
func NewModuleCompletedEvent(learnerID, moduleID string, score int, at time.Time) ModuleCompletedEvent {
	return ModuleCompletedEvent{
		BaseEvent: NewBaseEvent(EventModuleCompleted, learnerID, at),
		LearnerID: learnerID,
		ModuleID:  moduleID,
		Score:     score,
	}
}

// BadgeEarnedEvent is emitted once per newly granted badge.
type BadgeEarnedEvent struct {
	BaseEvent
	LearnerID string `json:"learner_id"`
	BadgeID   string `json:"badge_id"`
	BadgeName string `json:"badge_name"`
}

// Payload implements Event interface.
func (e BadgeEarnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id": e.LearnerID,
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
	}
}

// NewBadgeEarnedEvent creates a new BadgeEarnedEvent.
func NewBadgeEarnedEvent(learnerID, badgeID, badgeName string, at time.Time) BadgeEarnedEvent {
	return BadgeEarnedEvent{
		BaseEvent: NewBaseEvent(EventBadgeEarned, learnerID, at),
		LearnerID: learnerID,
		BadgeID:   badgeID,
		BadgeName: badgeName,
	}
}

// ChallengeCompletedEvent is emitted when a daily challenge is completed for the first time.
type ChallengeCompletedEvent struct {
	BaseEvent
	LearnerID   string `json:"learner_id"`
	ChallengeID string `json:"challenge_id"`
	Points      int    `json:"points"`
	Total       int    `json:"total"` // challenges completed so far
}

// Payload implements Event interface.
func (e ChallengeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":   e.LearnerID,
		"challenge_id": e.ChallengeID,
		"points":       e.Points,
		"total":        e.Total,
	}
}

// NewChallengeCompletedEvent creates a new ChallengeCompletedEvent.
func NewChallengeCompletedEvent(learnerID, challengeID string, points, total int, at time.Time) ChallengeCompletedEvent {
	return ChallengeCompletedEvent{
		BaseEvent:   NewBaseEvent(EventChallengeCompleted, learnerID, at),
		LearnerID:   learnerID,
		ChallengeID: challengeID,
		Points:      points,
		Total:       total,
	}
}

// StreakUpdatedEvent is emitted when the streak counter changes.
type StreakUpdatedEvent struct {
	BaseEvent
	LearnerID      string `json:"learner_id"`
	PreviousStreak int    `json:"previous_streak"`
	NewStreak      int    `json:"new_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":      e.LearnerID,
		"previous_streak": e.PreviousStreak,
		"new_streak":      e.NewStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(learnerID string, previous, current int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:      NewBaseEvent(EventStreakUpdated, learnerID, at),
		LearnerID:      learnerID,
		PreviousStreak: previous,
		NewStreak:      current,
	}
}

// Broken reports whether the streak was reset rather than extended.
func (e StreakUpdatedEvent) Broken() bool {
	return e.NewStreak <= e.PreviousStreak
}

// ProgressResetEvent is emitted when a learner wipes their profile.
type ProgressResetEvent struct {
	BaseEvent
	LearnerID      string `json:"learner_id"`
	PreviousPoints int    `json:"previous_points"`
}

// Payload implements Event interface.
func (e ProgressResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"learner_id":      e.LearnerID,
		"previous_points": e.PreviousPoints,
	}
}

// NewProgressResetEvent creates a new ProgressResetEvent.
func NewProgressResetEvent(learnerID string, previousPoints int, at time.Time) ProgressResetEvent {
	return ProgressResetEvent{
		BaseEvent:      NewBaseEvent(EventProgressReset, learnerID, at),
		LearnerID:      learnerID,
		PreviousPoints: previousPoints,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Ports
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }

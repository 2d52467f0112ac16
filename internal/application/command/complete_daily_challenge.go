package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE DAILY CHALLENGE COMMAND
// Marks a day's challenge done. Each challenge ID pays out once; a repeated
// call is a no-op that leaves the stored profile untouched.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteDailyChallengeCommand contains the data to complete a challenge.
type CompleteDailyChallengeCommand struct {
	// LearnerID identifies the profile (empty means the default learner).
	LearnerID string

	// ChallengeID is "challenge-YYYY-MM-DD".
	ChallengeID string

	// Points is the reward shown on the challenge card.
	Points int
}

// Validate validates the command.
func (c CompleteDailyChallengeCommand) Validate() error {
	if _, err := learner.ParseChallengeID(strings.TrimSpace(c.ChallengeID)); err != nil {
		return err
	}
	return learner.ValidatePoints(c.Points)
}

// CompleteDailyChallengeResult contains the result of completing a challenge.
type CompleteDailyChallengeResult struct {
	Profile *learner.Profile

	// NewBadges are the badges granted by this call.
	NewBadges []string

	// PointsEarned is 0 when the challenge was already completed.
	PointsEarned int

	// AlreadyCompleted is true when the call changed nothing.
	AlreadyCompleted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteDailyChallengeHandler handles the CompleteDailyChallengeCommand.
type CompleteDailyChallengeHandler struct {
	pipeline *Pipeline
}

// NewCompleteDailyChallengeHandler creates a new CompleteDailyChallengeHandler.
func NewCompleteDailyChallengeHandler(pipeline *Pipeline) *CompleteDailyChallengeHandler {
	return &CompleteDailyChallengeHandler{pipeline: pipeline}
}

// Handle executes the complete daily challenge command.
func (h *CompleteDailyChallengeHandler) Handle(ctx context.Context, cmd CompleteDailyChallengeCommand) (*CompleteDailyChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: validation failed: %w", err)
	}

	learnerID, err := h.pipeline.ResolveLearnerID(cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: %w", err)
	}
	challengeID := strings.TrimSpace(cmd.ChallengeID)

	tr, err := h.pipeline.Run(ctx, learnerID, "complete_daily_challenge", func(p *learner.Profile, at time.Time) (Effect, error) {
		if !p.CompleteChallenge(challengeID, cmd.Points) {
			return Effect{Skip: true}, nil
		}
		return Effect{
			Events: []shared.Event{
				shared.NewChallengeCompletedEvent(learnerID, challengeID, cmd.Points, p.ChallengeCount(), at),
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete_daily_challenge: %w", err)
	}

	result := &CompleteDailyChallengeResult{
		Profile:          tr.Profile,
		NewBadges:        nonNilBadges(tr.NewBadges),
		AlreadyCompleted: tr.Skipped,
	}
	if !tr.Skipped {
		result.PointsEarned = cmd.Points
	}
	return result, nil
}

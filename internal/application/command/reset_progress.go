package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET PROGRESS COMMAND
// Replaces the stored profile with a fresh default one dated today.
// ══════════════════════════════════════════════════════════════════════════════

// ResetProgressCommand identifies the profile to reset.
type ResetProgressCommand struct {
	LearnerID string
}

// ResetProgressResult contains the fresh profile.
type ResetProgressResult struct {
	Profile *learner.Profile

	// PreviousPoints is the point total that was discarded.
	PreviousPoints int
}

// ResetProgressHandler handles the ResetProgressCommand.
type ResetProgressHandler struct {
	pipeline *Pipeline
}

// NewResetProgressHandler creates a new ResetProgressHandler.
func NewResetProgressHandler(pipeline *Pipeline) *ResetProgressHandler {
	return &ResetProgressHandler{pipeline: pipeline}
}

// Handle executes the reset.
func (h *ResetProgressHandler) Handle(ctx context.Context, cmd ResetProgressCommand) (*ResetProgressResult, error) {
	learnerID, err := h.pipeline.ResolveLearnerID(cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("reset_progress: %w", err)
	}

	var previous int
	tr, err := h.pipeline.Run(ctx, learnerID, "reset_progress", func(p *learner.Profile, at time.Time) (Effect, error) {
		previous = p.Points
		version := p.Version

		*p = *learner.NewDefaultProfile(learnerID, h.pipeline.DefaultName(), timeutil.FormatDate(at))
		p.Version = version

		return Effect{
			SkipBadges: true,
			Events:     []shared.Event{shared.NewProgressResetEvent(learnerID, previous, at)},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reset_progress: %w", err)
	}

	return &ResetProgressResult{
		Profile:        tr.Profile,
		PreviousPoints: previous,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CREATE LEARNER COMMAND
// Issues a new learner ID and stores a fresh profile under it.
// ══════════════════════════════════════════════════════════════════════════════

// CreateLearnerHandler creates learner profiles with generated IDs.
type CreateLearnerHandler struct {
	reset *ResetProgressHandler
	newID func() string
}

// NewCreateLearnerHandler creates a new CreateLearnerHandler.
func NewCreateLearnerHandler(reset *ResetProgressHandler) *CreateLearnerHandler {
	return &CreateLearnerHandler{
		reset: reset,
		newID: func() string { return uuid.NewString() },
	}
}

// Handle creates the learner and returns its fresh profile.
func (h *CreateLearnerHandler) Handle(ctx context.Context) (*learner.Profile, error) {
	res, err := h.reset.Handle(ctx, ResetProgressCommand{LearnerID: h.newID()})
	if err != nil {
		return nil, fmt.Errorf("create_learner: %w", err)
	}
	return res.Profile, nil
}

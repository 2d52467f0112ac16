package command

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD GAME POINTS COMMAND
// Credits points won in a mini-game.
// ══════════════════════════════════════════════════════════════════════════════

// AddGamePointsCommand contains the points won in a game round.
type AddGamePointsCommand struct {
	LearnerID string
	Points    int
}

// Validate validates the command.
func (c AddGamePointsCommand) Validate() error {
	return learner.ValidatePoints(c.Points)
}

// AddGamePointsResult contains the result of adding game points.
type AddGamePointsResult struct {
	Profile      *learner.Profile
	NewBadges    []string
	PointsEarned int
}

// AddGamePointsHandler handles the AddGamePointsCommand.
type AddGamePointsHandler struct {
	pipeline *Pipeline
}

// NewAddGamePointsHandler creates a new AddGamePointsHandler.
func NewAddGamePointsHandler(pipeline *Pipeline) *AddGamePointsHandler {
	return &AddGamePointsHandler{pipeline: pipeline}
}

// Handle executes the add game points command.
func (h *AddGamePointsHandler) Handle(ctx context.Context, cmd AddGamePointsCommand) (*AddGamePointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_game_points: validation failed: %w", err)
	}

	learnerID, err := h.pipeline.ResolveLearnerID(cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("add_game_points: %w", err)
	}

	tr, err := h.pipeline.Run(ctx, learnerID, "add_game_points", func(p *learner.Profile, at time.Time) (Effect, error) {
		p.AddGamePoints(cmd.Points)

		var events []shared.Event
		if cmd.Points > 0 {
			events = append(events, shared.NewPointsEarnedEvent(learnerID, cmd.Points, p.Points, "game", at))
		}
		return Effect{Events: events}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("add_game_points: %w", err)
	}

	return &AddGamePointsResult{
		Profile:      tr.Profile,
		NewBadges:    nonNilBadges(tr.NewBadges),
		PointsEarned: cmd.Points,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT GAME ROUND COMMAND
// Scores a mini-game round on the server and credits the total.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitGameRoundCommand contains the moves of one game round.
type SubmitGameRoundCommand struct {
	LearnerID string
	Game      string
	Answers   []curriculum.RoundAnswer
}

// SubmitGameRoundResult embeds the credited points and the round score.
type SubmitGameRoundResult struct {
	*AddGamePointsResult
	Score curriculum.RoundScore
}

// SubmitGameRoundHandler handles the SubmitGameRoundCommand.
type SubmitGameRoundHandler struct {
	addPoints *AddGamePointsHandler
}

// NewSubmitGameRoundHandler creates a new SubmitGameRoundHandler.
func NewSubmitGameRoundHandler(addPoints *AddGamePointsHandler) *SubmitGameRoundHandler {
	return &SubmitGameRoundHandler{addPoints: addPoints}
}

// Handle scores the round and credits its points.
func (h *SubmitGameRoundHandler) Handle(ctx context.Context, cmd SubmitGameRoundCommand) (*SubmitGameRoundResult, error) {
	game, err := curriculum.ParseGameID(cmd.Game)
	if err != nil {
		return nil, fmt.Errorf("submit_game_round: %w", err)
	}

	score, err := curriculum.ScoreRound(game, cmd.Answers)
	if err != nil {
		return nil, fmt.Errorf("submit_game_round: %w", err)
	}

	res, err := h.addPoints.Handle(ctx, AddGamePointsCommand{
		LearnerID: cmd.LearnerID,
		Points:    score.Points,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitGameRoundResult{
		AddGamePointsResult: res,
		Score:               score,
	}, nil
}

package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD QUIZ RESULT COMMAND
// Applies a graded module quiz: points, best score, module completion,
// quiz badges and the daily streak.
// ══════════════════════════════════════════════════════════════════════════════

// RecordQuizResultCommand contains the data of a finished quiz.
type RecordQuizResultCommand struct {
	// LearnerID identifies the profile (empty means the default learner).
	LearnerID string

	// ModuleID is the learning module the quiz belongs to.
	ModuleID string

	// Score is the number of correct answers.
	Score int

	// TotalQuestions is the number of questions in the quiz.
	TotalQuestions int
}

// Validate validates the command.
func (c RecordQuizResultCommand) Validate() error {
	if strings.TrimSpace(c.ModuleID) == "" {
		return shared.ErrUnknownModule
	}
	if c.TotalQuestions <= 0 {
		return shared.ErrInvalidTotal
	}
	if c.Score < 0 || c.Score > c.TotalQuestions {
		return shared.ErrInvalidScore
	}
	return nil
}

// RecordQuizResultResult contains the result of recording a quiz.
type RecordQuizResultResult struct {
	// Profile is the profile after the transition.
	Profile *learner.Profile

	// PointsEarned is base points plus the perfect bonus.
	PointsEarned int

	// NewBadges are the badges granted by this call, external ones first.
	NewBadges []string

	// IsNewCompletion is true only when this call completed the module.
	IsNewCompletion bool

	// Outcome is the full scoring breakdown.
	Outcome learner.QuizOutcome
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordQuizResultHandler handles the RecordQuizResultCommand.
type RecordQuizResultHandler struct {
	pipeline *Pipeline
	catalog  *curriculum.Catalog
}

// NewRecordQuizResultHandler creates a new RecordQuizResultHandler.
func NewRecordQuizResultHandler(pipeline *Pipeline, catalog *curriculum.Catalog) *RecordQuizResultHandler {
	return &RecordQuizResultHandler{
		pipeline: pipeline,
		catalog:  catalog,
	}
}

// Handle executes the record quiz result command.
func (h *RecordQuizResultHandler) Handle(ctx context.Context, cmd RecordQuizResultCommand) (*RecordQuizResultResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_quiz_result: validation failed: %w", err)
	}

	learnerID, err := h.pipeline.ResolveLearnerID(cmd.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("record_quiz_result: %w", err)
	}

	if !h.catalog.Has(cmd.ModuleID) {
		return nil, fmt.Errorf("record_quiz_result: module %q: %w", cmd.ModuleID, shared.ErrUnknownModule)
	}

	outcome, err := learner.ScoreQuiz(cmd.Score, cmd.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("record_quiz_result: %w", err)
	}

	var newCompletion bool
	tr, err := h.pipeline.Run(ctx, learnerID, "record_quiz_result", func(p *learner.Profile, at time.Time) (Effect, error) {
		newCompletion = p.RecordQuizResult(cmd.ModuleID, cmd.Score, outcome)

		var events []shared.Event
		if outcome.PointsEarned > 0 {
			events = append(events, shared.NewPointsEarnedEvent(learnerID, outcome.PointsEarned, p.Points, "quiz", at))
		}
		if newCompletion {
			events = append(events, shared.NewModuleCompletedEvent(learnerID, cmd.ModuleID, cmd.Score, at))
		}

		return Effect{
			ExternalBadges: learner.ExternalBadges(outcome),
			Events:         events,
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record_quiz_result: %w", err)
	}

	return &RecordQuizResultResult{
		Profile:         tr.Profile,
		PointsEarned:    outcome.PointsEarned,
		NewBadges:       nonNilBadges(tr.NewBadges),
		IsNewCompletion: newCompletion,
		Outcome:         outcome,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ ANSWERS COMMAND
// Grades raw answers against the curriculum, then records the result.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizAnswersCommand contains the learner's answers to a module quiz.
type SubmitQuizAnswersCommand struct {
	LearnerID string
	ModuleID  string

	// Answers holds the chosen option index per question (curriculum.Unanswered to skip).
	Answers []int
}

// SubmitQuizAnswersResult embeds the recorded result and the grade.
type SubmitQuizAnswersResult struct {
	*RecordQuizResultResult
	Grade curriculum.QuizGrade
}

// SubmitQuizAnswersHandler handles the SubmitQuizAnswersCommand.
type SubmitQuizAnswersHandler struct {
	catalog *curriculum.Catalog
	record  *RecordQuizResultHandler
}

// NewSubmitQuizAnswersHandler creates a new SubmitQuizAnswersHandler.
func NewSubmitQuizAnswersHandler(catalog *curriculum.Catalog, record *RecordQuizResultHandler) *SubmitQuizAnswersHandler {
	return &SubmitQuizAnswersHandler{
		catalog: catalog,
		record:  record,
	}
}

// Handle grades the answers and records the quiz.
func (h *SubmitQuizAnswersHandler) Handle(ctx context.Context, cmd SubmitQuizAnswersCommand) (*SubmitQuizAnswersResult, error) {
	module, err := h.catalog.Module(cmd.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz_answers: %w", err)
	}

	grade, err := curriculum.GradeQuiz(module, cmd.Answers)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz_answers: %w", err)
	}

	res, err := h.record.Handle(ctx, RecordQuizResultCommand{
		LearnerID:      cmd.LearnerID,
		ModuleID:       module.ID,
		Score:          grade.Correct,
		TotalQuestions: grade.Total,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitQuizAnswersResult{
		RecordQuizResultResult: res,
		Grade:                  grade,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func nonNilBadges(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

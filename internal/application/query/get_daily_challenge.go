package query

import (
	"context"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY CHALLENGE QUERY
// Задание дня детерминировано датой: все ученики видят одно и то же
// задание, пока не сменится календарный день.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyChallengeQuery содержит параметры запроса.
type GetDailyChallengeQuery struct {
	// LearnerID - если задан, ответ помечается флагом Completed.
	LearnerID string

	// Date - дата YYYY-MM-DD (пустая = сегодня по часам сервиса).
	Date string
}

// DailyChallengeDTO - задание дня.
type DailyChallengeDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Points      int    `json:"points"`
	Date        string `json:"date"`
	Completed   bool   `json:"completed"`
}

// GetDailyChallengeHandler обрабатывает запрос задания дня.
type GetDailyChallengeHandler struct {
	clock timeutil.Clock
	repo  learner.Repository
}

// NewGetDailyChallengeHandler создаёт обработчик. repo может быть nil,
// тогда отметка Completed не вычисляется.
func NewGetDailyChallengeHandler(clock timeutil.Clock, repo learner.Repository) *GetDailyChallengeHandler {
	return &GetDailyChallengeHandler{
		clock: clock,
		repo:  repo,
	}
}

// Handle выполняет запрос.
func (h *GetDailyChallengeHandler) Handle(ctx context.Context, q GetDailyChallengeQuery) (*DailyChallengeDTO, error) {
	date := q.Date
	if date == "" {
		date = timeutil.Today(h.clock)
	}

	c, err := learner.ChallengeForDate(date)
	if err != nil {
		return nil, fmt.Errorf("get_daily_challenge: %w", err)
	}

	dto := &DailyChallengeDTO{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Emoji:       c.Emoji,
		Points:      c.Points,
		Date:        c.Date,
	}

	if q.LearnerID != "" && h.repo != nil {
		learnerID, err := resolveLearnerID(q.LearnerID, learner.DefaultLearnerID)
		if err != nil {
			return nil, fmt.Errorf("get_daily_challenge: %w", err)
		}
		dto.Completed = h.repo.Load(ctx, learnerID).HasCompletedChallenge(c.ID)
	}

	return dto, nil
}

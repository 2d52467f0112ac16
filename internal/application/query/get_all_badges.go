package query

import (
	"context"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ALL BADGES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAllBadgesQuery содержит параметры запроса каталога значков.
type GetAllBadgesQuery struct {
	// LearnerID - если задан, каждый значок помечается флагом Earned.
	LearnerID string
}

// BadgeDTO - значок каталога.
type BadgeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	Rule        string `json:"rule"`
	Earned      bool   `json:"earned"`
}

// GetAllBadgesHandler обрабатывает запрос каталога значков.
type GetAllBadgesHandler struct {
	repo learner.Repository
}

// NewGetAllBadgesHandler создаёт обработчик. repo может быть nil.
func NewGetAllBadgesHandler(repo learner.Repository) *GetAllBadgesHandler {
	return &GetAllBadgesHandler{repo: repo}
}

// Handle возвращает значки в порядке каталога.
func (h *GetAllBadgesHandler) Handle(ctx context.Context, q GetAllBadgesQuery) ([]BadgeDTO, error) {
	var profile *learner.Profile
	if q.LearnerID != "" && h.repo != nil {
		learnerID, err := resolveLearnerID(q.LearnerID, learner.DefaultLearnerID)
		if err != nil {
			return nil, fmt.Errorf("get_all_badges: %w", err)
		}
		profile = h.repo.Load(ctx, learnerID)
	}

	catalog := learner.Badges()
	out := make([]BadgeDTO, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, BadgeDTO{
			ID:          b.ID,
			Name:        b.Name,
			Emoji:       b.Emoji,
			Description: b.Description,
			Rule:        b.Rule.Describe(),
			Earned:      profile != nil && profile.HasBadge(b.ID),
		})
	}
	return out, nil
}

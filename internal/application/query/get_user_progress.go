package query

import (
	"context"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/application/command"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Возвращает профиль ученика для дашборда. Чтение засчитывается как
// активность: серия дней обновляется и профиль сохраняется.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProgressQuery содержит параметры запроса прогресса.
type GetUserProgressQuery struct {
	// LearnerID - ученик (пустой = ученик по умолчанию).
	LearnerID string
}

// ModuleProgressDTO - прогресс по одному модулю.
type ModuleProgressDTO struct {
	ModuleID        string `json:"moduleId"`
	Title           string `json:"title"`
	Emoji           string `json:"emoji"`
	BestScore       int    `json:"bestScore"`
	TotalQuestions  int    `json:"totalQuestions"`
	ProgressPercent int    `json:"progressPercent"`
	Completed       bool   `json:"completed"`
}

// UserProgressDTO - ответ на запрос прогресса.
type UserProgressDTO struct {
	Profile ProfileDTO          `json:"profile"`
	Modules []ModuleProgressDTO `json:"modules"`

	// BadgesEarned / BadgesTotal - для полосы "значки 3 из 8".
	BadgesEarned int `json:"badgesEarned"`
	BadgesTotal  int `json:"badgesTotal"`

	// StreakChanged - серия изменилась именно этим запросом.
	StreakChanged bool `json:"streakChanged"`

	profile *learner.Profile
}

// Raw возвращает профиль, из которого построен DTO.
func (d *UserProgressDTO) Raw() *learner.Profile {
	return d.profile
}

// ActivityToucher фиксирует активность ученика за сегодня.
type ActivityToucher interface {
	ResolveLearnerID(id string) (string, error)
	Touch(ctx context.Context, learnerID string) (*command.Transition, error)
}

// GetUserProgressHandler обрабатывает запрос прогресса.
type GetUserProgressHandler struct {
	toucher ActivityToucher
	catalog *curriculum.Catalog
}

// NewGetUserProgressHandler создаёт новый обработчик.
func NewGetUserProgressHandler(toucher ActivityToucher, catalog *curriculum.Catalog) *GetUserProgressHandler {
	return &GetUserProgressHandler{
		toucher: toucher,
		catalog: catalog,
	}
}

// Handle выполняет запрос.
func (h *GetUserProgressHandler) Handle(ctx context.Context, q GetUserProgressQuery) (*UserProgressDTO, error) {
	learnerID, err := h.toucher.ResolveLearnerID(q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_user_progress: %w", err)
	}

	tr, err := h.toucher.Touch(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_user_progress: %w", err)
	}
	p := tr.Profile

	modules := h.catalog.Modules()
	views := make([]ModuleProgressDTO, 0, len(modules))
	for _, m := range modules {
		best := p.BestScore(m.ID)
		completed := p.IsModuleCompleted(m.ID)
		views = append(views, ModuleProgressDTO{
			ModuleID:        m.ID,
			Title:           m.Title,
			Emoji:           m.Emoji,
			BestScore:       best,
			TotalQuestions:  m.QuestionCount(),
			ProgressPercent: m.ProgressPercent(best, completed),
			Completed:       completed,
		})
	}

	return &UserProgressDTO{
		Profile:       NewProfileDTO(p),
		Modules:       views,
		BadgesEarned:  len(p.Badges),
		BadgesTotal:   len(learner.Badges()),
		StreakChanged: tr.Streak.Changed(),
		profile:       p,
	}, nil
}

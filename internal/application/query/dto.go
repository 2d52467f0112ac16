// Package query contains read operations (CQRS - Queries).
package query

import (
	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE DTO
// Представление профиля для клиентов. Имена полей совпадают с документом,
// который хранит прогресс.
// ══════════════════════════════════════════════════════════════════════════════

// ImpactDTO - эко-счётчики ученика.
type ImpactDTO struct {
	TreesPlanted   int `json:"treesPlanted"`
	PlasticReduced int `json:"plasticReduced"`
	EnergySaved    int `json:"energySaved"`
}

// ProfileDTO - профиль ученика для ответа API.
type ProfileDTO struct {
	ID                       string         `json:"id"`
	Name                     string         `json:"name"`
	Points                   int            `json:"points"`
	Badges                   []string       `json:"badges"`
	CompletedModules         []string       `json:"completedModules"`
	ModuleScores             map[string]int `json:"moduleScores"`
	DailyChallengesCompleted []string       `json:"dailyChallengesCompleted"`
	StreakDays               int            `json:"streakDays"`
	LastActiveDate           string         `json:"lastActiveDate"`
	Impact                   ImpactDTO      `json:"impact"`
}

// NewProfileDTO копирует профиль в DTO. Коллекции никогда не nil.
func NewProfileDTO(p *learner.Profile) ProfileDTO {
	c := p.Clone()
	if c.ModuleScores == nil {
		c.ModuleScores = map[string]int{}
	}
	return ProfileDTO{
		ID:                       c.ID,
		Name:                     c.Name,
		Points:                   c.Points,
		Badges:                   c.Badges,
		CompletedModules:         c.CompletedModules,
		ModuleScores:             c.ModuleScores,
		DailyChallengesCompleted: c.DailyChallengesCompleted,
		StreakDays:               c.StreakDays,
		LastActiveDate:           c.LastActiveDate,
		Impact: ImpactDTO{
			TreesPlanted:   c.Impact.TreesPlanted,
			PlasticReduced: c.Impact.PlasticReduced,
			EnergySaved:    c.Impact.EnergySaved,
		},
	}
}

// resolveLearnerID возвращает ID ученика или fallback для пустой строки.
func resolveLearnerID(id, fallback string) (string, error) {
	if id == "" {
		return fallback, nil
	}
	lid, err := shared.NewLearnerID(id)
	if err != nil {
		return "", err
	}
	return lid.String(), nil
}

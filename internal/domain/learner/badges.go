package learner

import (
	"fmt"
	"strings"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE IDS
// ══════════════════════════════════════════════════════════════════════════════

const (
	BadgeRecycleHero    = "recycle-hero"
	BadgeWaterSaver     = "water-saver"
	BadgeEnergyChampion = "energy-champion"
	BadgeClimateWarrior = "climate-warrior"
	BadgeGreenThumb     = "green-thumb"
	BadgeEcoMaster      = "eco-master"
	BadgeQuizWhiz       = "quiz-whiz"
	BadgeDailyStar      = "daily-star"
)

// TriggerPerfectQuiz - внешний триггер значка quiz-whiz.
const TriggerPerfectQuiz = "perfect-quiz"

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RULES
// Каждое правило - ровно один из вариантов ниже. Вычислитель делает
// исчерпывающий switch по типу, а не угадывает вид правила по полям.
// ══════════════════════════════════════════════════════════════════════════════

// Rule - условие получения значка.
type Rule interface {
	// Describe возвращает человекочитаемое описание условия.
	Describe() string

	rule()
}

// ModuleSetRule - все перечисленные модули пройдены.
type ModuleSetRule struct {
	Modules []string
}

// PointsThresholdRule - набрано не меньше Threshold очков.
type PointsThresholdRule struct {
	Threshold int
}

// ChallengeCountRule - выполнено не меньше Threshold ежедневных заданий.
type ChallengeCountRule struct {
	Threshold int
}

// ExternalTriggerRule - значок выдаётся явным вызовом по событию Trigger,
// общий вычислитель его никогда не выдаёт.
type ExternalTriggerRule struct {
	Trigger string
}

func (ModuleSetRule) rule()       {}
func (PointsThresholdRule) rule() {}
func (ChallengeCountRule) rule()  {}
func (ExternalTriggerRule) rule() {}

// Describe implements Rule.
func (r ModuleSetRule) Describe() string {
	return "complete modules: " + strings.Join(r.Modules, ", ")
}

// Describe implements Rule.
func (r PointsThresholdRule) Describe() string {
	return fmt.Sprintf("earn %d eco points", r.Threshold)
}

// Describe implements Rule.
func (r ChallengeCountRule) Describe() string {
	return fmt.Sprintf("complete %d daily challenges", r.Threshold)
}

// Describe implements Rule.
func (r ExternalTriggerRule) Describe() string {
	return "awarded on " + r.Trigger
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Badge - значок из статического каталога.
type Badge struct {
	ID          string
	Name        string
	Emoji       string
	Description string
	Rule        Rule
}

var badgeCatalog = []Badge{
	{ID: BadgeRecycleHero, Name: "Recycle Hero", Emoji: "♻️", Description: "Complete the Recycling module",
		Rule: ModuleSetRule{Modules: []string{curriculum.ModuleRecycling}}},
	{ID: BadgeWaterSaver, Name: "Water Saver", Emoji: "💧", Description: "Complete the Water & Energy module",
		Rule: ModuleSetRule{Modules: []string{curriculum.ModuleWaterEnergy}}},
	{ID: BadgeEnergyChampion, Name: "Energy Champion", Emoji: "⚡", Description: "Earn 500 Eco Points",
		Rule: PointsThresholdRule{Threshold: 500}},
	{ID: BadgeClimateWarrior, Name: "Climate Warrior", Emoji: "🌍", Description: "Complete the Climate module",
		Rule: ModuleSetRule{Modules: []string{curriculum.ModuleClimate}}},
	{ID: BadgeGreenThumb, Name: "Green Thumb", Emoji: "🌱", Description: "Complete the Green Habits module",
		Rule: ModuleSetRule{Modules: []string{curriculum.ModuleGreenHabits}}},
	{ID: BadgeEcoMaster, Name: "Eco Master", Emoji: "🏆", Description: "Complete all modules",
		Rule: ModuleSetRule{Modules: []string{
			curriculum.ModuleClimate, curriculum.ModuleRecycling,
			curriculum.ModuleWaterEnergy, curriculum.ModuleGreenHabits,
		}}},
	{ID: BadgeQuizWhiz, Name: "Quiz Whiz", Emoji: "🧠", Description: "Score 100% on any quiz",
		Rule: ExternalTriggerRule{Trigger: TriggerPerfectQuiz}},
	{ID: BadgeDailyStar, Name: "Daily Star", Emoji: "⭐", Description: "Complete 5 daily challenges",
		Rule: ChallengeCountRule{Threshold: 5}},
}

// Badges возвращает каталог значков в порядке вычисления.
func Badges() []Badge {
	return append([]Badge(nil), badgeCatalog...)
}

// BadgeByID ищет значок в каталоге.
func BadgeByID(id string) (Badge, bool) {
	for _, b := range badgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Satisfied проверяет правило на текущем состоянии профиля.
// Функция тотальна: неизвестный вариант правила не выполняется.
func Satisfied(r Rule, p *Profile) bool {
	switch r := r.(type) {
	case ModuleSetRule:
		if len(r.Modules) == 0 {
			return false
		}
		for _, m := range r.Modules {
			if !p.IsModuleCompleted(m) {
				return false
			}
		}
		return true
	case PointsThresholdRule:
		return p.Points >= r.Threshold
	case ChallengeCountRule:
		return p.ChallengeCount() >= r.Threshold
	case ExternalTriggerRule:
		return false
	default:
		return false
	}
}

// EvaluateBadges возвращает значки, которых ещё нет у профиля и правила
// которых теперь выполнены, в порядке каталога. Профиль не меняется.
func EvaluateBadges(p *Profile) []string {
	var earned []string
	for _, b := range badgeCatalog {
		if p.HasBadge(b.ID) {
			continue
		}
		if Satisfied(b.Rule, p) {
			earned = append(earned, b.ID)
		}
	}
	return earned
}

// BadgesForTrigger возвращает значки, выдаваемые внешним триггером, в порядке каталога.
func BadgesForTrigger(trigger string) []string {
	var ids []string
	for _, b := range badgeCatalog {
		if r, ok := b.Rule.(ExternalTriggerRule); ok && r.Trigger == trigger {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// ExternalBadges возвращает значки внешних триггеров, сработавших на результате викторины.
func ExternalBadges(outcome QuizOutcome) []string {
	if outcome.Perfect {
		return BadgesForTrigger(TriggerPerfectQuiz)
	}
	return nil
}

// AwardBadges - единый проход выдачи: сначала внешние значки, затем
// значки по правилам каталога. Каждый значок выдаётся не больше одного раза.
func AwardBadges(p *Profile, external ...string) []string {
	granted := p.GrantBadges(external...)
	return append(granted, p.GrantBadges(EvaluateBadges(p)...)...)
}

package learner

import (
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultLearnerID - идентификатор профиля по умолчанию.
	DefaultLearnerID = "guest-user"

	// DefaultDisplayName - имя нового ученика.
	DefaultDisplayName = "Eco Explorer"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Profile - сохранённый прогресс одного ученика.
type Profile struct {
	// ID - непрозрачный идентификатор ученика.
	ID string

	// Name - отображаемое имя.
	Name string

	// Points - эко-очки. Уменьшаются только при сбросе.
	Points int

	// Badges - полученные значки в порядке получения.
	Badges []string

	// CompletedModules - пройденные модули в порядке прохождения.
	CompletedModules []string

	// ModuleScores - лучший "сырой" результат викторины по модулю.
	ModuleScores map[string]int

	// DailyChallengesCompleted - ID выполненных ежедневных заданий.
	DailyChallengesCompleted []string

	// StreakDays - сколько календарных дней подряд была активность.
	StreakDays int

	// LastActiveDate - дата последней записи профиля (YYYY-MM-DD).
	LastActiveDate string

	// Impact - накопленные эко-счётчики.
	Impact Impact

	// Version - версия записи в хранилище для оптимистичной блокировки.
	// Не входит в документ профиля, заполняется репозиторием.
	Version int64
}

// NewDefaultProfile создаёт пустой профиль с датой активности today.
func NewDefaultProfile(id, name, today string) *Profile {
	if id == "" {
		id = DefaultLearnerID
	}
	if name == "" {
		name = DefaultDisplayName
	}
	return &Profile{
		ID:                       id,
		Name:                     name,
		Badges:                   []string{},
		CompletedModules:         []string{},
		ModuleScores:             map[string]int{},
		DailyChallengesCompleted: []string{},
		LastActiveDate:           today,
	}
}

// Clone возвращает глубокую копию профиля.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Badges = append([]string{}, p.Badges...)
	c.CompletedModules = append([]string{}, p.CompletedModules...)
	c.DailyChallengesCompleted = append([]string{}, p.DailyChallengesCompleted...)
	c.ModuleScores = make(map[string]int, len(p.ModuleScores))
	for k, v := range p.ModuleScores {
		c.ModuleScores[k] = v
	}
	return &c
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// HasBadge проверяет, получен ли значок.
func (p *Profile) HasBadge(id string) bool {
	return contains(p.Badges, id)
}

// IsModuleCompleted проверяет, пройден ли модуль.
func (p *Profile) IsModuleCompleted(id string) bool {
	return contains(p.CompletedModules, id)
}

// HasCompletedChallenge проверяет, выполнено ли задание.
func (p *Profile) HasCompletedChallenge(id string) bool {
	return contains(p.DailyChallengesCompleted, id)
}

// BestScore возвращает лучший результат по модулю (0, если попыток не было).
func (p *Profile) BestScore(moduleID string) int {
	return p.ModuleScores[moduleID]
}

// ChallengeCount возвращает количество выполненных ежедневных заданий.
func (p *Profile) ChallengeCount() int {
	return len(p.DailyChallengesCompleted)
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// RecordQuizResult применяет оценённую викторину к профилю.
// Возвращает true, если именно этот вызов впервые завершил модуль.
func (p *Profile) RecordQuizResult(moduleID string, score int, outcome QuizOutcome) bool {
	p.Points += outcome.PointsEarned
	p.Impact = p.Impact.Add(QuizImpact(outcome.PointsEarned))

	if p.ModuleScores == nil {
		p.ModuleScores = map[string]int{}
	}
	if best, ok := p.ModuleScores[moduleID]; !ok || score > best {
		p.ModuleScores[moduleID] = score
	}

	if outcome.Passed && !p.IsModuleCompleted(moduleID) {
		p.CompletedModules = append(p.CompletedModules, moduleID)
		return true
	}
	return false
}

// CompleteChallenge отмечает ежедневное задание выполненным.
// Повторный вызов с тем же ID ничего не меняет и возвращает false.
func (p *Profile) CompleteChallenge(challengeID string, points int) bool {
	if p.HasCompletedChallenge(challengeID) {
		return false
	}
	p.DailyChallengesCompleted = append(p.DailyChallengesCompleted, challengeID)
	p.Points += points
	p.Impact = p.Impact.Add(ChallengeImpact(points))
	return true
}

// AddGamePoints начисляет очки за мини-игру.
func (p *Profile) AddGamePoints(points int) {
	p.Points += points
	p.Impact = p.Impact.Add(GameImpact(points))
}

// GrantBadges добавляет значки, которых ещё нет, и возвращает реально добавленные.
func (p *Profile) GrantBadges(ids ...string) []string {
	granted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || p.HasBadge(id) {
			continue
		}
		p.Badges = append(p.Badges, id)
		granted = append(granted, id)
	}
	return granted
}

// UpdateStreak применяет калькулятор серии к профилю на месте.
func (p *Profile) UpdateStreak(today string) StreakChange {
	change := NextStreak(p.StreakDays, p.LastActiveDate, today)
	p.StreakDays = change.Current
	p.LastActiveDate = change.Date
	return change
}

// ─────────────────────────────────────────────────────────────────────────────
// Schema drift
// ─────────────────────────────────────────────────────────────────────────────

// Normalize приводит прочитанный из хранилища профиль к инвариантам:
// пустые коллекции вместо nil, отрицательные счётчики в ноль, дубликаты
// удаляются, битая дата активности заменяется на today.
// Идентификатор всегда берётся из ключа хранилища: документ, записанный
// под чужим id, сохраняется обратно под тем же ключом.
// Возвращает имена исправленных полей.
func (p *Profile) Normalize(id, name, today string) []string {
	var fixed []string

	if p.ID != id {
		p.ID = id
		fixed = append(fixed, "id")
	}
	if p.Name == "" {
		p.Name = name
		fixed = append(fixed, "name")
	}
	if p.Points < 0 {
		p.Points = 0
		fixed = append(fixed, "points")
	}
	if p.StreakDays < 0 {
		p.StreakDays = 0
		fixed = append(fixed, "streakDays")
	}
	if !timeutil.IsValidDate(p.LastActiveDate) {
		p.LastActiveDate = today
		fixed = append(fixed, "lastActiveDate")
	}

	var changed bool
	if p.Badges, changed = dedupe(p.Badges); changed {
		fixed = append(fixed, "badges")
	}
	if p.CompletedModules, changed = dedupe(p.CompletedModules); changed {
		fixed = append(fixed, "completedModules")
	}
	if p.DailyChallengesCompleted, changed = dedupe(p.DailyChallengesCompleted); changed {
		fixed = append(fixed, "dailyChallengesCompleted")
	}

	if p.ModuleScores == nil {
		p.ModuleScores = map[string]int{}
		fixed = append(fixed, "moduleScores")
	}
	negative := false
	for k, v := range p.ModuleScores {
		if v < 0 {
			p.ModuleScores[k] = 0
			negative = true
		}
	}
	if negative {
		fixed = append(fixed, "moduleScores")
	}

	if p.Impact.clampNegative() {
		fixed = append(fixed, "impact")
	}

	return fixed
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// dedupe убирает повторы и пустые строки с сохранением порядка.
// Второй результат - было ли что-то изменено (включая замену nil на пустой срез).
func dedupe(list []string) ([]string, bool) {
	if list == nil {
		return []string{}, true
	}
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, len(out) != len(list)
}

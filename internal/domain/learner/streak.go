package learner

import (
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange - результат применения калькулятора серии.
type StreakChange struct {
	// Previous - серия до изменения.
	Previous int

	// Current - серия после изменения.
	Current int

	// Date - новая дата последней активности.
	Date string
}

// Changed возвращает true, если серия изменилась.
func (c StreakChange) Changed() bool {
	return c.Previous != c.Current
}

// Extended возвращает true, если серия продлилась на день.
func (c StreakChange) Extended() bool {
	return c.Current == c.Previous+1 && c.Current > 1
}

// NextStreak вычисляет серию дней после активности в день today.
//
//   - тот же день: ничего не меняется
//   - ровно на день позже: +1
//   - иначе (пропуск, дата в будущем, битая дата): серия начинается заново с 1
//
// Повторный вызов в тот же день ничего не меняет.
func NextStreak(streakDays int, lastActiveDate, today string) StreakChange {
	change := StreakChange{Previous: streakDays, Current: streakDays, Date: today}

	gap, err := timeutil.DateDiff(lastActiveDate, today)
	switch {
	case err == nil && gap == 0:
		// тот же день
	case err == nil && gap == 1:
		change.Current = streakDays + 1
	default:
		change.Current = 1
	}

	return change
}

// UpdateStreak - чистая форма калькулятора: возвращает копию профиля
// с обновлёнными StreakDays и LastActiveDate, исходный профиль не меняется.
func UpdateStreak(p *Profile, today string) *Profile {
	out := p.Clone()
	out.UpdateStreak(today)
	return out
}

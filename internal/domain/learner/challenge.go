package learner

import (
	"strconv"
	"strings"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CHALLENGE
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeIDPrefix - префикс ID ежедневного задания; за ним идёт дата.
const ChallengeIDPrefix = "challenge-"

// ChallengeTemplate - шаблон задания из фиксированного пула.
type ChallengeTemplate struct {
	Title       string
	Description string
	Emoji       string
	Points      int
}

// DailyChallenge - задание конкретного дня.
type DailyChallenge struct {
	ID          string
	Title       string
	Description string
	Emoji       string
	Points      int
	Date        string
}

var challengePool = []ChallengeTemplate{
	{Title: "Light Saver", Description: "Turn off lights when you leave a room", Emoji: "💡", Points: 10},
	{Title: "Water Wise", Description: "Take a shorter shower today", Emoji: "🚿", Points: 15},
	{Title: "Reuse Master", Description: "Reuse a water bottle instead of plastic", Emoji: "🍶", Points: 20},
	{Title: "Recycle Star", Description: "Sort your trash into recyclables", Emoji: "♻️", Points: 15},
	{Title: "Plant Friend", Description: "Water a plant or spend time in nature", Emoji: "🌿", Points: 10},
	{Title: "Bag Hero", Description: "Use a reusable bag when shopping", Emoji: "🛍️", Points: 20},
	{Title: "Unplug It", Description: "Unplug devices you're not using", Emoji: "🔌", Points: 10},
	{Title: "Walk the Walk", Description: "Walk or bike instead of driving", Emoji: "🚶", Points: 25},
	{Title: "Zero Waste", Description: "Try to produce no trash today", Emoji: "🗑️", Points: 30},
	{Title: "Spread the Word", Description: "Tell a friend about saving the planet", Emoji: "📢", Points: 15},
}

// ChallengePool возвращает пул шаблонов заданий.
func ChallengePool() []ChallengeTemplate {
	return append([]ChallengeTemplate(nil), challengePool...)
}

// ChallengeIndex возвращает индекс шаблона для даты: сумма числовых
// компонент "YYYY-MM-DD" по модулю размера пула.
func ChallengeIndex(date string) (int, error) {
	if !timeutil.IsValidDate(date) {
		return 0, shared.ErrInvalidChallengeID
	}
	sum := 0
	for _, part := range strings.Split(date, "-") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, shared.ErrInvalidChallengeID
		}
		sum += n
	}
	return sum % len(challengePool), nil
}

// ChallengeForDate возвращает задание дня. Для одной даты результат всегда один и тот же.
func ChallengeForDate(date string) (DailyChallenge, error) {
	i, err := ChallengeIndex(date)
	if err != nil {
		return DailyChallenge{}, err
	}
	t := challengePool[i]
	return DailyChallenge{
		ID:          ChallengeID(date),
		Title:       t.Title,
		Description: t.Description,
		Emoji:       t.Emoji,
		Points:      t.Points,
		Date:        date,
	}, nil
}

// ChallengeID строит ID задания для даты.
func ChallengeID(date string) string {
	return ChallengeIDPrefix + date
}

// ParseChallengeID проверяет формат "challenge-YYYY-MM-DD" и возвращает дату.
func ParseChallengeID(id string) (string, error) {
	date, ok := strings.CutPrefix(id, ChallengeIDPrefix)
	if !ok || !timeutil.IsValidDate(date) {
		return "", shared.ErrInvalidChallengeID
	}
	return date, nil
}

package curriculum

import (
	"math"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GAMES
// ══════════════════════════════════════════════════════════════════════════════

// GameID идентифицирует мини-игру.
type GameID string

const (
	// GameRecyclingSort - сортировка мусора по контейнерам.
	GameRecyclingSort GameID = "recycling-sort"
	// GameQuizRace - викторина на время.
	GameQuizRace GameID = "quiz-race"
)

// IsValid проверяет, что игра существует.
func (g GameID) IsValid() bool {
	return g == GameRecyclingSort || g == GameQuizRace
}

// ParseGameID возвращает GameID или ErrUnknownGame.
func ParseGameID(s string) (GameID, error) {
	g := GameID(s)
	if !g.IsValid() {
		return "", shared.ErrUnknownGame
	}
	return g, nil
}

// Очки мини-игр.
const (
	// SortPointsPerItem - очки за каждый правильно отсортированный предмет.
	SortPointsPerItem = 10

	// RaceBasePoints - очки за верный ответ в викторине на время.
	RaceBasePoints = 10
	// RaceTimeBonusPerSecond - бонус за каждую оставшуюся секунду.
	RaceTimeBonusPerSecond = 2
	// RaceStreakBonus - бонус, если перед ответом было минимум RaceStreakThreshold верных подряд.
	RaceStreakBonus     = 5
	RaceStreakThreshold = 2
	// RaceSecondsPerQuestion - таймер на один вопрос.
	RaceSecondsPerQuestion = 10
)

// ─────────────────────────────────────────────────────────────────────────────
// Recycling sort content
// ─────────────────────────────────────────────────────────────────────────────

// Bin - контейнер для сортировки.
type Bin string

const (
	BinPaper   Bin = "paper"
	BinPlastic Bin = "plastic"
	BinMetal   Bin = "metal"
	BinOrganic Bin = "organic"
)

// BinInfo - описание контейнера для интерфейса.
type BinInfo struct {
	ID    Bin
	Name  string
	Emoji string
}

// RecycleItem - предмет, который нужно положить в правильный контейнер.
type RecycleItem struct {
	ID    string
	Name  string
	Emoji string
	Bin   Bin
}

var bins = []BinInfo{
	{ID: BinPaper, Name: "Paper", Emoji: "📄"},
	{ID: BinPlastic, Name: "Plastic", Emoji: "🧴"},
	{ID: BinMetal, Name: "Metal", Emoji: "🥫"},
	{ID: BinOrganic, Name: "Organic", Emoji: "🌿"},
}

var recycleItems = []RecycleItem{
	{ID: "1", Name: "Newspaper", Emoji: "📰", Bin: BinPaper},
	{ID: "2", Name: "Cardboard Box", Emoji: "📦", Bin: BinPaper},
	{ID: "3", Name: "Water Bottle", Emoji: "🍶", Bin: BinPlastic},
	{ID: "4", Name: "Milk Jug", Emoji: "🥛", Bin: BinPlastic},
	{ID: "5", Name: "Soda Can", Emoji: "🥫", Bin: BinMetal},
	{ID: "6", Name: "Food Can", Emoji: "🥫", Bin: BinMetal},
	{ID: "7", Name: "Apple Core", Emoji: "🍎", Bin: BinOrganic},
	{ID: "8", Name: "Banana Peel", Emoji: "🍌", Bin: BinOrganic},
	{ID: "9", Name: "Magazine", Emoji: "📖", Bin: BinPaper},
	{ID: "10", Name: "Plastic Bag", Emoji: "🛍️", Bin: BinPlastic},
	{ID: "11", Name: "Aluminum Foil", Emoji: "🔲", Bin: BinMetal},
	{ID: "12", Name: "Orange Peel", Emoji: "🍊", Bin: BinOrganic},
}

// Bins возвращает контейнеры в порядке показа.
func Bins() []BinInfo {
	return append([]BinInfo(nil), bins...)
}

// RecycleItems возвращает предметы игры сортировки.
func RecycleItems() []RecycleItem {
	return append([]RecycleItem(nil), recycleItems...)
}

func findRecycleItem(id string) (RecycleItem, bool) {
	for _, it := range recycleItems {
		if it.ID == id {
			return it, true
		}
	}
	return RecycleItem{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Quiz race content
// ─────────────────────────────────────────────────────────────────────────────

// RaceQuestion - вопрос викторины на время.
type RaceQuestion struct {
	Text         string
	Options      []string
	CorrectIndex int
}

var raceQuestions = []RaceQuestion{
	{Text: "What color is the recycling symbol?", Options: []string{"Red", "Green", "Blue", "Yellow"}, CorrectIndex: 1},
	{Text: "What do plants need to grow?", Options: []string{"Sunlight and water", "Candy", "Ice cream", "Television"}, CorrectIndex: 0},
	{Text: "Which animal is endangered?", Options: []string{"Dog", "Cat", "Polar Bear", "Chicken"}, CorrectIndex: 2},
	{Text: "What do trees produce?", Options: []string{"Noise", "Oxygen", "Plastic", "Metal"}, CorrectIndex: 1},
	{Text: "Which is renewable energy?", Options: []string{"Coal", "Oil", "Solar", "Gas"}, CorrectIndex: 2},
	{Text: "What happens when ice melts?", Options: []string{"It becomes fire", "It becomes water", "It disappears", "It becomes rock"}, CorrectIndex: 1},
	{Text: "Which uses less water?", Options: []string{"Bath", "Short shower", "Swimming pool", "Sprinkler"}, CorrectIndex: 1},
	{Text: "What can you do with old clothes?", Options: []string{"Throw away", "Donate or reuse", "Burn them", "Hide them"}, CorrectIndex: 1},
	{Text: "Which vehicle is eco-friendly?", Options: []string{"Big truck", "Airplane", "Bicycle", "Race car"}, CorrectIndex: 2},
	{Text: "What helps reduce pollution?", Options: []string{"More cars", "Planting trees", "More factories", "Burning trash"}, CorrectIndex: 1},
	{Text: "Where does rain come from?", Options: []string{"Space", "Clouds", "Underground", "Mountains"}, CorrectIndex: 1},
	{Text: "Which item is compostable?", Options: []string{"Plastic bottle", "Metal can", "Banana peel", "Glass jar"}, CorrectIndex: 2},
}

// RaceQuestions возвращает вопросы викторины на время.
func RaceQuestions() []RaceQuestion {
	return append([]RaceQuestion(nil), raceQuestions...)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUND SCORING
// ══════════════════════════════════════════════════════════════════════════════

// RoundAnswer - один ход в раунде мини-игры.
// Для сортировки используются Item и Bin, для викторины - Question,
// Choice и SecondsLeft.
type RoundAnswer struct {
	Item        string
	Bin         Bin
	Question    int
	Choice      int
	SecondsLeft float64
}

// RoundScore - итог раунда, посчитанный на сервере.
type RoundScore struct {
	Game       GameID
	Correct    int
	Attempts   int
	Points     int
	BestStreak int
}

// ScoreRound считает очки раунда мини-игры.
func ScoreRound(game GameID, answers []RoundAnswer) (RoundScore, error) {
	switch game {
	case GameRecyclingSort:
		return scoreSortRound(answers)
	case GameQuizRace:
		return scoreRaceRound(answers)
	default:
		return RoundScore{}, shared.ErrUnknownGame
	}
}

// Каждый предмет засчитывается один раз, повторные ходы игнорируются.
func scoreSortRound(answers []RoundAnswer) (RoundScore, error) {
	score := RoundScore{Game: GameRecyclingSort}
	seen := make(map[string]bool, len(answers))
	streak := 0

	for _, a := range answers {
		item, ok := findRecycleItem(a.Item)
		if !ok {
			return RoundScore{}, shared.ErrInvalidAnswer
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		score.Attempts++

		if a.Bin == item.Bin {
			score.Correct++
			score.Points += SortPointsPerItem
			streak++
			if streak > score.BestStreak {
				score.BestStreak = streak
			}
		} else {
			streak = 0
		}
	}

	return score, nil
}

func scoreRaceRound(answers []RoundAnswer) (RoundScore, error) {
	score := RoundScore{Game: GameQuizRace}
	seen := make(map[int]bool, len(answers))
	streak := 0

	for _, a := range answers {
		if a.Question < 0 || a.Question >= len(raceQuestions) {
			return RoundScore{}, shared.ErrInvalidAnswer
		}
		q := raceQuestions[a.Question]
		if a.Choice < Unanswered || a.Choice >= len(q.Options) {
			return RoundScore{}, shared.ErrInvalidAnswer
		}
		if seen[a.Question] {
			continue
		}
		seen[a.Question] = true
		score.Attempts++

		if a.Choice != q.CorrectIndex {
			streak = 0
			continue
		}

		score.Correct++
		score.Points += RacePoints(a.SecondsLeft, streak)
		streak++
		if streak > score.BestStreak {
			score.BestStreak = streak
		}
	}

	return score, nil
}

// RacePoints - очки за один верный ответ в викторине на время.
// streakBefore - сколько верных ответов подряд было до этого.
func RacePoints(secondsLeft float64, streakBefore int) int {
	if secondsLeft < 0 || math.IsNaN(secondsLeft) {
		secondsLeft = 0
	}
	if secondsLeft > RaceSecondsPerQuestion {
		secondsLeft = RaceSecondsPerQuestion
	}

	points := RaceBasePoints + int(math.Floor(secondsLeft*RaceTimeBonusPerSecond))
	if streakBefore >= RaceStreakThreshold {
		points += RaceStreakBonus
	}
	return points
}

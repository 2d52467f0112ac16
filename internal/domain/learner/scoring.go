package learner

import (
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ SCORING
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PassingPercentage - порог прохождения модуля.
	PassingPercentage = 70.0

	// PerfectBonus - бонус за 100% в викторине.
	PerfectBonus = 50
)

// QuizOutcome - очки и флаги, посчитанные по результату викторины.
type QuizOutcome struct {
	Percentage   float64
	BasePoints   int
	Bonus        int
	PointsEarned int
	Passed       bool
	Perfect      bool
}

// ScoreQuiz считает очки за score верных ответов из total.
// basePoints = round(percentage), +50 за идеальный результат.
func ScoreQuiz(score, total int) (QuizOutcome, error) {
	if total <= 0 {
		return QuizOutcome{}, shared.ErrInvalidTotal
	}
	if score < 0 || score > total {
		return QuizOutcome{}, shared.ErrInvalidScore
	}

	pct := shared.Percentage(score, total)
	o := QuizOutcome{
		Percentage: pct,
		BasePoints: shared.RoundPercentage(pct),
		Passed:     pct >= PassingPercentage,
		Perfect:    score == total,
	}
	if o.Perfect {
		o.Bonus = PerfectBonus
	}
	o.PointsEarned = o.BasePoints + o.Bonus
	return o, nil
}

// ValidatePoints проверяет очки, пришедшие от задания или игры.
func ValidatePoints(points int) error {
	if _, err := shared.NewPoints(points); err != nil {
		return err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// IMPACT
// Эко-счётчики чисто презентационные и выводятся из начисленных очков.
// ══════════════════════════════════════════════════════════════════════════════

// Impact - накопленные "эко-счётчики" ученика.
type Impact struct {
	TreesPlanted   int
	PlasticReduced int
	EnergySaved    int
}

// Add складывает счётчики.
func (i Impact) Add(d Impact) Impact {
	return Impact{
		TreesPlanted:   i.TreesPlanted + d.TreesPlanted,
		PlasticReduced: i.PlasticReduced + d.PlasticReduced,
		EnergySaved:    i.EnergySaved + d.EnergySaved,
	}
}

func (i *Impact) clampNegative() bool {
	changed := false
	for _, v := range []*int{&i.TreesPlanted, &i.PlasticReduced, &i.EnergySaved} {
		if *v < 0 {
			*v = 0
			changed = true
		}
	}
	return changed
}

// QuizImpact: деревья = очки/20, пластик = очки/15, энергия = очки.
func QuizImpact(points int) Impact {
	return Impact{TreesPlanted: points / 20, PlasticReduced: points / 15, EnergySaved: points}
}

// ChallengeImpact: одно дерево, два пластика, энергия = очки.
func ChallengeImpact(points int) Impact {
	return Impact{TreesPlanted: 1, PlasticReduced: 2, EnergySaved: points}
}

// GameImpact: деревья = очки/30, пластик = очки/10, энергия = очки.
func GameImpact(points int) Impact {
	return Impact{TreesPlanted: points / 30, PlasticReduced: points / 10, EnergySaved: points}
}

package curriculum

import (
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
)

// Unanswered - значение ответа для вопроса, оставленного без ответа.
const Unanswered = -1

// AnswerFeedback - разбор одного ответа после проверки.
type AnswerFeedback struct {
	QuestionID   string `json:"questionId"`
	Chosen       int    `json:"chosen"`
	CorrectIndex int    `json:"correctIndex"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation"`
}

// QuizGrade - результат проверки викторины модуля.
type QuizGrade struct {
	ModuleID string
	Correct  int
	Total    int
	Feedback []AnswerFeedback
}

// Perfect возвращает true, если все ответы верные.
func (g QuizGrade) Perfect() bool {
	return g.Total > 0 && g.Correct == g.Total
}

// GradeQuiz проверяет ответы ученика на викторину модуля.
//
// answers[i] - индекс выбранного варианта для i-го вопроса. Недостающие
// ответы и Unanswered считаются неверными. Ответов больше, чем вопросов,
// или индекс вне списка вариантов - ошибка валидации.
func GradeQuiz(m Module, answers []int) (QuizGrade, error) {
	if len(answers) > len(m.Quiz) {
		return QuizGrade{}, shared.ErrTooManyAnswers
	}

	grade := QuizGrade{
		ModuleID: m.ID,
		Total:    len(m.Quiz),
		Feedback: make([]AnswerFeedback, len(m.Quiz)),
	}

	for i, q := range m.Quiz {
		chosen := Unanswered
		if i < len(answers) {
			chosen = answers[i]
		}
		if chosen < Unanswered || chosen >= len(q.Options) {
			return QuizGrade{}, shared.ErrInvalidAnswer
		}

		correct := chosen == q.CorrectIndex
		if correct {
			grade.Correct++
		}
		grade.Feedback[i] = AnswerFeedback{
			QuestionID:   q.ID,
			Chosen:       chosen,
			CorrectIndex: q.CorrectIndex,
			Correct:      correct,
			Explanation:  q.Explanation,
		}
	}

	return grade, nil
}

package grading

import "github.com/mind-engage/mindengage-quiz/internal/quiz"

// Score is the aggregate outcome of a submission.
type Score struct {
	Score            int     `json:"score"`
	MaxPossibleScore int     `json:"maxPossibleScore"`
	Percentage       float64 `json:"percentage"`
	Passed           bool    `json:"passed"`
}

// Aggregate applies the weighted policy: each correct answer earns its
// question's weight (DefaultQuestionScore when unset) and the denominator is
// the weight of every question in the quiz, answered or not. A question
// answered more than once in evaluated counts once.
func Aggregate(q quiz.Quiz, evaluated []Evaluated) Score {
	byID := q.QuestionByID()

	var s Score
	for _, qq := range q.Questions {
		s.MaxPossibleScore += qq.Score()
	}
	credited := make(map[string]struct{}, len(evaluated))
	for _, e := range evaluated {
		if !e.IsCorrect {
			continue
		}
		qq, ok := byID[e.QuestionID]
		if !ok {
			continue
		}
		if _, done := credited[qq.ID]; done {
			continue
		}
		credited[qq.ID] = struct{}{}
		s.Score += qq.Score()
	}
	if s.MaxPossibleScore > 0 {
		s.Percentage = float64(s.Score) * 100 / float64(s.MaxPossibleScore)
	}
	s.Passed = s.Percentage >= q.MinScore
	return s
}

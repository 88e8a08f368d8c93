package grading

import (
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestAggregate(t *testing.T) {
	q := quiz.Quiz{
		MinScore: 50,
		Questions: []quiz.Question{
			{ID: "q1"}, // default weight
			{ID: "q2", QuestionScore: ip(3)},
			{ID: "q3", QuestionScore: ip(4)},
		},
	}

	cases := []struct {
		name      string
		evaluated []Evaluated
		want      Score
	}{
		{"all wrong", []Evaluated{{QuestionID: "q1"}, {QuestionID: "q2"}},
			Score{Score: 0, MaxPossibleScore: 10, Percentage: 0, Passed: false}},
		{"weights differ", []Evaluated{{QuestionID: "q3", IsCorrect: true}},
			Score{Score: 4, MaxPossibleScore: 10, Percentage: 40, Passed: false}},
		{"single default weight", []Evaluated{{QuestionID: "q1", IsCorrect: true}, {QuestionID: "q2", IsCorrect: false}, {QuestionID: "q3", IsCorrect: false}},
			Score{Score: 3, MaxPossibleScore: 10, Percentage: 30, Passed: false}},
		{"unknown question ignored", []Evaluated{{QuestionID: "nope", IsCorrect: true}, {QuestionID: "q1", IsCorrect: true}, {QuestionID: "q2", IsCorrect: true}},
			Score{Score: 6, MaxPossibleScore: 10, Percentage: 60, Passed: true}},
		{"duplicate credited once", []Evaluated{{QuestionID: "q3", IsCorrect: true}, {QuestionID: "q3", IsCorrect: true}},
			Score{Score: 4, MaxPossibleScore: 10, Percentage: 40, Passed: false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Aggregate(q, tc.evaluated); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestAggregate_ThresholdIsInclusive(t *testing.T) {
	q := quiz.Quiz{MinScore: 50, Questions: []quiz.Question{{ID: "a"}, {ID: "b"}}}
	got := Aggregate(q, []Evaluated{{QuestionID: "a", IsCorrect: false}, {QuestionID: "b", IsCorrect: true}})
	if got.Percentage != 50 || !got.Passed {
		t.Fatalf("got %+v, want 50%% passed", got)
	}
}

func TestAggregate_EmptyQuiz(t *testing.T) {
	got := Aggregate(quiz.Quiz{MinScore: 10}, nil)
	if got.MaxPossibleScore != 0 || got.Percentage != 0 || got.Passed {
		t.Fatalf("got %+v", got)
	}
}

package grading

import (
	"bytes"
	"encoding/json"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Evaluated is the outcome of checking one submitted answer.
type Evaluated struct {
	QuestionID string `json:"questionId"`
	Selected   string `json:"selected"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Strategy decides correctness for one question type. Implementations must
// treat any shape they do not understand as incorrect rather than failing.
type Strategy interface {
	Correct(q quiz.Question, answer json.RawMessage) bool
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(q quiz.Question, answer json.RawMessage) bool

func (f StrategyFunc) Correct(q quiz.Question, answer json.RawMessage) bool { return f(q, answer) }

// Evaluator routes by question type to the matching Strategy.
type Evaluator struct {
	strategies map[quiz.QuestionType]Strategy
}

type Option func(*Evaluator)

// WithStrategy installs or overrides the strategy for a question type.
func WithStrategy(t quiz.QuestionType, s Strategy) Option {
	return func(e *Evaluator) { e.strategies[t] = s }
}

// NewEvaluator installs built-in strategies.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		strategies: map[quiz.QuestionType]Strategy{
			quiz.TypeSCQ:            exactStrategy{},
			quiz.TypeTrueFalse:      exactStrategy{},
			quiz.TypeOneWord:        exactStrategy{},
			quiz.TypeMCQ:            setStrategy{},
			quiz.TypeFillUps:        positionalStrategy{},
			quiz.TypeSequence:       sequenceStrategy{},
			quiz.TypeCategorization: categorizationStrategy{},
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate never fails: unknown question types and malformed answers come
// back with IsCorrect=false.
func (e *Evaluator) Evaluate(q quiz.Question, answer json.RawMessage) Evaluated {
	res := Evaluated{QuestionID: q.ID, Selected: Serialize(answer)}
	s, ok := e.strategies[q.Type]
	if !ok {
		return res
	}
	res.IsCorrect = s.Correct(q, answer)
	return res
}

// Serialize renders a submitted value for storage: JSON strings are
// unquoted, everything else is kept as compact JSON text.
func Serialize(answer json.RawMessage) string {
	v := bytes.TrimSpace(answer)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return string(v)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

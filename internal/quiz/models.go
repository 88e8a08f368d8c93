package quiz

import "strings"

type QuestionType string

const (
	TypeSCQ            QuestionType = "SCQ"
	TypeTrueFalse      QuestionType = "TRUE_FALSE"
	TypeOneWord        QuestionType = "ONE_WORD"
	TypeMCQ            QuestionType = "MCQ"
	TypeFillUps        QuestionType = "FILL_UPS"
	TypeSequence       QuestionType = "SEQUENCE"
	TypeCategorization QuestionType = "CATEGORIZATION"
)

// DefaultQuestionScore applies when a question has no explicit weight.
const DefaultQuestionScore = 3

// Quiz is the authoritative definition, answer keys included. Never serialize
// it to an attempting client; use Sanitize.
type Quiz struct {
	ID           string     `json:"id" validate:"required"`
	ModuleID     string     `json:"moduleId"`
	Title        string     `json:"title"`
	Type         string     `json:"type"`
	MaxAttempts  *int       `json:"maxAttempts" validate:"omitempty,gt=0"` // nil = unlimited
	MaxScore     int        `json:"maxScore"`
	MinScore     float64    `json:"minScore" validate:"gte=0,lte=100"` // pass threshold, percent
	TimeEstimate int        `json:"timeEstimate"`
	Questions    []Question `json:"questions" validate:"dive"`
}

type Question struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quizId"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"questionType" validate:"oneof=SCQ TRUE_FALSE ONE_WORD MCQ FILL_UPS SEQUENCE CATEGORIZATION"`
	CorrectAnswer string       `json:"correctAnswer"`
	QuestionScore *int         `json:"questionScore" validate:"omitempty,gte=0"`
	Position      int          `json:"position"`
	Options       []Option     `json:"options"`
}

// Score is the question's weight, falling back to DefaultQuestionScore.
func (q Question) Score() int {
	if q.QuestionScore == nil {
		return DefaultQuestionScore
	}
	return *q.QuestionScore
}

// OptionByID finds an option of this question.
func (q Question) OptionByID(id string) (Option, bool) {
	id = strings.TrimSpace(id)
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

type Option struct {
	ID         string  `json:"id"`
	QuestionID string  `json:"questionId"`
	Text       string  `json:"text"`
	IsCorrect  *bool   `json:"isCorrect"`
	MatchWith  *string `json:"matchWith"`
	OrderIndex *int    `json:"orderIndex"`
	Category   *string `json:"category"`
	IsCategory bool    `json:"isCategory"` // bucket, not a draggable item
	Position   int     `json:"position"`
}

// QuestionByID indexes the quiz's questions.
func (q Quiz) QuestionByID() map[string]Question {
	out := make(map[string]Question, len(q.Questions))
	for _, qq := range q.Questions {
		out[qq.ID] = qq
	}
	return out
}

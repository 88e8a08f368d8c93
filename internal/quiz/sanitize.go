package quiz

import (
	"hash/fnv"
	"math/rand"
)

// Snapshot is what an attempting client sees. It has no field that can carry
// correctAnswer, isCorrect or matchWith.
type Snapshot struct {
	ID           string         `json:"id"`
	ModuleID     string         `json:"moduleId"`
	Title        string         `json:"title"`
	Type         string         `json:"type"`
	MaxAttempts  *int           `json:"maxAttempts"`
	MaxScore     int            `json:"maxScore"`
	MinScore     float64        `json:"minScore"`
	TimeEstimate int            `json:"timeEstimate"`
	Questions    []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"questionType"`
	Options []OptionView `json:"options"`
}

type OptionView struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	OrderIndex *int    `json:"orderIndex,omitempty"`
	IsCategory bool    `json:"isCategory"`
	Category   *string `json:"category,omitempty"`
}

// Sanitize strips answer keys from q. For SEQUENCE questions orderIndex is the
// key, so it is dropped and the options are shuffled deterministically from
// seed (the attempt id), which keeps a resumed attempt stable. For
// CATEGORIZATION only bucket options keep their category.
func Sanitize(q Quiz, seed string) Snapshot {
	s := Snapshot{
		ID:           q.ID,
		ModuleID:     q.ModuleID,
		Title:        q.Title,
		Type:         q.Type,
		MaxAttempts:  q.MaxAttempts,
		MaxScore:     q.MaxScore,
		MinScore:     q.MinScore,
		TimeEstimate: q.TimeEstimate,
		Questions:    make([]QuestionView, 0, len(q.Questions)),
	}
	for _, qq := range q.Questions {
		v := QuestionView{
			ID:      qq.ID,
			Text:    qq.Text,
			Type:    qq.Type,
			Options: make([]OptionView, 0, len(qq.Options)),
		}
		for _, o := range qq.Options {
			ov := OptionView{ID: o.ID, Text: o.Text, IsCategory: o.IsCategory}
			switch qq.Type {
			case TypeSequence:
			case TypeCategorization:
				if o.IsCategory {
					ov.Category = o.Category
				}
			default:
				ov.OrderIndex = o.OrderIndex
				ov.Category = o.Category
			}
			v.Options = append(v.Options, ov)
		}
		if qq.Type == TypeSequence {
			shuffle(v.Options, seed+"/"+qq.ID)
		}
		s.Questions = append(s.Questions, v)
	}
	return s
}

func shuffle(opts []OptionView, seed string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	r.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
}

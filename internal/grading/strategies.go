package grading

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// exactStrategy: SCQ, TRUE_FALSE, ONE_WORD. One value against one key.
type exactStrategy struct{}

func (exactStrategy) Correct(q quiz.Question, answer json.RawMessage) bool {
	s, ok := decodeScalar(answer)
	if !ok {
		return false
	}
	key := normalize(q.CorrectAnswer)
	return key != "" && normalize(s) == key
}

// setStrategy: MCQ. Same cardinality and every key token selected; order is
// irrelevant.
type setStrategy struct{}

func (setStrategy) Correct(q quiz.Question, answer json.RawMessage) bool {
	got, ok := decodeStrings(answer)
	if !ok {
		return false
	}
	want := splitKey(q.CorrectAnswer)
	if len(want) == 0 || len(got) != len(want) {
		return false
	}
	selected := make(map[string]struct{}, len(got))
	for _, s := range got {
		selected[s] = struct{}{}
	}
	for _, w := range want {
		if _, ok := selected[w]; !ok {
			return false
		}
	}
	return true
}

// positionalStrategy: FILL_UPS. Blank i must match key token i.
type positionalStrategy struct{}

func (positionalStrategy) Correct(q quiz.Question, answer json.RawMessage) bool {
	got, ok := decodeStrings(answer)
	if !ok {
		return false
	}
	want := splitKey(q.CorrectAnswer)
	if len(want) == 0 || len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

type sequencePlacement struct {
	OptionID quiz.FlexString `json:"optionId"`
	Order    json.Number     `json:"order"`
}

// sequenceStrategy: SEQUENCE. The key is the options' orderIndex; the
// submission is sorted by its own order field and compared id by id.
type sequenceStrategy struct{}

func (sequenceStrategy) Correct(q quiz.Question, answer json.RawMessage) bool {
	var placed []sequencePlacement
	if err := json.Unmarshal(answer, &placed); err != nil {
		return false
	}
	type ranked struct {
		id    string
		order float64
	}
	got := make([]ranked, 0, len(placed))
	for _, p := range placed {
		n, err := p.Order.Float64()
		if err != nil {
			return false
		}
		got = append(got, ranked{id: strings.TrimSpace(string(p.OptionID)), order: n})
	}
	sort.SliceStable(got, func(i, j int) bool { return got[i].order < got[j].order })

	want := make([]quiz.Option, 0, len(q.Options))
	for _, o := range q.Options {
		if o.OrderIndex != nil {
			want = append(want, o)
		}
	}
	sort.SliceStable(want, func(i, j int) bool { return *want[i].OrderIndex < *want[j].OrderIndex })

	if len(want) == 0 || len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].id != want[i].ID {
			return false
		}
	}
	return true
}

type categoryPlacement struct {
	OptionID quiz.FlexString `json:"optionId"`
	Category quiz.FlexString `json:"category"`
}

// categorizationStrategy: CATEGORIZATION. Every draggable (non-bucket) option
// must be placed exactly once, into its own category.
type categorizationStrategy struct{}

func (categorizationStrategy) Correct(q quiz.Question, answer json.RawMessage) bool {
	var placed []categoryPlacement
	if err := json.Unmarshal(answer, &placed); err != nil {
		return false
	}
	expected := make(map[string]string, len(q.Options))
	for _, o := range q.Options {
		if o.IsCategory {
			continue
		}
		cat := ""
		if o.Category != nil {
			cat = *o.Category
		}
		expected[o.ID] = normalize(cat)
	}
	if len(expected) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(placed))
	for _, p := range placed {
		id := strings.TrimSpace(string(p.OptionID))
		want, ok := expected[id]
		if !ok {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
		if normalize(string(p.Category)) != want {
			return false
		}
	}
	return len(seen) == len(expected)
}

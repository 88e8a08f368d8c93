package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString accepts a JSON string, number or boolean and keeps its literal
// text. Clients are not consistent about quoting ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("quiz: expected scalar, got %q", b[:1])
	default:
		*f = FlexString(b)
		return nil
	}
}

func (f FlexString) String() string { return string(f) }

// SubmittedAnswer is one entry of a submission body. Either Answer or
// SelectedOptionID carries the value.
type SubmittedAnswer struct {
	QuestionID       FlexString      `json:"questionId"`
	Answer           json.RawMessage `json:"answer,omitempty"`
	SelectedOptionID FlexString      `json:"selectedOptionId,omitempty"`
}

// HasAnswer reports whether the explicit answer field was sent.
func (a SubmittedAnswer) HasAnswer() bool {
	v := bytes.TrimSpace(a.Answer)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

// ParseAnswers validates the request-level shape of a submission: it must be
// a non-empty JSON list. Individual entries that do not decode are kept as
// anonymous answers carrying the raw element so they can be scored as
// incorrect instead of failing the whole submission.
func ParseAnswers(raw json.RawMessage) ([]SubmittedAnswer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNoAnswers
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, ErrNoAnswers
	}
	if len(elems) == 0 {
		return nil, ErrNoAnswers
	}
	out := make([]SubmittedAnswer, 0, len(elems))
	for _, el := range elems {
		var a SubmittedAnswer
		if err := json.Unmarshal(el, &a); err != nil {
			a = SubmittedAnswer{Answer: el}
		}
		a.QuestionID = FlexString(strings.TrimSpace(string(a.QuestionID)))
		out = append(out, a)
	}
	return out, nil
}

package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the struct tags on Quiz and its questions.
func (q Quiz) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("quiz %q: %w", q.ID, err)
	}
	return nil
}

// DecodeSeed reads one quiz definition or a JSON list of them and validates
// each one.
func DecodeSeed(r io.Reader) ([]Quiz, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	var out []Quiz
	if len(b) > 0 && b[0] == '[' {
		err = json.Unmarshal(b, &out)
	} else {
		var q Quiz
		err = json.Unmarshal(b, &q)
		out = []Quiz{q}
	}
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for _, q := range out {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Seed writes quizzes into the catalog, replacing existing definitions.
func Seed(ctx context.Context, c *SQLCatalog, quizzes []Quiz) error {
	for _, q := range quizzes {
		if _, err := c.Put(ctx, q); err != nil {
			return fmt.Errorf("seed quiz %q: %w", q.ID, err)
		}
	}
	return nil
}

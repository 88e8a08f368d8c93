package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Catalog is the read side of the authoring subsystem.
type Catalog interface {
	// GetQuizWithQuestions returns the full definition including answer keys,
	// or ErrQuizNotFound.
	GetQuizWithQuestions(ctx context.Context, quizID string) (Quiz, error)
}

type SQLCatalog struct {
	db *sql.DB
}

func NewSQLCatalog(db *sql.DB) *SQLCatalog {
	return &SQLCatalog{db: db}
}

func (c *SQLCatalog) GetQuizWithQuestions(ctx context.Context, quizID string) (Quiz, error) {
	var (
		q           Quiz
		maxAttempts sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, module_id, title, type, max_attempts, max_score, min_score, time_estimate
		   FROM quizzes WHERE id=$1`, quizID).
		Scan(&q.ID, &q.ModuleID, &q.Title, &q.Type, &maxAttempts, &q.MaxScore, &q.MinScore, &q.TimeEstimate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	q.MaxAttempts = intPtr(maxAttempts)

	questions, err := c.loadQuestions(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	options, err := c.loadOptions(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	for i := range questions {
		questions[i].Options = options[questions[i].ID]
	}
	q.Questions = questions
	return q, nil
}

// loadQuestions and loadOptions drain and close their rows before returning;
// the sqlite pool has a single connection.
func (c *SQLCatalog) loadQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, quiz_id, text, question_type, correct_answer, question_score, position
		   FROM questions WHERE quiz_id=$1
		  ORDER BY position, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	out := make([]Question, 0, 16)
	for rows.Next() {
		var (
			q     Question
			typ   string
			score sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &typ, &q.CorrectAnswer, &score, &q.Position); err != nil {
			return nil, err
		}
		q.Type = QuestionType(typ)
		q.QuestionScore = intPtr(score)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (c *SQLCatalog) loadOptions(ctx context.Context, quizID string) (map[string][]Option, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct, o.match_with, o.order_index, o.category, o.is_category, o.position
		   FROM question_options o
		   JOIN questions q ON q.id = o.question_id
		  WHERE q.quiz_id=$1
		  ORDER BY o.question_id, o.position, o.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer rows.Close()

	out := map[string][]Option{}
	for rows.Next() {
		var (
			o          Option
			isCorrect  sql.NullBool
			matchWith  sql.NullString
			orderIndex sql.NullInt64
			category   sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Text, &isCorrect, &matchWith, &orderIndex, &category, &o.IsCategory, &o.Position); err != nil {
			return nil, err
		}
		if isCorrect.Valid {
			b := isCorrect.Bool
			o.IsCorrect = &b
		}
		o.MatchWith = strPtr(matchWith)
		o.OrderIndex = intPtr(orderIndex)
		o.Category = strPtr(category)
		out[o.QuestionID] = append(out[o.QuestionID], o)
	}
	return out, rows.Err()
}

// Put replaces a quiz definition wholesale. Authoring proper lives elsewhere;
// this exists for seeding offline installs and tests.
func (c *SQLCatalog) Put(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quizzes (id, module_id, title, type, max_attempts, max_score, min_score, time_estimate)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   module_id=EXCLUDED.module_id, title=EXCLUDED.title, type=EXCLUDED.type,
		   max_attempts=EXCLUDED.max_attempts, max_score=EXCLUDED.max_score,
		   min_score=EXCLUDED.min_score, time_estimate=EXCLUDED.time_estimate`,
		q.ID, q.ModuleID, q.Title, q.Type, nullInt(q.MaxAttempts), q.MaxScore, q.MinScore, q.TimeEstimate); err != nil {
		return Quiz{}, fmt.Errorf("upsert quiz: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id=$1)`, q.ID); err != nil {
		return Quiz{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, q.ID); err != nil {
		return Quiz{}, err
	}

	for i := range q.Questions {
		qq := &q.Questions[i]
		if qq.ID == "" {
			qq.ID = uuid.NewString()
		}
		qq.QuizID = q.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, quiz_id, text, question_type, correct_answer, question_score, position)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			qq.ID, qq.QuizID, qq.Text, string(qq.Type), qq.CorrectAnswer, nullInt(qq.QuestionScore), qq.Position); err != nil {
			return Quiz{}, fmt.Errorf("insert question %s: %w", qq.ID, err)
		}
		for j := range qq.Options {
			o := &qq.Options[j]
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.QuestionID = qq.ID
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question_options (id, question_id, text, is_correct, match_with, order_index, category, is_category, position)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				o.ID, o.QuestionID, o.Text, nullBool(o.IsCorrect), nullStr(o.MatchWith), nullInt(o.OrderIndex),
				nullStr(o.Category), o.IsCategory, o.Position); err != nil {
				return Quiz{}, fmt.Errorf("insert option %s: %w", o.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

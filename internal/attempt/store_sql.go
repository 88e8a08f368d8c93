package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

const attemptColumns = `id, quiz_id, user_id, score, passed, status, attempt_date, submitted_at, remarks`

// responseBatch keeps multi-row inserts well under the postgres bind limit.
const responseBatch = 200

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
	log    *logger.Logger
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, events *syncx.EventRepo, log *logger.Logger) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo("")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SQLStore{db: db, events: events, log: log, now: time.Now}
}

func scanAttempt(row scanner) (Attempt, error) {
	var (
		a         Attempt
		status    string
		started   int64
		submitted sql.NullInt64
		remarks   sql.NullString
	)
	if err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Passed, &status, &started, &submitted, &remarks); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.AttemptDate = time.Unix(started, 0).UTC()
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0).UTC()
		a.SubmittedAt = &t
	}
	if remarks.Valid {
		r := remarks.String
		a.Remarks = &r
	}
	return a, nil
}

func findPending(ctx context.Context, q rowQuerier, userID, quizID string) (*Attempt, error) {
	a, err := scanAttempt(q.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		  WHERE user_id=$1 AND quiz_id=$2 AND status='PENDING'`, userID, quizID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func countCompleted(ctx context.Context, q rowQuerier, userID, quizID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE user_id=$1 AND quiz_id=$2 AND status='COMPLETED'`,
		userID, quizID).Scan(&n)
	return n, err
}

func (s *SQLStore) FindPending(ctx context.Context, userID, quizID string) (*Attempt, error) {
	a, err := findPending(ctx, s.db, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("find pending attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) CountCompleted(ctx context.Context, userID, quizID string) (int, error) {
	n, err := countCompleted(ctx, s.db, userID, quizID)
	if err != nil {
		return 0, fmt.Errorf("count completed attempts: %w", err)
	}
	return n, nil
}

// lockUserQuiz upserts the (user, quiz) row in attempt_locks. On postgres the
// upsert holds a row lock until the transaction ends, so every attempt
// transaction for the pair runs one at a time and later statements see the
// previous holder's commits. The sqlite pool has a single connection.
func (s *SQLStore) lockUserQuiz(ctx context.Context, tx *sql.Tx, userID, quizID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO attempt_locks (user_id, quiz_id, locked_at) VALUES ($1,$2,$3)
		 ON CONFLICT (user_id, quiz_id) DO UPDATE SET locked_at = excluded.locked_at`,
		userID, quizID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("lock attempts: %w", err)
	}
	return nil
}

// checkLimit returns ErrMaxAttemptsReached when the completed count has
// reached maxAttempts. Callers must hold the (user, quiz) lock.
func checkLimit(ctx context.Context, tx *sql.Tx, userID, quizID string, maxAttempts *int) error {
	if maxAttempts == nil {
		return nil
	}
	used, err := countCompleted(ctx, tx, userID, quizID)
	if err != nil {
		return fmt.Errorf("count completed attempts: %w", err)
	}
	if used >= *maxAttempts {
		return ErrMaxAttemptsReached
	}
	return nil
}

// Create relies on the partial unique index attempts_one_pending: a losing
// concurrent insert is a no-op and both callers read back the same row.
func (s *SQLStore) Create(ctx context.Context, userID, quizID string, maxAttempts *int) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	if err := s.lockUserQuiz(ctx, tx, userID, quizID); err != nil {
		return Attempt{}, err
	}
	if err := checkLimit(ctx, tx, userID, quizID, maxAttempts); err != nil {
		return Attempt{}, err
	}

	id := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, score, passed, status, attempt_date)
		 VALUES ($1,$2,$3,0,$4,'PENDING',$5)
		 ON CONFLICT DO NOTHING`,
		id, quizID, userID, false, s.now().Unix())
	if err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	inserted, _ := res.RowsAffected()
	if inserted == 1 {
		if err := s.events.Append(ctx, tx, syncx.EventAttemptStarted, id, map[string]any{
			"attemptId": id, "quizId": quizID, "userId": userID,
		}); err != nil {
			return Attempt{}, fmt.Errorf("append event: %w", err)
		}
	}

	a, err := findPending(ctx, tx, userID, quizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("read back attempt: %w", err)
	}
	if a == nil {
		// Only reachable when a writer bypasses attempt_locks.
		return Attempt{}, ErrAttemptConflict
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	if inserted == 1 {
		s.log.Debug("attempt created", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID)
	}
	return *a, nil
}

func (s *SQLStore) CompleteAndRecord(ctx context.Context, c Completion) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	if err := s.lockUserQuiz(ctx, tx, c.UserID, c.QuizID); err != nil {
		return Attempt{}, err
	}
	// Both the pending and the direct path produce a COMPLETED row.
	if err := checkLimit(ctx, tx, c.UserID, c.QuizID, c.MaxAttempts); err != nil {
		return Attempt{}, err
	}

	now := s.now().Unix()
	pending, err := findPending(ctx, tx, c.UserID, c.QuizID)
	if err != nil {
		return Attempt{}, fmt.Errorf("find pending attempt: %w", err)
	}

	var id string
	if pending != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE attempts SET status='COMPLETED', score=$1, passed=$2, submitted_at=$3
			  WHERE id=$4 AND status='PENDING'`,
			c.Score, c.Passed, now, pending.ID)
		if err != nil {
			return Attempt{}, fmt.Errorf("complete attempt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			id = pending.ID
		}
	}
	if id == "" {
		id = uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (id, quiz_id, user_id, score, passed, status, attempt_date, submitted_at, remarks)
			 VALUES ($1,$2,$3,$4,$5,'COMPLETED',$6,$7,$8)`,
			id, c.QuizID, c.UserID, c.Score, c.Passed, now, now, "submitted without a started attempt")
		if err != nil {
			return Attempt{}, fmt.Errorf("insert completed attempt: %w", err)
		}
	}

	if err := insertResponses(ctx, tx, id, c.Answers); err != nil {
		return Attempt{}, err
	}
	if err := s.events.Append(ctx, tx, syncx.EventAttemptSubmitted, id, map[string]any{
		"attemptId": id, "quizId": c.QuizID, "userId": c.UserID,
		"score": c.Score, "passed": c.Passed, "responses": len(c.Answers),
	}); err != nil {
		return Attempt{}, fmt.Errorf("append event: %w", err)
	}

	a, err := scanAttempt(tx.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id))
	if err != nil {
		return Attempt{}, fmt.Errorf("read back attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// insertResponses writes answers in multi-row batches. Entries with an empty
// question id are skipped.
func insertResponses(ctx context.Context, tx *sql.Tx, attemptID string, answers []grading.Evaluated) error {
	rows := make([]grading.Evaluated, 0, len(answers))
	for _, a := range answers {
		if a.QuestionID != "" {
			rows = append(rows, a)
		}
	}
	for start := 0; start < len(rows); start += responseBatch {
		end := min(start+responseBatch, len(rows))
		var (
			sb   strings.Builder
			args = make([]any, 0, (end-start)*4)
		)
		sb.WriteString(`INSERT INTO responses (attempt_id, question_id, selected, is_correct) VALUES `)
		for i, r := range rows[start:end] {
			if i > 0 {
				sb.WriteByte(',')
			}
			n := len(args)
			fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4)
			args = append(args, attemptID, r.QuestionID, r.Selected, r.IsCorrect)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert responses: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListResponses(ctx context.Context, attemptID string) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_id, question_id, selected, is_correct
		   FROM responses WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	out := make([]Response, 0, 16)
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.AttemptID, &r.QuestionID, &r.Selected, &r.IsCorrect); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.UserID != "" {
		add("user_id=$%d", opts.UserID)
	}
	if opts.QuizID != "" {
		add("quiz_id=$%d", opts.QuizID)
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, max(opts.Offset, 0))
	q += fmt.Sprintf(` ORDER BY attempt_date DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := make([]Attempt, 0, limit)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

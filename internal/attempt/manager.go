package attempt

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Manager runs the attempt lifecycle on top of a quiz catalog and an
// attempt store.
type Manager struct {
	catalog quiz.Catalog
	store   Store
	eval    *grading.Evaluator
	log     *logger.Logger
}

func NewManager(catalog quiz.Catalog, store Store, eval *grading.Evaluator, log *logger.Logger) *Manager {
	if eval == nil {
		eval = grading.NewEvaluator()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{catalog: catalog, store: store, eval: eval, log: log.With("component", "AttemptManager")}
}

type StartResult struct {
	Attempt           Attempt       `json:"attempt"`
	Quiz              quiz.Snapshot `json:"quiz"`
	Resumed           bool          `json:"resumed"`
	AttemptsUsed      int           `json:"attemptsUsed"`
	AttemptsRemaining *int          `json:"attemptsRemaining"` // nil when unlimited
}

type SubmitResult struct {
	AttemptID string `json:"attemptId"`
	grading.Score
	TotalQuestions int                 `json:"totalQuestions"`
	Answers        []grading.Evaluated `json:"answers"`
}

type Detail struct {
	Attempt
	Responses []Response `json:"responses"`
}

type History struct {
	QuizID            string    `json:"quizId"`
	Attempts          []Attempt `json:"attempts"`
	AttemptsUsed      int       `json:"attemptsUsed"`
	AttemptsRemaining *int      `json:"attemptsRemaining"`
}

func remaining(maxAttempts *int, used int) *int {
	if maxAttempts == nil {
		return nil
	}
	n := max(*maxAttempts-used, 0)
	return &n
}

// StartOrResume hands back the user's open attempt on the quiz, creating one
// if needed, together with an answer-free snapshot of the quiz.
func (m *Manager) StartOrResume(ctx context.Context, userID, quizID string) (StartResult, error) {
	var (
		q    quiz.Quiz
		used int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		q, err = m.catalog.GetQuizWithQuestions(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		used, err = m.store.CountCompleted(gctx, userID, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return StartResult{}, err
	}

	if q.MaxAttempts != nil && used >= *q.MaxAttempts {
		m.log.Info("attempt refused", "quiz_id", quizID, "user_id", userID, "used", used, "max", *q.MaxAttempts)
		return StartResult{}, ErrMaxAttemptsReached
	}

	a, err := m.store.FindPending(ctx, userID, quizID)
	if err != nil {
		return StartResult{}, err
	}
	resumed := a != nil
	if a == nil {
		created, err := m.store.Create(ctx, userID, quizID, q.MaxAttempts)
		if errors.Is(err, ErrMaxAttemptsReached) {
			m.log.Info("attempt refused", "quiz_id", quizID, "user_id", userID, "max", *q.MaxAttempts)
		}
		if err != nil {
			return StartResult{}, err
		}
		a = &created
		m.log.Info("attempt started", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID)
	}

	return StartResult{
		Attempt:           *a,
		Quiz:              quiz.Sanitize(q, a.ID),
		Resumed:           resumed,
		AttemptsUsed:      used,
		AttemptsRemaining: remaining(q.MaxAttempts, used),
	}, nil
}

// Submit grades answers against the quiz and completes the user's attempt.
// Answers for ids that are not part of the quiz are echoed back as incorrect
// and never earn points. When a question id repeats, only its first answer
// counts and is persisted.
func (m *Manager) Submit(ctx context.Context, userID, quizID string, answers []quiz.SubmittedAnswer) (SubmitResult, error) {
	if len(answers) == 0 {
		return SubmitResult{}, quiz.ErrNoAnswers
	}
	q, err := m.catalog.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(q.Questions) == 0 {
		return SubmitResult{}, quiz.ErrQuizNotFound
	}

	byID := q.QuestionByID()
	evaluated := make([]grading.Evaluated, 0, len(answers))
	persist := make([]grading.Evaluated, 0, len(answers))
	seen := make(map[string]struct{}, len(answers))
	for _, sa := range answers {
		id := string(sa.QuestionID)
		qq, known := byID[id]

		value := sa.Answer
		if !sa.HasAnswer() && sa.SelectedOptionID != "" {
			value = resolveSelected(qq, string(sa.SelectedOptionID))
		}

		var ev grading.Evaluated
		if known {
			ev = m.eval.Evaluate(qq, value)
		} else {
			ev = grading.Evaluated{QuestionID: id, Selected: grading.Serialize(value)}
		}
		if _, dup := seen[id]; dup {
			ev.IsCorrect = false
			evaluated = append(evaluated, ev)
			continue
		}
		evaluated = append(evaluated, ev)
		if id != "" {
			seen[id] = struct{}{}
			persist = append(persist, ev)
		}
	}

	score := grading.Aggregate(q, persist)
	a, err := m.store.CompleteAndRecord(ctx, Completion{
		UserID:      userID,
		QuizID:      quizID,
		Score:       score.Score,
		Passed:      score.Passed,
		MaxAttempts: q.MaxAttempts,
		Answers:     persist,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	m.log.Info("attempt submitted",
		"attempt_id", a.ID, "quiz_id", quizID, "user_id", userID,
		"score", score.Score, "max", score.MaxPossibleScore, "passed", score.Passed)

	return SubmitResult{
		AttemptID:      a.ID,
		Score:          score,
		TotalQuestions: len(q.Questions),
		Answers:        evaluated,
	}, nil
}

// resolveSelected turns a bare option id into the option's text, or keeps the
// id itself when the question has no such option.
func resolveSelected(q quiz.Question, optionID string) json.RawMessage {
	text := optionID
	if o, ok := q.OptionByID(optionID); ok {
		text = o.Text
	}
	b, _ := json.Marshal(text)
	return b
}

// Attempt returns one attempt with its responses. Unless viewAll is set the
// viewer must own the attempt; foreign attempts look like missing ones.
func (m *Manager) Attempt(ctx context.Context, viewerID, attemptID string, viewAll bool) (Detail, error) {
	a, err := m.store.Get(ctx, attemptID)
	if err != nil {
		return Detail{}, err
	}
	if !viewAll && a.UserID != viewerID {
		return Detail{}, ErrAttemptNotFound
	}
	responses, err := m.store.ListResponses(ctx, a.ID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Attempt: a, Responses: responses}, nil
}

func (m *Manager) History(ctx context.Context, userID, quizID string) (History, error) {
	var (
		q        quiz.Quiz
		attempts []Attempt
		used     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		q, err = m.catalog.GetQuizWithQuestions(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = m.store.List(gctx, ListOpts{UserID: userID, QuizID: quizID})
		return err
	})
	g.Go(func() error {
		var err error
		used, err = m.store.CountCompleted(gctx, userID, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return History{}, err
	}
	return History{
		QuizID:            q.ID,
		Attempts:          attempts,
		AttemptsUsed:      used,
		AttemptsRemaining: remaining(q.MaxAttempts, used),
	}, nil
}

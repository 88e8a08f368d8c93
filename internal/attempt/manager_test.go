package attempt_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/db/dbtest"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type fixture struct {
	mgr   *attempt.Manager
	store *attempt.SQLStore
	cat   quiz.Catalog
}

func newFixture(t *testing.T, quizzes ...quiz.Quiz) fixture {
	t.Helper()
	dbh := dbtest.Open(t)
	cat := quiz.NewSQLCatalog(dbh)
	for _, q := range quizzes {
		if _, err := cat.Put(context.Background(), q); err != nil {
			t.Fatalf("seed quiz %s: %v", q.ID, err)
		}
	}
	store := attempt.NewSQLStore(dbh, nil, nil)
	return fixture{mgr: attempt.NewManager(cat, store, grading.NewEvaluator(), nil), store: store, cat: cat}
}

func capitalsQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID: "capitals", Title: "Capitals", MaxAttempts: ptr(1), MinScore: 50,
		Questions: []quiz.Question{
			{ID: "q1", Text: "Capital of France?", Type: quiz.TypeSCQ, CorrectAnswer: "Paris", QuestionScore: ptr(3), Position: 0,
				Options: []quiz.Option{
					{ID: "o1", Text: "Paris", IsCorrect: ptr(true)},
					{ID: "o2", Text: "London", IsCorrect: ptr(false), Position: 1},
				}},
			{ID: "q2", Text: "The answer?", Type: quiz.TypeSCQ, CorrectAnswer: "42", QuestionScore: ptr(3), Position: 1},
		},
	}
}

func answers(t *testing.T, body string) []quiz.SubmittedAnswer {
	t.Helper()
	out, err := quiz.ParseAnswers(json.RawMessage(body))
	if err != nil {
		t.Fatalf("parse answers: %v", err)
	}
	return out
}

func TestManager_SubmitAllCorrectThenLimitReached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())

	start, err := f.mgr.StartOrResume(ctx, "u1", "capitals")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Resumed || start.Attempt.Status != attempt.StatusPending {
		t.Fatalf("unexpected start: %+v", start.Attempt)
	}
	if start.AttemptsRemaining == nil || *start.AttemptsRemaining != 1 {
		t.Fatalf("remaining = %v, want 1", start.AttemptsRemaining)
	}

	res, err := f.mgr.Submit(ctx, "u1", "capitals", answers(t,
		`[{"questionId":"q1","answer":"  paris "},{"questionId":"q2","answer":"42"}]`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := grading.Score{Score: 6, MaxPossibleScore: 6, Percentage: 100, Passed: true}
	if res.Score != want {
		t.Fatalf("score = %+v, want %+v", res.Score, want)
	}
	if res.AttemptID != start.Attempt.ID || res.TotalQuestions != 2 || len(res.Answers) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	a, err := f.store.Get(ctx, start.Attempt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Status != attempt.StatusCompleted || a.Score != 6 || !a.Passed {
		t.Fatalf("attempt not completed: %+v", a)
	}

	if _, err := f.mgr.StartOrResume(ctx, "u1", "capitals"); !errors.Is(err, attempt.ErrMaxAttemptsReached) {
		t.Fatalf("second start err = %v, want ErrMaxAttemptsReached", err)
	}
}

// lateCompletionStore records one direct completion right after the first
// CountCompleted read, so the caller acts on a count that is already stale.
type lateCompletionStore struct {
	*attempt.SQLStore
	once sync.Once
	err  error
}

func (s *lateCompletionStore) CountCompleted(ctx context.Context, userID, quizID string) (int, error) {
	n, err := s.SQLStore.CountCompleted(ctx, userID, quizID)
	s.once.Do(func() {
		_, s.err = s.SQLStore.CompleteAndRecord(ctx, attempt.Completion{
			UserID: userID, QuizID: quizID, MaxAttempts: ptr(1),
			Answers: []grading.Evaluated{{QuestionID: "q1", Selected: "Paris", IsCorrect: true}},
		})
	})
	return n, err
}

func TestManager_StaleCountCannotExceedLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())
	store := &lateCompletionStore{SQLStore: f.store}
	mgr := attempt.NewManager(f.cat, store, nil, nil)

	_, startErr := mgr.StartOrResume(ctx, "u1", "capitals")
	if store.err != nil {
		t.Fatalf("concurrent completion: %v", store.err)
	}
	if !errors.Is(startErr, attempt.ErrMaxAttemptsReached) {
		t.Fatalf("start err = %v, want ErrMaxAttemptsReached", startErr)
	}
	_, err := mgr.Submit(ctx, "u1", "capitals", answers(t,
		`[{"questionId":"q1","answer":"Paris"},{"questionId":"q2","answer":"42"}]`))
	if !errors.Is(err, attempt.ErrMaxAttemptsReached) {
		t.Fatalf("submit err = %v, want ErrMaxAttemptsReached", err)
	}

	if n, _ := f.store.CountCompleted(ctx, "u1", "capitals"); n != 1 {
		t.Fatalf("completed = %d, want 1", n)
	}
	if p, _ := f.store.FindPending(ctx, "u1", "capitals"); p != nil {
		t.Fatalf("pending attempt opened past the limit: %+v", p)
	}
}

func TestManager_ConcurrentStartSharesOneAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())

	const n = 8
	ids := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			res, err := f.mgr.StartOrResume(ctx, "u1", "capitals")
			ids[i] = res.Attempt.ID
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("got distinct attempt ids %v", ids)
		}
	}
	open, err := f.store.List(ctx, attempt.ListOpts{UserID: "u1", QuizID: "capitals", Status: attempt.StatusPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 1 || open[0].ID != ids[0] {
		t.Fatalf("pending attempts = %+v", open)
	}
}

func TestManager_SubmitAtThresholdPasses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())

	if _, err := f.mgr.StartOrResume(ctx, "u1", "capitals"); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := f.mgr.Submit(ctx, "u1", "capitals", answers(t,
		`[{"questionId":"q1","answer":"london"},{"questionId":"q2","answer":42}]`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score.Score != 3 || res.Percentage != 50 || !res.Passed {
		t.Fatalf("score = %+v, want 3 / 50%% / passed", res.Score)
	}
	if res.Answers[0].IsCorrect || !res.Answers[1].IsCorrect {
		t.Fatalf("answers = %+v", res.Answers)
	}
}

func TestManager_ResumeReturnsSameAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())

	first, err := f.mgr.StartOrResume(ctx, "u1", "capitals")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := f.mgr.StartOrResume(ctx, "u1", "capitals")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !second.Resumed || second.Attempt.ID != first.Attempt.ID {
		t.Fatalf("resume gave %+v, want attempt %s", second.Attempt, first.Attempt.ID)
	}
	if len(second.Quiz.Questions) != 2 {
		t.Fatalf("snapshot questions = %d", len(second.Quiz.Questions))
	}
}

func TestManager_SnapshotHidesAnswerKey(t *testing.T) {
	f := newFixture(t, capitalsQuiz())

	start, err := f.mgr.StartOrResume(context.Background(), "u1", "capitals")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	b, err := json.Marshal(start)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"correctAnswer", "isCorrect", "matchWith"} {
		if strings.Contains(string(b), key) {
			t.Fatalf("start payload leaks %q: %s", key, b)
		}
	}
}

func TestManager_CategorizationMissingItemIsIncorrect(t *testing.T) {
	ctx := context.Background()
	q := quiz.Quiz{
		ID: "sort", Title: "Sort", MinScore: 0,
		Questions: []quiz.Question{{
			ID: "c1", Text: "Sort the produce", Type: quiz.TypeCategorization,
			Options: []quiz.Option{
				{ID: "fruit", Text: "Fruit", IsCategory: true, Category: ptr("Fruit")},
				{ID: "veg", Text: "Veg", IsCategory: true, Category: ptr("Veg"), Position: 1},
				{ID: "A", Text: "Apple", Category: ptr("Fruit"), Position: 2},
				{ID: "B", Text: "Carrot", Category: ptr("Veg"), Position: 3},
			},
		}},
	}
	f := newFixture(t, q)

	res, err := f.mgr.Submit(ctx, "u1", "sort", answers(t,
		`[{"questionId":"c1","answer":[{"optionId":"A","category":"Fruit"}]}]`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Answers[0].IsCorrect || res.Score.Score != 0 {
		t.Fatalf("partial categorization credited: %+v", res)
	}
}

func TestManager_SubmitEdgeCases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz(), quiz.Quiz{ID: "empty", Title: "Empty"})

	if _, err := f.mgr.Submit(ctx, "u1", "capitals", nil); !errors.Is(err, quiz.ErrNoAnswers) {
		t.Fatalf("nil answers err = %v", err)
	}
	one := answers(t, `[{"questionId":"q1","answer":"Paris"}]`)
	if _, err := f.mgr.Submit(ctx, "u1", "nope", one); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("unknown quiz err = %v", err)
	}
	if _, err := f.mgr.Submit(ctx, "u1", "empty", one); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("empty quiz err = %v", err)
	}
	if _, err := f.mgr.StartOrResume(ctx, "u1", "nope"); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("start unknown quiz err = %v", err)
	}
}

func TestManager_SubmitUnknownAndDuplicateQuestions(t *testing.T) {
	ctx := context.Background()
	q := capitalsQuiz()
	q.MaxAttempts = nil
	f := newFixture(t, q)

	res, err := f.mgr.Submit(ctx, "u1", "capitals", answers(t, `[
		{"questionId":"q1","selectedOptionId":"o1"},
		{"questionId":"q1","answer":"Paris"},
		{"questionId":"ghost","answer":"boo"}
	]`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Answers) != 3 {
		t.Fatalf("answers = %+v", res.Answers)
	}
	if !res.Answers[0].IsCorrect || res.Answers[0].Selected != "Paris" {
		t.Fatalf("selected option not resolved: %+v", res.Answers[0])
	}
	if res.Answers[1].IsCorrect {
		t.Fatalf("duplicate answer credited: %+v", res.Answers[1])
	}
	if res.Answers[2].IsCorrect || res.Answers[2].QuestionID != "ghost" || res.Answers[2].Selected != "boo" {
		t.Fatalf("unknown question = %+v", res.Answers[2])
	}
	if res.Score.Score != 3 || res.MaxPossibleScore != 6 {
		t.Fatalf("score = %+v", res.Score)
	}

	detail, err := f.mgr.Attempt(ctx, "u1", res.AttemptID, false)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if len(detail.Responses) != 2 {
		t.Fatalf("persisted responses = %+v", detail.Responses)
	}
}

func TestManager_AttemptVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, capitalsQuiz())

	start, err := f.mgr.StartOrResume(ctx, "owner", "capitals")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.mgr.Attempt(ctx, "someone-else", start.Attempt.ID, false); !errors.Is(err, attempt.ErrAttemptNotFound) {
		t.Fatalf("foreign view err = %v", err)
	}
	d, err := f.mgr.Attempt(ctx, "instructor", start.Attempt.ID, true)
	if err != nil || d.ID != start.Attempt.ID {
		t.Fatalf("view all = %+v, %v", d, err)
	}
}

func TestManager_History(t *testing.T) {
	ctx := context.Background()
	q := capitalsQuiz()
	q.MaxAttempts = ptr(3)
	f := newFixture(t, q)

	body := `[{"questionId":"q1","answer":"Paris"}]`
	for j := 0; j < 2; j++ {
		if _, err := f.mgr.Submit(ctx, "u1", "capitals", answers(t, body)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	h, err := f.mgr.History(ctx, "u1", "capitals")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.QuizID != "capitals" || len(h.Attempts) != 2 || h.AttemptsUsed != 2 {
		t.Fatalf("history = %+v", h)
	}
	if h.AttemptsRemaining == nil || *h.AttemptsRemaining != 1 {
		t.Fatalf("remaining = %v, want 1", h.AttemptsRemaining)
	}
}

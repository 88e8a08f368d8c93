package attempt

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type ListOpts struct {
	QuizID string
	UserID string
	Status Status // optional
	Limit  int
	Offset int
}

// Completion is everything CompleteAndRecord needs to close an attempt.
type Completion struct {
	UserID      string
	QuizID      string
	Score       int
	Passed      bool
	MaxAttempts *int // nil = unlimited
	// Answers must carry distinct, non-empty question ids.
	Answers []grading.Evaluated
}

// Store is the only writer of attempt and response rows.
type Store interface {
	// FindPending returns nil when the user has no open attempt on the quiz.
	FindPending(ctx context.Context, userID, quizID string) (*Attempt, error)
	// Create is an atomic find-or-create: it returns the single pending
	// attempt for (userID, quizID), inserting it if none exists. It fails with
	// ErrMaxAttemptsReached once the completed count has reached maxAttempts.
	Create(ctx context.Context, userID, quizID string, maxAttempts *int) (Attempt, error)
	CountCompleted(ctx context.Context, userID, quizID string) (int, error)
	// CompleteAndRecord moves the pending attempt to COMPLETED and stores its
	// responses in one transaction. Without a pending attempt it records a
	// new completed one. Either way it refuses with ErrMaxAttemptsReached when
	// the result would exceed c.MaxAttempts.
	CompleteAndRecord(ctx context.Context, c Completion) (Attempt, error)

	Get(ctx context.Context, id string) (Attempt, error)
	ListResponses(ctx context.Context, attemptID string) ([]Response, error)
	List(ctx context.Context, opts ListOpts) ([]Attempt, error)
}

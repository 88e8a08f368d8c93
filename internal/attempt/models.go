package attempt

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

var (
	ErrMaxAttemptsReached = errors.New("maximum attempts reached")
	ErrAttemptNotFound    = errors.New("attempt not found")
	// ErrAttemptConflict means the attempt changed underneath the request;
	// retrying is safe.
	ErrAttemptConflict = errors.New("attempt changed concurrently")
)

type Attempt struct {
	ID          string     `json:"id"`
	QuizID      string     `json:"quizId"`
	UserID      string     `json:"userId"`
	Score       int        `json:"score"`
	Passed      bool       `json:"passed"`
	Status      Status     `json:"status"`
	AttemptDate time.Time  `json:"attemptDate"`
	SubmittedAt *time.Time `json:"submittedAt"`
	Remarks     *string    `json:"remarks"`
}

// Response is the persisted verdict for one question of a completed attempt.
type Response struct {
	AttemptID  string `json:"attemptId"`
	QuestionID string `json:"questionId"`
	Selected   string `json:"selected"`
	IsCorrect  bool   `json:"isCorrect"`
}

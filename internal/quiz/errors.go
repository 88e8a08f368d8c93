package quiz

import "errors"

var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrNoAnswers    = errors.New("no answers submitted")
)

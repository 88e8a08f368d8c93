package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// maxSubmitBody caps submission payloads.
const maxSubmitBody = 1 << 20

// AttemptService is implemented by *attempt.Manager.
type AttemptService interface {
	StartOrResume(ctx context.Context, userID, quizID string) (attempt.StartResult, error)
	Submit(ctx context.Context, userID, quizID string, answers []quiz.SubmittedAnswer) (attempt.SubmitResult, error)
	Attempt(ctx context.Context, viewerID, attemptID string, viewAll bool) (attempt.Detail, error)
	History(ctx context.Context, userID, quizID string) (attempt.History, error)
}

type submitRequest struct {
	Answers json.RawMessage `json:"answers" validate:"required"`
}

var validate = validator.New()

// POST /quizzes/{quizID}/attempts
// The quiz snapshot in the response carries no answer key: correctAnswer is
// dropped, SEQUENCE options come without their orderIndex, and in
// CATEGORIZATION only the bucket options keep their category while the
// draggable items have it withheld.
func StartAttemptHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		sub := rbac.SubjectFromContext(r.Context())
		res, err := svc.StartOrResume(r.Context(), sub, quizID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /quizzes/{quizID}/submit  {"answers":[{"questionId":"...","answer":...}]}
func SubmitHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		var req submitRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody)).Decode(&req); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "BadRequest", "bad json")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, log, quiz.ErrNoAnswers)
			return
		}
		answers, err := quiz.ParseAnswers(req.Answers)
		if err != nil {
			writeError(w, log, err)
			return
		}
		res, err := svc.Submit(r.Context(), rbac.SubjectFromContext(r.Context()), quizID, answers)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /quizzes/{quizID}/attempts[?user_id=...]
// Callers without attempt:view-all only ever see their own history.
func HistoryHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := strings.TrimSpace(chi.URLParam(r, "quizID"))
		userID := rbac.SubjectFromContext(r.Context())
		if other := strings.TrimSpace(r.URL.Query().Get("user_id")); other != "" &&
			rbac.Allowed(rbac.RoleFromContext(r.Context()), rbac.PermAttemptViewAll) {
			userID = other
		}
		h, err := svc.History(r.Context(), userID, quizID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc AttemptService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		viewAll := rbac.Allowed(rbac.RoleFromContext(ctx), rbac.PermAttemptViewAll)
		d, err := svc.Attempt(ctx, rbac.SubjectFromContext(ctx), id, viewAll)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// MountAttempts registers the attempt routes on an authenticated router.
func MountAttempts(r chi.Router, svc AttemptService, log *logger.Logger) {
	r.With(rbac.Require(rbac.PermQuizAttempt)).
		Post("/quizzes/{quizID}/attempts", StartAttemptHandler(svc, log))
	r.With(rbac.Require(rbac.PermQuizSubmit)).
		Post("/quizzes/{quizID}/submit", SubmitHandler(svc, log))
	r.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
		Get("/quizzes/{quizID}/attempts", HistoryHandler(svc, log))
	r.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
		Get("/attempts/{attemptID}", GetAttemptHandler(svc, log))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound):
		writeErrorCode(w, http.StatusNotFound, "QuizNotFound", err.Error())
	case errors.Is(err, attempt.ErrAttemptNotFound):
		writeErrorCode(w, http.StatusNotFound, "AttemptNotFound", err.Error())
	case errors.Is(err, attempt.ErrMaxAttemptsReached):
		writeErrorCode(w, http.StatusForbidden, "MaxAttemptsReached", err.Error())
	case errors.Is(err, attempt.ErrAttemptConflict):
		writeErrorCode(w, http.StatusConflict, "AttemptConflict", err.Error())
	case errors.Is(err, quiz.ErrNoAnswers):
		writeErrorCode(w, http.StatusBadRequest, "NoAnswers", err.Error())
	default:
		log.Error("request failed", "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "Internal", "internal error")
	}
}

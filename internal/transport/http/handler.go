package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"rextro-quiz-service/internal/app"
	"rextro-quiz-service/internal/domain"
)

// StudentHeader carries the authenticated student id, set by the gateway in
// front of this service.
const StudentHeader = "X-Student-ID"

const maxBodyBytes = 16 << 10

// Handler exposes the attempt and leaderboard use cases over JSON/HTTP.
type Handler struct {
	attempts *app.AttemptService
	board    *app.LeaderboardService
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(attempts *app.AttemptService, board *app.LeaderboardService, log zerolog.Logger) *Handler {
	return &Handler{
		attempts: attempts,
		board:    board,
		validate: newValidator(),
		log:      log.With().Str("component", "http").Logger(),
	}
}

// Middleware wraps a handler registered under route.
type Middleware func(route string, next http.Handler) http.Handler

// Register mounts every route on mux, wrapping each with mw when given.
func (h *Handler) Register(mux *http.ServeMux, mw Middleware) {
	routes := map[string]http.HandlerFunc{
		"POST /api/quizzes/{quizID}/questions/{questionID}/open":   h.openAttempt,
		"POST /api/quizzes/{quizID}/questions/{questionID}/submit": h.submitAttempt,
		"GET /api/quizzes/{quizID}/attempts":                       h.listAttempts,
		"GET /api/quizzes/{quizID}/leaderboard":                    h.leaderboard,
		"GET /api/quizzes/{quizID}/schools/leaderboard":            h.schoolLeaderboard,
	}
	for pattern, fn := range routes {
		var handler http.Handler = fn
		if mw != nil {
			handler = mw(pattern, handler)
		}
		mux.Handle(pattern, handler)
	}
}

type attemptParams struct {
	StudentID  string `json:"studentId" validate:"required,max=128"`
	QuizID     int64  `json:"quizId" validate:"gt=0"`
	QuestionID string `json:"questionId" validate:"required,max=128"`
}

type submitRequest struct {
	Answer any `json:"answer" validate:"required"`
}

type listParams struct {
	StudentID string `json:"studentId" validate:"required,max=128"`
	QuizID    int64  `json:"quizId" validate:"gt=0"`
}

type boardParams struct {
	QuizID int64 `json:"quizId" validate:"gt=0"`
	Limit  int   `json:"limit"`
}

func (h *Handler) openAttempt(w http.ResponseWriter, r *http.Request) {
	params, err := h.attemptParams(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	attempt, err := h.attempts.Open(r.Context(), params.key())
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	writeData(w, http.StatusOK, attempt)
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	params, err := h.attemptParams(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}

	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.fail(w, r, domain.Invalid("body", "must be a JSON object"), nil)
		return
	}
	if err := h.check(req); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	answer, ok := AnswerString(req.Answer)
	if !ok {
		h.fail(w, r, domain.Invalid("answer", "must be a string, number or boolean"), nil)
		return
	}

	result, err := h.attempts.Submit(r.Context(), params.key(), answer)
	if err != nil {
		// A locked attempt is returned unchanged alongside the conflict.
		var data any
		if result.Attempt.ID != "" {
			data = result
		}
		h.fail(w, r, err, data)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathQuizID(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	params := listParams{StudentID: r.Header.Get(StudentHeader), QuizID: quizID}
	if err := h.check(params); err != nil {
		h.fail(w, r, err, nil)
		return
	}
	attempts, err := h.attempts.List(r.Context(), params.StudentID, params.QuizID)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	writeData(w, http.StatusOK, attempts)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	params, err := h.boardParams(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	entries, err := h.board.Leaderboard(r.Context(), params.QuizID, params.Limit)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	writeData(w, http.StatusOK, entries)
}

func (h *Handler) schoolLeaderboard(w http.ResponseWriter, r *http.Request) {
	params, err := h.boardParams(r)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	standings, err := h.board.SchoolLeaderboard(r.Context(), params.QuizID, params.Limit)
	if err != nil {
		h.fail(w, r, err, nil)
		return
	}
	writeData(w, http.StatusOK, standings)
}

func (h *Handler) attemptParams(r *http.Request) (attemptParams, error) {
	quizID, err := pathQuizID(r)
	if err != nil {
		return attemptParams{}, err
	}
	params := attemptParams{
		StudentID:  strings.TrimSpace(r.Header.Get(StudentHeader)),
		QuizID:     quizID,
		QuestionID: r.PathValue("questionID"),
	}
	return params, h.check(params)
}

func (h *Handler) boardParams(r *http.Request) (boardParams, error) {
	quizID, err := pathQuizID(r)
	if err != nil {
		return boardParams{}, err
	}
	params := boardParams{QuizID: quizID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return boardParams{}, domain.Invalid("limit", "must be an integer")
		}
		params.Limit = limit
	}
	return params, h.check(params)
}

func (h *Handler) check(v any) error {
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	status, _ := StatusFor(err)
	ev := h.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, err, data)
}

func (p attemptParams) key() domain.AttemptKey {
	return domain.AttemptKey{StudentID: p.StudentID, QuizID: p.QuizID, QuestionID: p.QuestionID}
}

func pathQuizID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("quizID"), 10, 64)
	if err != nil {
		return 0, domain.Invalid("quiz", "must be numeric")
	}
	return id, nil
}

// AnswerString converts a decoded JSON answer to the string that is scored.
// Strings, numbers and booleans qualify; null, objects and arrays do not.
func AnswerString(v any) (string, bool) {
	switch a := v.(type) {
	case string:
		return a, strings.TrimSpace(a) != ""
	case json.Number:
		return a.String(), true
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(a), true
	default:
		return "", false
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeStrict decodes a websocket payload into v, rejecting trailing data.
func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

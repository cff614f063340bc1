package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/profilestore"
)

const maxRequestBodySize = 1 << 20 // 1MB

// PersonalizeRequest is the body of POST /v1/personalize.
type PersonalizeRequest struct {
	UserID string `json:"user_id" validate:"required,max=256"`
	Query  string `json:"query" validate:"required,max=8000"`
}

// InteractionRequest records one graded interaction on a topic.
type InteractionRequest struct {
	UserID      string   `json:"user_id" validate:"required,max=256"`
	Topic       string   `json:"topic" validate:"required,max=200"`
	SuccessRate *float64 `json:"success_rate" validate:"required"`
}

// FeedbackRequest is explicit feedback on a previous answer.
type FeedbackRequest struct {
	UserID     string `json:"user_id" validate:"required,max=256"`
	Query      string `json:"query" validate:"required,max=8000"`
	WasHelpful *bool  `json:"was_helpful" validate:"required"`
	Feedback   string `json:"feedback" validate:"max=4000"`
	Topic      string `json:"topic" validate:"max=200"`
}

// PreferencesRequest is a partial update of learner preferences.
type PreferencesRequest struct {
	DisplayName    *string  `json:"display_name" validate:"omitempty,max=100"`
	LearningStyles []string `json:"preferred_learning_styles" validate:"omitempty,dive,oneof=visual textual auditory kinesthetic interactive"`
	Goals          []string `json:"goals" validate:"omitempty,dive,required,max=200"`
}

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Engine Engine
	Token  string
}

// NewHandler returns the HTTP API. /health is public; everything under
// /v1 requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	h := &handler{engine: deps.Engine, validate: validator.New()}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/personalize", h.personalize)
		r.Post("/interactions", h.recordInteraction)
		r.Post("/feedback", h.feedback)
		r.Get("/profiles/{userID}", h.getProfile)
		r.Patch("/profiles/{userID}", h.patchProfile)
		r.Get("/profiles/{userID}/recommendations", h.recommendations)
		r.Get("/profiles/{userID}/summary", h.summary)
	})

	return r
}

type handler struct {
	engine   Engine
	validate *validator.Validate
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *handler) personalize(w http.ResponseWriter, r *http.Request) {
	var req PersonalizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.engine.Process(r.Context(), req.UserID, req.Query)
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handler) recordInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.RecordInteraction(r.Context(), req.UserID, req.Topic, *req.SuccessRate)
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.engine.Feedback(r.Context(), req.UserID, personalize.FeedbackInput{
		Query:      req.Query,
		WasHelpful: *req.WasHelpful,
		Text:       req.Feedback,
		Topic:      req.Topic,
	})
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) patchProfile(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !h.decode(w, r, &req) {
		return
	}
	prefs := personalize.Preferences{DisplayName: req.DisplayName, Goals: req.Goals}
	for _, s := range req.LearningStyles {
		prefs.LearningStyles = append(prefs.LearningStyles, profile.LearningStyle(s))
	}
	res, err := h.engine.UpdatePreferences(r.Context(), chi.URLParam(r, "userID"), prefs)
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.engine.Recommendations(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Summary(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": s})
}

// decode reads a JSON body into v and validates it. On failure it writes
// the error response and returns false.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, personalize.ErrEmptyUserID),
		errors.Is(err, personalize.ErrEmptyQuery),
		errors.Is(err, personalize.ErrEmptyTopic),
		errors.Is(err, personalize.ErrInvalidPreference):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, profilestore.ErrPersistenceDegraded):
		slog.Warn("profile store unavailable", "error", err)
		httpError(w, http.StatusServiceUnavailable, "unavailable_error", "profile store unavailable")
	default:
		slog.Error("engine operation failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

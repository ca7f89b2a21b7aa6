// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	quizsession "github.com/scriptboard/backend/internal/domain/quiz_session"
	"github.com/scriptboard/backend/internal/domain/selection"
	"github.com/scriptboard/backend/internal/service"
	"github.com/scriptboard/backend/internal/store"
)

// maxBodyBytes bounds request bodies; reference images travel inline.
const maxBodyBytes = 8 << 20

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	store   store.Store
	quiz    *service.QuizService
	history *service.HistoryKeeper
	logger  *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(s store.Store, quiz *service.QuizService, history *service.HistoryKeeper, logger *slog.Logger) *Handler {
	return &Handler{
		store:   s,
		quiz:    quiz,
		history: history,
		logger:  logger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

type validator interface {
	Validate() error
}

// decodeJSON decodes the request body into v. An empty body is accepted
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return true
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v, false) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps domain and store errors to HTTP responses. Returns true
// if an error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, service.ErrNotEnoughScripts), errors.Is(err, selection.ErrInsufficientPool):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quizsession.ErrInvalidTransition), errors.Is(err, quizsession.ErrNotActive):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quizsession.ErrUnknownOption):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err, "entity", entity)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

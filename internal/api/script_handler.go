package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/scriptboard/backend/internal/domain/script"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateScriptRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

func (r *CreateScriptRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text is required")
	}
	if _, err := script.ParseCategory(r.Category); err != nil {
		return err
	}
	return nil
}

type ScriptResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

func toScriptResponse(sc script.Script) ScriptResponse {
	return ScriptResponse{
		ID:        sc.ID,
		Text:      sc.Text,
		Category:  string(sc.Category),
		CreatedAt: sc.CreatedAt,
	}
}

type HistoryEntryResponse struct {
	ScriptID string    `json:"script_id"`
	UsedAt   time.Time `json:"used_at"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /learners/{learnerID}/scripts
func (h *Handler) createScript(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("learnerID")

	var req CreateScriptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	category, _ := script.ParseCategory(req.Category)
	sc, err := script.New(learnerID, req.Text, category)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.handleError(w, h.store.SaveScript(r.Context(), sc), "script") {
		return
	}

	respondJSON(w, http.StatusCreated, toScriptResponse(*sc))
}

// GET /learners/{learnerID}/scripts
func (h *Handler) listScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := h.store.ListScripts(r.Context(), r.PathValue("learnerID"))
	if h.handleError(w, err, "scripts") {
		return
	}

	response := make([]ScriptResponse, len(scripts))
	for i, sc := range scripts {
		response[i] = toScriptResponse(sc)
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /learners/{learnerID}/scripts/{scriptID}
func (h *Handler) getScript(w http.ResponseWriter, r *http.Request) {
	sc, err := h.store.GetScript(r.Context(), r.PathValue("learnerID"), r.PathValue("scriptID"))
	if h.handleError(w, err, "script") {
		return
	}
	respondJSON(w, http.StatusOK, toScriptResponse(*sc))
}

// DELETE /learners/{learnerID}/scripts/{scriptID}
func (h *Handler) deleteScript(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteScript(r.Context(), r.PathValue("learnerID"), r.PathValue("scriptID"))
	if h.handleError(w, err, "script") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /learners/{learnerID}/history
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.View(r.Context(), r.PathValue("learnerID"))
	if h.handleError(w, err, "history") {
		return
	}

	response := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = HistoryEntryResponse{ScriptID: e.ScriptID, UsedAt: e.UsedAt}
	}
	respondJSON(w, http.StatusOK, response)
}

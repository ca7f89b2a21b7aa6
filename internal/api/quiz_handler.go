package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/scriptboard/backend/internal/content"
	quizsession "github.com/scriptboard/backend/internal/domain/quiz_session"
	"github.com/scriptboard/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type ImagePayload struct {
	Data     []byte `json:"data"` // base64 in JSON
	MIMEType string `json:"mime_type"`
}

type OpenQuizRequest struct {
	ReferenceImage *ImagePayload `json:"reference_image,omitempty"`
}

func (r *OpenQuizRequest) Validate() error {
	if r.ReferenceImage == nil {
		return nil
	}
	if len(r.ReferenceImage.Data) == 0 {
		return errors.New("reference_image.data is required")
	}
	if r.ReferenceImage.MIMEType == "" {
		return errors.New("reference_image.mime_type is required")
	}
	return nil
}

func (r *OpenQuizRequest) reference() *content.Image {
	if r.ReferenceImage == nil {
		return nil
	}
	return &content.Image{Data: r.ReferenceImage.Data, MIMEType: r.ReferenceImage.MIMEType}
}

type AnswerRequest struct {
	ScriptID string `json:"script_id"`
}

func (r *AnswerRequest) Validate() error {
	if r.ScriptID == "" {
		return errors.New("script_id is required")
	}
	return nil
}

type OptionResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type QuizResponse struct {
	SessionID   string           `json:"session_id"`
	LearnerID   string           `json:"learner_id"`
	CreatedAt   time.Time        `json:"created_at"`
	State       string           `json:"state"`
	Message     string           `json:"message,omitempty"`
	Scenario    string           `json:"scenario,omitempty"`
	Image       *ImagePayload    `json:"image,omitempty"`
	Options     []OptionResponse `json:"options,omitempty"`
	AnsweredIDs []string         `json:"answered_ids,omitempty"`
	CorrectID   string           `json:"correct_id,omitempty"` // only once solved
}

func toQuizResponse(s *service.Snapshot) QuizResponse {
	resp := QuizResponse{
		SessionID: s.SessionID,
		LearnerID: s.LearnerID,
		CreatedAt: s.CreatedAt,
		State:     string(s.State.Kind()),
	}

	switch st := s.State.(type) {
	case quizsession.Failed:
		resp.Message = st.Message
	case quizsession.Active:
		fillSetup(&resp, st.Setup)
		resp.AnsweredIDs = st.AnsweredIDs
		if resp.AnsweredIDs == nil {
			resp.AnsweredIDs = []string{}
		}
	case quizsession.Correct:
		fillSetup(&resp, st.Setup)
		resp.CorrectID = st.Setup.Correct.ID
	}
	return resp
}

func fillSetup(resp *QuizResponse, setup *quizsession.Setup) {
	resp.Scenario = setup.Scenario
	if setup.Image != nil {
		resp.Image = &ImagePayload{Data: setup.Image.Data, MIMEType: setup.Image.MIMEType}
	}
	resp.Options = make([]OptionResponse, len(setup.Options))
	for i, o := range setup.Options {
		resp.Options[i] = OptionResponse{ID: o.ID, Text: o.Text}
	}
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /learners/{learnerID}/quizzes
func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req OpenQuizRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.quiz.StartQuiz(r.Context(), r.PathValue("learnerID"), req.reference())
	if h.handleError(w, err, "learner") {
		return
	}

	respondJSON(w, http.StatusAccepted, toQuizResponse(snap))
}

// GET /quizzes/{sessionID}
func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.quiz.Get(r.PathValue("sessionID"))
	if h.handleError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusOK, toQuizResponse(snap))
}

// POST /quizzes/{sessionID}/answers
func (h *Handler) answerQuiz(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	snap, err := h.quiz.Answer(r.Context(), r.PathValue("sessionID"), req.ScriptID)
	if h.handleError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusOK, toQuizResponse(snap))
}

// POST /quizzes/{sessionID}/open
func (h *Handler) reopenQuiz(w http.ResponseWriter, r *http.Request) {
	var req OpenQuizRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.quiz.Reopen(r.Context(), r.PathValue("sessionID"), req.reference())
	if h.handleError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusAccepted, toQuizResponse(snap))
}

// POST /quizzes/{sessionID}/close
func (h *Handler) closeQuiz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.quiz.Close(r.PathValue("sessionID"))
	if h.handleError(w, err, "quiz") {
		return
	}
	respondJSON(w, http.StatusOK, toQuizResponse(snap))
}

// DELETE /quizzes/{sessionID}
func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if h.handleError(w, h.quiz.Delete(r.PathValue("sessionID")), "quiz") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

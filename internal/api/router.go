package api

import "net/http"

// RegisterRoutes wires every API route onto mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /health", h.health)

	// Scripts
	mux.HandleFunc("POST /learners/{learnerID}/scripts", h.createScript)
	mux.HandleFunc("GET /learners/{learnerID}/scripts", h.listScripts)
	mux.HandleFunc("GET /learners/{learnerID}/scripts/{scriptID}", h.getScript)
	mux.HandleFunc("DELETE /learners/{learnerID}/scripts/{scriptID}", h.deleteScript)

	// History
	mux.HandleFunc("GET /learners/{learnerID}/history", h.listHistory)

	// Quizzes
	mux.HandleFunc("POST /learners/{learnerID}/quizzes", h.startQuiz)
	mux.HandleFunc("GET /quizzes/{sessionID}", h.getQuiz)
	mux.HandleFunc("POST /quizzes/{sessionID}/answers", h.answerQuiz)
	mux.HandleFunc("POST /quizzes/{sessionID}/open", h.reopenQuiz)
	mux.HandleFunc("POST /quizzes/{sessionID}/close", h.closeQuiz)
	mux.HandleFunc("DELETE /quizzes/{sessionID}", h.deleteQuiz)
}

// GET /health
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package http

import (
	"net/http"
)

// ListAllConversations handles GET /api/v1/staff/conversations. Returns every
// user's conversations except the viewer's own, grouped per user.
func (h *Handlers) ListAllConversations(w http.ResponseWriter, r *http.Request) {
	viewer := r.Header.Get(staffHeader)
	out, err := h.Conversations.ListAllByUser(r.Context(), viewer)
	if err != nil {
		writeDomainError(w, err, "list conversations")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats handles GET /api/v1/staff/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Conversations.AggregateStats(r.Context())
	if err != nil {
		writeDomainError(w, err, "aggregate stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// EvaluateConversation handles POST /api/v1/users/{userID}/conversations/{name}/evaluate.
func (h *Handlers) EvaluateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	e, err := h.Evaluations.Evaluate(r.Context(), userID, nameParam(r))
	if err != nil {
		writeDomainError(w, err, "evaluate conversation")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListEvaluations handles GET /api/v1/users/{userID}/conversations/{name}/evaluations.
func (h *Handlers) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	evals, err := h.Evaluations.List(r.Context(), userID, nameParam(r))
	if err != nil {
		writeDomainError(w, err, "list evaluations")
		return
	}
	writeJSON(w, http.StatusOK, evals)
}

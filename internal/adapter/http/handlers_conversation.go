package http

import (
	"net/http"

	"github.com/caadev/tutortrainer/internal/adapter/export"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
)

type nextNameRequest struct {
	Subject string `json:"subject"`
	Mode    string `json:"mode"`
}

// NextConversationName handles POST /api/v1/users/{userID}/conversations/next-name.
// Reserves nothing; it reports the name the next exchange will persist under.
func (h *Handlers) NextConversationName(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[nextNameRequest](w, r)
	if !ok {
		return
	}
	subject, err := conversation.ParseSubject(req.Subject)
	if err != nil {
		writeDomainError(w, err, "parse subject")
		return
	}
	mode, err := conversation.ParseMode(req.Mode)
	if err != nil {
		writeDomainError(w, err, "parse mode")
		return
	}

	name, err := h.Conversations.NextConversationName(r.Context(), userID, subject, mode)
	if err != nil {
		writeDomainError(w, err, "next conversation name")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversation_name": name})
}

type sendMessageRequest struct {
	Username string `json:"username"`
	Subject  string `json:"subject"`
	Mode     string `json:"mode"`
	Message  string `json:"message"`
}

// SendMessage handles POST /api/v1/users/{userID}/conversations/{name}/messages.
// Blocks until the assistant run completes and returns the reply.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[sendMessageRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Message, "message") {
		return
	}

	sess := conversation.Session{
		UserID:   userID,
		Username: req.Username,
		Subject:  conversation.Subject(req.Subject),
		Mode:     conversation.Mode(req.Mode),
		Name:     nameParam(r),
	}
	reply, err := h.Orchestrator.GenerateResponse(r.Context(), sess, req.Message)
	if err != nil {
		writeDomainError(w, err, "send message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// ListConversations handles GET /api/v1/users/{userID}/conversations.
// Returns the user's conversation names grouped by mode.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	grouped, err := h.Conversations.ListGrouped(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, "list conversations")
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

// GetConversation handles GET /api/v1/users/{userID}/conversations/{name}.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	conv, err := h.Conversations.Get(r.Context(), userID, nameParam(r))
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// GetTranscript handles GET /api/v1/users/{userID}/conversations/{name}/transcript.
// Returns the formatted transcript as plain text.
func (h *Handlers) GetTranscript(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	text, err := h.Conversations.Transcript(r.Context(), userID, nameParam(r))
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// DeleteConversation handles DELETE /api/v1/users/{userID}/conversations/{name}.
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Conversations.Delete(r.Context(), userID, nameParam(r)); err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	Format string `json:"format"`
}

// ExportConversation handles POST /api/v1/users/{userID}/conversations/{name}/export.
func (h *Handlers) ExportConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[exportRequest](w, r)
	if !ok {
		return
	}
	path, err := h.Exports.Export(r.Context(), userID, nameParam(r), export.Format(req.Format))
	if err != nil {
		writeDomainError(w, err, "export conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

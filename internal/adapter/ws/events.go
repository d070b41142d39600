package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventRunStarted  = "run.started"
	EventRunFinished = "run.finished"
	EventReply       = "conversation.reply"
)

// RunStartedEvent is broadcast when an assistant run begins polling.
type RunStartedEvent struct {
	UserID           int    `json:"user_id"`
	ConversationName string `json:"conversation_name"`
	Mode             string `json:"mode"`
}

// RunFinishedEvent is broadcast when a run reaches a terminal status.
type RunFinishedEvent struct {
	UserID           int    `json:"user_id"`
	ConversationName string `json:"conversation_name"`
	Status           string `json:"status"`
}

// ReplyEvent carries an assistant reply back to connected clients.
type ReplyEvent struct {
	UserID           int    `json:"user_id"`
	ConversationName string `json:"conversation_name"`
	Reply            string `json:"reply"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

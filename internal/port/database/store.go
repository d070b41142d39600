// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/domain/evaluation"
	"github.com/caadev/tutortrainer/internal/domain/identity"
)

// Store is the port interface for persistence. The postgres and memory
// adapters implement it interchangeably.
type Store interface {
	// Users
	GetUserByName(ctx context.Context, username string) (*identity.User, error)
	CreateUser(ctx context.Context, u *identity.User) error
	ListUsers(ctx context.Context) ([]identity.User, error)

	// Conversations
	// FindThread returns the thread ref bound to (userID, name), or
	// domain.ErrNotFound for an unbound conversation name.
	FindThread(ctx context.Context, userID int, name string) (string, error)
	// UpsertConversation replaces-or-inserts keyed by ThreadRef. The message
	// lists are a full overwrite; the caller re-sends the accumulated history.
	UpsertConversation(ctx context.Context, c *conversation.Conversation) error
	GetConversation(ctx context.Context, userID int, name string) (*conversation.Conversation, error)
	// ListConversationNames returns every conversation belonging to the user
	// in discovery order (insertion order, not guaranteed chronological).
	ListConversationNames(ctx context.Context, userID int) ([]conversation.Conversation, error)
	// ListAllConversations returns conversations of every user except the
	// one named, in discovery order. Staff aggregate view.
	ListAllConversations(ctx context.Context, excludeUsername string) ([]conversation.Conversation, error)
	DeleteConversation(ctx context.Context, userID int, name string) error

	// Evaluations
	CreateEvaluation(ctx context.Context, e *evaluation.Evaluation) error
	ListEvaluations(ctx context.Context, userID int, name string) ([]evaluation.Evaluation, error)
}

// Package memory is an in-process Store implementation. It is NOT persistent
// and is only suitable for tests and local single-user deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/domain/evaluation"
	"github.com/caadev/tutortrainer/internal/domain/identity"
)

// Store keeps everything in maps guarded by one RWMutex. Conversation order
// is tracked separately so listings come back in discovery order, like the
// postgres adapter's created_at ordering.
type Store struct {
	mu            sync.RWMutex
	usersByName   map[string]*identity.User
	usersByID     map[int]*identity.User
	userOrder     []string
	conversations map[string]*conversation.Conversation // keyed by ThreadRef
	threadOrder   []string
	evaluations   []evaluation.Evaluation
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		usersByName:   make(map[string]*identity.User),
		usersByID:     make(map[int]*identity.User),
		conversations: make(map[string]*conversation.Conversation),
	}
}

func (s *Store) GetUserByName(_ context.Context, username string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[u.Username]; ok {
		return fmt.Errorf("username %q taken: %w", u.Username, domain.ErrConflict)
	}
	if _, ok := s.usersByID[u.ID]; ok {
		return fmt.Errorf("user id %d taken: %w", u.ID, domain.ErrConflict)
	}
	cp := *u
	s.usersByName[u.Username] = &cp
	s.usersByID[u.ID] = &cp
	s.userOrder = append(s.userOrder, u.Username)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.User, 0, len(s.userOrder))
	for _, name := range s.userOrder {
		out = append(out, *s.usersByName[name])
	}
	return out, nil
}

func (s *Store) FindThread(_ context.Context, userID int, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ref := range s.threadOrder {
		c := s.conversations[ref]
		if c.UserID == userID && c.Name == name {
			return c.ThreadRef, nil
		}
	}
	return "", fmt.Errorf("conversation %q: %w", name, domain.ErrNotFound)
}

func (s *Store) UpsertConversation(_ context.Context, c *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyConversation(c)
	if _, ok := s.conversations[c.ThreadRef]; !ok {
		s.threadOrder = append(s.threadOrder, c.ThreadRef)
	}
	s.conversations[c.ThreadRef] = cp
	return nil
}

func (s *Store) GetConversation(_ context.Context, userID int, name string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ref := range s.threadOrder {
		c := s.conversations[ref]
		if c.UserID == userID && c.Name == name {
			return copyConversation(c), nil
		}
	}
	return nil, fmt.Errorf("conversation %q: %w", name, domain.ErrNotFound)
}

func (s *Store) ListConversationNames(_ context.Context, userID int) ([]conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []conversation.Conversation
	for _, ref := range s.threadOrder {
		c := s.conversations[ref]
		if c.UserID == userID {
			out = append(out, *copyConversation(c))
		}
	}
	return out, nil
}

func (s *Store) ListAllConversations(_ context.Context, excludeUsername string) ([]conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []conversation.Conversation
	for _, ref := range s.threadOrder {
		c := s.conversations[ref]
		if c.Username != excludeUsername {
			out = append(out, *copyConversation(c))
		}
	}
	return out, nil
}

func (s *Store) DeleteConversation(_ context.Context, userID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ref := range s.threadOrder {
		c := s.conversations[ref]
		if c.UserID == userID && c.Name == name {
			delete(s.conversations, ref)
			s.threadOrder = append(s.threadOrder[:i], s.threadOrder[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("conversation %q: %w", name, domain.ErrNotFound)
}

func (s *Store) CreateEvaluation(_ context.Context, e *evaluation.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluations = append(s.evaluations, *e)
	return nil
}

func (s *Store) ListEvaluations(_ context.Context, userID int, name string) ([]evaluation.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []evaluation.Evaluation
	for _, e := range s.evaluations {
		if e.UserID == userID && e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

// copyConversation deep-copies so callers cannot mutate stored state through
// the shared message slices.
func copyConversation(c *conversation.Conversation) *conversation.Conversation {
	cp := *c
	cp.UserMessages = append([]conversation.Message(nil), c.UserMessages...)
	cp.AssistantMessages = append([]conversation.Message(nil), c.AssistantMessages...)
	return &cp
}

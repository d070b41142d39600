package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/port/cache"
	"github.com/caadev/tutortrainer/internal/port/database"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

// ConversationService reads, lists, deletes, and renders stored conversations.
type ConversationService struct {
	db       database.Store
	cache    cache.Cache
	queue    messagequeue.Queue
	cacheTTL time.Duration
}

// NewConversationService creates a new ConversationService. cache and queue
// may be nil in tests or single-process deployments.
func NewConversationService(db database.Store, c cache.Cache, q messagequeue.Queue, cacheTTL time.Duration) *ConversationService {
	return &ConversationService{db: db, cache: c, queue: q, cacheTTL: cacheTTL}
}

func transcriptKey(userID int, name string) string {
	return fmt.Sprintf("transcript:%d:%s", userID, name)
}

func threadKey(userID int, name string) string {
	return fmt.Sprintf("thread:%d:%s", userID, name)
}

// Get returns a stored conversation.
func (s *ConversationService) Get(ctx context.Context, userID int, name string) (*conversation.Conversation, error) {
	return s.db.GetConversation(ctx, userID, name)
}

// Transcript returns the formatted plain-text transcript of a conversation,
// serving from cache when possible.
func (s *ConversationService) Transcript(ctx context.Context, userID int, name string) (string, error) {
	key := transcriptKey(userID, name)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return string(data), nil
		}
	}

	c, err := s.db.GetConversation(ctx, userID, name)
	if err != nil {
		return "", err
	}
	text := conversation.FormatTranscript(c)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(text), s.cacheTTL); err != nil {
			slog.Debug("transcript cache set failed", "key", key, "error", err)
		}
	}
	return text, nil
}

// ListGrouped returns the user's conversation names grouped by mode, in
// discovery order within each group.
func (s *ConversationService) ListGrouped(ctx context.Context, userID int) (map[conversation.Mode][]string, error) {
	convs, err := s.db.ListConversationNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	grouped := make(map[conversation.Mode][]string, len(conversation.Modes()))
	for _, c := range convs {
		grouped[c.Mode] = append(grouped[c.Mode], c.Name)
	}
	return grouped, nil
}

// UserConversations is the staff aggregate view entry for a single user:
// that user's conversation names bucketed by mode, matching the mode folders
// the staff tree renders under each user.
type UserConversations struct {
	Username string                         `json:"username"`
	UserID   int                            `json:"user_id"`
	ByMode   map[conversation.Mode][]string `json:"conversations_by_mode"`
}

// ListAllByUser returns every user's conversations except the viewer's own,
// grouped per user and per mode in discovery order. Staff review view.
func (s *ConversationService) ListAllByUser(ctx context.Context, viewerUsername string) ([]UserConversations, error) {
	convs, err := s.db.ListAllConversations(ctx, viewerUsername)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var out []UserConversations
	for _, c := range convs {
		i, ok := index[c.Username]
		if !ok {
			i = len(out)
			index[c.Username] = i
			out = append(out, UserConversations{
				Username: c.Username,
				UserID:   c.UserID,
				ByMode:   make(map[conversation.Mode][]string),
			})
		}
		out[i].ByMode[c.Mode] = append(out[i].ByMode[c.Mode], c.Name)
	}
	return out, nil
}

// Stats backs the staff analytics view with aggregate conversation counts.
type Stats struct {
	Total  int                       `json:"total"`
	ByMode map[conversation.Mode]int `json:"by_mode"`
	ByUser map[string]int            `json:"by_user"`
}

// AggregateStats counts every stored conversation, split by mode and by user.
func (s *ConversationService) AggregateStats(ctx context.Context) (*Stats, error) {
	convs, err := s.db.ListAllConversations(ctx, "")
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		ByMode: make(map[conversation.Mode]int),
		ByUser: make(map[string]int),
	}
	for _, c := range convs {
		stats.Total++
		stats.ByMode[c.Mode]++
		stats.ByUser[c.Username]++
	}
	return stats, nil
}

// Delete removes a conversation, invalidates its cache entries, and emits a
// deleted event.
func (s *ConversationService) Delete(ctx context.Context, userID int, name string) error {
	if err := s.db.DeleteConversation(ctx, userID, name); err != nil {
		return err
	}
	s.invalidate(ctx, userID, name)
	s.publish(ctx, messagequeue.SubjectConversationDeleted, messagequeue.ConversationDeletedPayload{
		UserID: userID,
		Name:   name,
	})
	return nil
}

func (s *ConversationService) invalidate(ctx context.Context, userID int, name string) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{transcriptKey(userID, name), threadKey(userID, name)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.Debug("cache invalidate failed", "key", key, "error", err)
		}
	}
}

func (s *ConversationService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

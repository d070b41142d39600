package service

import (
	"context"
	"fmt"

	"github.com/caadev/tutortrainer/internal/domain/conversation"
)

// NextConversationName returns the next free name for a (subject, mode) pair:
// the prefix followed by one more than the highest existing suffix. Gaps in
// the sequence are never reused, so a deleted "Conversation 3" stays gone.
func (s *ConversationService) NextConversationName(ctx context.Context, userID int, subject conversation.Subject, mode conversation.Mode) (string, error) {
	existing, err := s.db.ListConversationNames(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list conversations: %w", err)
	}

	prefix := conversation.NamePrefix(subject, mode)
	max := 0
	for _, c := range existing {
		n, ok, err := conversation.NameSuffix(c.Name, prefix)
		if err != nil {
			return "", err
		}
		if ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%d", prefix, max+1), nil
}

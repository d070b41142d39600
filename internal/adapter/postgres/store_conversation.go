package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
)

func (s *Store) FindThread(ctx context.Context, userID int, name string) (string, error) {
	var ref string
	err := s.pool.QueryRow(ctx,
		`SELECT thread_ref FROM conversations WHERE user_id = $1 AND conversation_name = $2`,
		userID, name,
	).Scan(&ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("find thread for %q: %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("find thread for %q: %w", name, err)
	}
	return ref, nil
}

// UpsertConversation replaces-or-inserts keyed by thread_ref. The message
// lists are stored as JSONB and fully overwritten on every call.
func (s *Store) UpsertConversation(ctx context.Context, c *conversation.Conversation) error {
	userMsgs, err := json.Marshal(messagesOrEmpty(c.UserMessages))
	if err != nil {
		return fmt.Errorf("marshal user messages: %w", err)
	}
	asstMsgs, err := json.Marshal(messagesOrEmpty(c.AssistantMessages))
	if err != nil {
		return fmt.Errorf("marshal assistant messages: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations
		     (thread_ref, user_id, username, subject, mode, conversation_name, user_messages, assistant_messages)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (thread_ref) DO UPDATE SET
		     user_messages      = EXCLUDED.user_messages,
		     assistant_messages = EXCLUDED.assistant_messages,
		     updated_at         = NOW()`,
		c.ThreadRef, c.UserID, c.Username, c.Subject, c.Mode, c.Name, userMsgs, asstMsgs)
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", c.ThreadRef, err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, userID int, name string) (*conversation.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT thread_ref, user_id, username, subject, mode, conversation_name, user_messages, assistant_messages
		 FROM conversations WHERE user_id = $1 AND conversation_name = $2`,
		userID, name)

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get conversation %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation %q: %w", name, err)
	}
	return c, nil
}

func (s *Store) ListConversationNames(ctx context.Context, userID int) ([]conversation.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT thread_ref, user_id, username, subject, mode, conversation_name, user_messages, assistant_messages
		 FROM conversations WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

func (s *Store) ListAllConversations(ctx context.Context, excludeUsername string) ([]conversation.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT thread_ref, user_id, username, subject, mode, conversation_name, user_messages, assistant_messages
		 FROM conversations WHERE username <> $1 ORDER BY created_at`,
		excludeUsername)
	if err != nil {
		return nil, fmt.Errorf("list all conversations: %w", err)
	}
	defer rows.Close()

	return collectConversations(rows)
}

func (s *Store) DeleteConversation(ctx context.Context, userID int, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM conversations WHERE user_id = $1 AND conversation_name = $2`,
		userID, name)
	if err != nil {
		return fmt.Errorf("delete conversation %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete conversation %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// messagesOrEmpty keeps nil slices marshaling as [] rather than null.
func messagesOrEmpty(msgs []conversation.Message) []conversation.Message {
	if msgs == nil {
		return []conversation.Message{}
	}
	return msgs
}

func scanConversation(row pgx.Row) (*conversation.Conversation, error) {
	var c conversation.Conversation
	var userMsgs, asstMsgs []byte
	if err := row.Scan(&c.ThreadRef, &c.UserID, &c.Username, &c.Subject, &c.Mode, &c.Name,
		&userMsgs, &asstMsgs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(userMsgs, &c.UserMessages); err != nil {
		return nil, fmt.Errorf("unmarshal user messages: %w", err)
	}
	if err := json.Unmarshal(asstMsgs, &c.AssistantMessages); err != nil {
		return nil, fmt.Errorf("unmarshal assistant messages: %w", err)
	}
	return &c, nil
}

func collectConversations(rows pgx.Rows) ([]conversation.Conversation, error) {
	var result []conversation.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

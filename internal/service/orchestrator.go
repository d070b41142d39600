package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caadev/tutortrainer/internal/adapter/otel"
	"github.com/caadev/tutortrainer/internal/adapter/ws"
	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/port/assistant"
	"github.com/caadev/tutortrainer/internal/port/broadcast"
	"github.com/caadev/tutortrainer/internal/port/cache"
	"github.com/caadev/tutortrainer/internal/port/database"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

// OrchestratorService drives a full message exchange: thread resolution,
// message posting, run polling, and persistence of the updated history.
type OrchestratorService struct {
	db      database.Store
	ai      assistant.Client
	cache   cache.Cache
	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	metrics *otel.Metrics
	cfg     config.Assistants

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestratorService creates a new OrchestratorService. cache, hub,
// queue, and metrics may be nil.
func NewOrchestratorService(db database.Store, ai assistant.Client, c cache.Cache, hub broadcast.Broadcaster, q messagequeue.Queue, metrics *otel.Metrics, cfg config.Assistants) *OrchestratorService {
	return &OrchestratorService{
		db:      db,
		ai:      ai,
		cache:   c,
		hub:     hub,
		queue:   q,
		metrics: metrics,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}
}

// remoteErr classifies a failed assistant service call as a remote failure.
// Sentinels the error already carries are preserved.
func remoteErr(op string, err error) error {
	if errors.Is(err, domain.ErrRemote) || errors.Is(err, domain.ErrRunTimeout) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrRemote)
}

// lockFor returns the mutex serializing exchanges on one conversation.
// Concurrent calls for different conversations proceed in parallel.
func (s *OrchestratorService) lockFor(userID int, name string) *sync.Mutex {
	key := fmt.Sprintf("%d:%s", userID, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// assistantFor selects the assistant ref for a subject and mode. Tutor mode
// uses one assistant across all subjects.
func (s *OrchestratorService) assistantFor(subject conversation.Subject, mode conversation.Mode) (string, error) {
	var ref string
	switch mode {
	case conversation.ModeTutor:
		ref = s.cfg.Tutor
	case conversation.ModeTutee:
		ref = s.cfg.Tutee[string(subject)]
	case conversation.ModeGenerate:
		ref = s.cfg.Generate[string(subject)]
	}
	if ref == "" {
		return "", fmt.Errorf("no assistant configured for subject %q mode %q: %w", subject, mode, domain.ErrValidation)
	}
	return ref, nil
}

// GenerateResponse runs one exchange: post the user message to the session's
// thread (creating the thread on first contact), run the mode's assistant,
// wait for completion, persist the updated history, and return the reply.
func (s *OrchestratorService) GenerateResponse(ctx context.Context, sess conversation.Session, message string) (string, error) {
	if err := sess.Validate(); err != nil {
		return "", err
	}
	if message == "" {
		return "", fmt.Errorf("message is required: %w", domain.ErrValidation)
	}

	lock := s.lockFor(sess.UserID, sess.Name)
	lock.Lock()
	defer lock.Unlock()

	threadRef, created, err := s.resolveThread(ctx, sess)
	if err != nil {
		return "", err
	}

	assistantRef, err := s.assistantFor(sess.Subject, sess.Mode)
	if err != nil {
		return "", err
	}

	if err := s.ai.PostMessage(ctx, threadRef, "user", message); err != nil {
		return "", remoteErr("post message", err)
	}

	runRef, err := s.ai.StartRun(ctx, threadRef, assistantRef)
	if err != nil {
		return "", remoteErr("start run", err)
	}

	start := time.Now()
	ctx, span := otel.StartRunSpan(ctx, runRef, threadRef, string(sess.Mode))
	defer span.End()

	if s.metrics != nil {
		s.metrics.RunsStarted.Add(ctx, 1)
	}
	s.broadcastEvent(ctx, ws.EventRunStarted, ws.RunStartedEvent{
		UserID:           sess.UserID,
		ConversationName: sess.Name,
		Mode:             string(sess.Mode),
	})

	status, err := s.waitForRun(ctx, threadRef, runRef)
	s.broadcastEvent(ctx, ws.EventRunFinished, ws.RunFinishedEvent{
		UserID:           sess.UserID,
		ConversationName: sess.Name,
		Status:           status,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunsFailed.Add(ctx, 1)
		}
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RunsCompleted.Add(ctx, 1)
		s.metrics.RunDuration.Record(ctx, time.Since(start).Seconds())
	}

	reply, userMsgs, assistantMsgs, err := s.collectHistory(ctx, threadRef)
	if err != nil {
		return "", err
	}

	conv := &conversation.Conversation{
		ThreadRef:         threadRef,
		UserID:            sess.UserID,
		Username:          sess.Username,
		Subject:           sess.Subject,
		Mode:              sess.Mode,
		Name:              sess.Name,
		UserMessages:      userMsgs,
		AssistantMessages: assistantMsgs,
	}
	if err := s.db.UpsertConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("persist conversation: %w", err)
	}
	s.refreshCache(ctx, sess, threadRef)

	s.broadcastEvent(ctx, ws.EventReply, ws.ReplyEvent{
		UserID:           sess.UserID,
		ConversationName: sess.Name,
		Reply:            reply,
	})
	if created {
		s.publish(ctx, messagequeue.SubjectConversationCreated, messagequeue.ConversationCreatedPayload{
			ThreadRef: threadRef,
			UserID:    sess.UserID,
			Username:  sess.Username,
			Subject:   string(sess.Subject),
			Mode:      string(sess.Mode),
			Name:      sess.Name,
		})
	}
	s.publish(ctx, messagequeue.SubjectConversationMessage, messagequeue.ConversationMessagePayload{
		ThreadRef:      threadRef,
		UserID:         sess.UserID,
		Name:           sess.Name,
		UserTurns:      len(userMsgs),
		AssistantTurns: len(assistantMsgs),
	})

	return reply, nil
}

// resolveThread finds the thread bound to the session's conversation name,
// creating a fresh remote thread when none exists yet. The bool result
// reports whether a new thread was created. Bindings cached after a
// persisted exchange are served without a store lookup or remote verify.
func (s *OrchestratorService) resolveThread(ctx context.Context, sess conversation.Session) (string, bool, error) {
	key := threadKey(sess.UserID, sess.Name)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return string(data), false, nil
		}
	}

	threadRef, err := s.db.FindThread(ctx, sess.UserID, sess.Name)
	switch {
	case err == nil:
		if err := s.ai.RetrieveThread(ctx, threadRef); err != nil {
			return "", false, remoteErr("retrieve thread "+threadRef, err)
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, []byte(threadRef), 0); err != nil {
				slog.Debug("thread cache set failed", "error", err)
			}
		}
		return threadRef, false, nil
	case errors.Is(err, domain.ErrNotFound):
		threadRef, err = s.ai.CreateThread(ctx)
		if err != nil {
			return "", false, remoteErr("create thread", err)
		}
		slog.Info("thread created", "thread_ref", threadRef, "user_id", sess.UserID, "conversation", sess.Name)
		return threadRef, true, nil
	default:
		return "", false, fmt.Errorf("find thread: %w", err)
	}
}

// waitForRun polls the run status with exponential backoff until it reaches
// a terminal state or the configured timeout expires. Returns the final
// status observed; on timeout the error wraps domain.ErrRunTimeout, on a
// terminal failure domain.ErrRemote.
func (s *OrchestratorService) waitForRun(ctx context.Context, threadRef, runRef string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	interval := s.cfg.PollInterval
	for {
		status, err := s.ai.RunStatus(ctx, threadRef, runRef)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("run %s: %w", runRef, domain.ErrRunTimeout)
			}
			return "", remoteErr("run status", err)
		}
		if s.metrics != nil {
			s.metrics.PollAttempts.Add(ctx, 1)
		}

		if status == assistant.StatusCompleted {
			return status, nil
		}
		if assistant.TerminalFailure(status) {
			return status, fmt.Errorf("run %s ended with status %s: %w", runRef, status, domain.ErrRemote)
		}

		select {
		case <-ctx.Done():
			return status, fmt.Errorf("run %s: %w", runRef, domain.ErrRunTimeout)
		case <-time.After(interval):
		}
		interval *= 2
		if interval > s.cfg.PollMaxInterval {
			interval = s.cfg.PollMaxInterval
		}
	}
}

// collectHistory fetches the thread's messages and splits them into user and
// assistant turns in chronological order. The reply is the newest assistant
// message.
func (s *OrchestratorService) collectHistory(ctx context.Context, threadRef string) (reply string, userMsgs, assistantMsgs []conversation.Message, err error) {
	msgs, err := s.ai.ListMessages(ctx, threadRef)
	if err != nil {
		return "", nil, nil, remoteErr("list messages", err)
	}
	if len(msgs) == 0 {
		return "", nil, nil, fmt.Errorf("thread %s has no messages: %w", threadRef, domain.ErrRemote)
	}

	// Messages arrive newest first; walk backwards for chronological order.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := conversation.Message{Content: msgs[i].Content, Timestamp: msgs[i].CreatedAt}
		if msgs[i].Role == "assistant" {
			assistantMsgs = append(assistantMsgs, m)
		} else {
			userMsgs = append(userMsgs, m)
		}
	}

	if msgs[0].Role != "assistant" {
		return "", nil, nil, fmt.Errorf("newest thread message is not an assistant reply: %w", domain.ErrRemote)
	}
	return msgs[0].Content, userMsgs, assistantMsgs, nil
}

// refreshCache invalidates the stale transcript and refreshes the thread
// binding after a persisted exchange.
func (s *OrchestratorService) refreshCache(ctx context.Context, sess conversation.Session, threadRef string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, transcriptKey(sess.UserID, sess.Name)); err != nil {
		slog.Debug("transcript invalidate failed", "error", err)
	}
	if err := s.cache.Set(ctx, threadKey(sess.UserID, sess.Name), []byte(threadRef), 0); err != nil {
		slog.Debug("thread cache set failed", "error", err)
	}
}

func (s *OrchestratorService) broadcastEvent(ctx context.Context, eventType string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, eventType, payload)
}

func (s *OrchestratorService) publish(ctx context.Context, subject string, payload any) {
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

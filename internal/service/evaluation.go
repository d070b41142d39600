package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caadev/tutortrainer/internal/adapter/otel"
	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/domain/evaluation"
	"github.com/caadev/tutortrainer/internal/port/assistant"
	"github.com/caadev/tutortrainer/internal/port/database"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

// evaluationPrompt frames the transcript for the evaluator assistant.
const evaluationPrompt = "Evaluate the following tutoring conversation:\n\n"

// EvaluationService grades stored transcripts with the evaluator assistant.
type EvaluationService struct {
	db    database.Store
	ai    assistant.Client
	queue messagequeue.Queue
	cfg   config.Assistants
}

// NewEvaluationService creates a new EvaluationService. queue may be nil.
func NewEvaluationService(db database.Store, ai assistant.Client, q messagequeue.Queue, cfg config.Assistants) *EvaluationService {
	return &EvaluationService{db: db, ai: ai, queue: q, cfg: cfg}
}

// Evaluate renders the conversation's transcript, runs the evaluator
// assistant against it on a throwaway thread, extracts the quality and
// confidence scores, and persists the result.
func (s *EvaluationService) Evaluate(ctx context.Context, userID int, name string) (*evaluation.Evaluation, error) {
	if s.cfg.Evaluator == "" {
		return nil, fmt.Errorf("no evaluator assistant configured: %w", domain.ErrValidation)
	}

	conv, err := s.db.GetConversation(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	transcript := conversation.FormatTranscript(conv)

	ctx, span := otel.StartEvaluationSpan(ctx, userID, name)
	defer span.End()

	// Evaluations run on a one-shot thread so grading requests never leak
	// into the student's conversation history.
	threadRef, err := s.ai.CreateThread(ctx)
	if err != nil {
		return nil, remoteErr("create evaluation thread", err)
	}
	if err := s.ai.PostMessage(ctx, threadRef, "user", evaluationPrompt+transcript); err != nil {
		return nil, remoteErr("post transcript", err)
	}
	runRef, err := s.ai.StartRun(ctx, threadRef, s.cfg.Evaluator)
	if err != nil {
		return nil, remoteErr("start evaluation run", err)
	}
	if err := s.waitForRun(ctx, threadRef, runRef); err != nil {
		return nil, err
	}

	msgs, err := s.ai.ListMessages(ctx, threadRef)
	if err != nil {
		return nil, remoteErr("list evaluation messages", err)
	}
	if len(msgs) == 0 || msgs[0].Role != "assistant" {
		return nil, fmt.Errorf("evaluator produced no reply: %w", domain.ErrRemote)
	}

	quality, confidence, text := evaluation.ExtractScores(msgs[0].Content)
	e := &evaluation.Evaluation{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		Quality:    quality,
		Confidence: confidence,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.CreateEvaluation(ctx, e); err != nil {
		return nil, fmt.Errorf("persist evaluation: %w", err)
	}

	s.publishEvaluated(ctx, e)
	slog.Info("conversation evaluated", "user_id", userID, "conversation", name,
		"quality", quality, "confidence", confidence)
	return e, nil
}

// List returns stored evaluations for a conversation.
func (s *EvaluationService) List(ctx context.Context, userID int, name string) ([]evaluation.Evaluation, error) {
	return s.db.ListEvaluations(ctx, userID, name)
}

// waitForRun polls with the same backoff policy as the orchestrator.
func (s *EvaluationService) waitForRun(ctx context.Context, threadRef, runRef string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	interval := s.cfg.PollInterval
	for {
		status, err := s.ai.RunStatus(ctx, threadRef, runRef)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("evaluation run %s: %w", runRef, domain.ErrRunTimeout)
			}
			return remoteErr("evaluation run status", err)
		}
		if status == assistant.StatusCompleted {
			return nil
		}
		if assistant.TerminalFailure(status) {
			return fmt.Errorf("evaluation run %s ended with status %s: %w", runRef, status, domain.ErrRemote)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("evaluation run %s: %w", runRef, domain.ErrRunTimeout)
		case <-time.After(interval):
		}
		interval *= 2
		if interval > s.cfg.PollMaxInterval {
			interval = s.cfg.PollMaxInterval
		}
	}
}

func (s *EvaluationService) publishEvaluated(ctx context.Context, e *evaluation.Evaluation) {
	if s.queue == nil {
		return
	}
	payload := messagequeue.ConversationEvaluatedPayload{
		UserID:     e.UserID,
		Name:       e.Name,
		Quality:    e.Quality,
		Confidence: e.Confidence,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal evaluated payload", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectConversationEvaluated, data); err != nil {
		slog.Error("publish evaluated event", "error", err)
	}
}

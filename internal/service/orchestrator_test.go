package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caadev/tutortrainer/internal/adapter/memory"
	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/port/assistant"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

func testSession() conversation.Session {
	return conversation.Session{
		UserID:   123,
		Username: "Ana",
		Subject:  conversation.SubjectMath,
		Mode:     conversation.ModeTutor,
		Name:     "Math Tutor Conversation 1",
	}
}

func TestGenerateResponseFirstExchange(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("4. Would you like to try a harder one?")
	q := newFakeQueue()
	svc := NewOrchestratorService(db, ai, nil, nil, q, nil, testAssistantsConfig())
	ctx := context.Background()

	reply, err := svc.GenerateResponse(ctx, testSession(), "what is 2+2")
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if reply != "4. Would you like to try a harder one?" {
		t.Errorf("reply = %q", reply)
	}

	// The exchange is persisted under the session's name.
	conv, err := db.GetConversation(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("GetConversation after exchange: %v", err)
	}
	if len(conv.UserMessages) != 1 || conv.UserMessages[0].Content != "what is 2+2" {
		t.Errorf("user messages = %+v", conv.UserMessages)
	}
	if len(conv.AssistantMessages) != 1 {
		t.Errorf("assistant messages = %+v", conv.AssistantMessages)
	}
	if conv.ThreadRef == "" {
		t.Error("conversation has no thread ref")
	}

	// Tutor mode routes to the subject-independent tutor assistant.
	if len(ai.runs) != 1 || ai.runs[0] != "asst_tutor" {
		t.Errorf("runs = %v, want [asst_tutor]", ai.runs)
	}

	// First contact publishes created and message events.
	if q.count(messagequeue.SubjectConversationCreated) != 1 {
		t.Errorf("created events = %d, want 1", q.count(messagequeue.SubjectConversationCreated))
	}
	if q.count(messagequeue.SubjectConversationMessage) != 1 {
		t.Errorf("message events = %d, want 1", q.count(messagequeue.SubjectConversationMessage))
	}
}

func TestGenerateResponseReusesThread(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("first reply", "second reply")
	q := newFakeQueue()
	svc := NewOrchestratorService(db, ai, nil, nil, q, nil, testAssistantsConfig())
	ctx := context.Background()

	if _, err := svc.GenerateResponse(ctx, testSession(), "hello"); err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	first, err := db.GetConversation(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("get after first: %v", err)
	}

	reply, err := svc.GenerateResponse(ctx, testSession(), "and again")
	if err != nil {
		t.Fatalf("second exchange: %v", err)
	}
	if reply != "second reply" {
		t.Errorf("reply = %q, want %q", reply, "second reply")
	}

	second, err := db.GetConversation(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("get after second: %v", err)
	}
	if second.ThreadRef != first.ThreadRef {
		t.Errorf("thread ref changed: %q then %q", first.ThreadRef, second.ThreadRef)
	}
	if len(second.UserMessages) != 2 || len(second.AssistantMessages) != 2 {
		t.Errorf("history = %d user / %d assistant turns, want 2/2",
			len(second.UserMessages), len(second.AssistantMessages))
	}

	// Only the first exchange announces creation.
	if q.count(messagequeue.SubjectConversationCreated) != 1 {
		t.Errorf("created events = %d, want 1", q.count(messagequeue.SubjectConversationCreated))
	}
	if q.count(messagequeue.SubjectConversationMessage) != 2 {
		t.Errorf("message events = %d, want 2", q.count(messagequeue.SubjectConversationMessage))
	}
}

func TestGenerateResponseTuteeAssistantPerSubject(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("ok")
	svc := NewOrchestratorService(db, ai, nil, nil, nil, nil, testAssistantsConfig())

	sess := testSession()
	sess.Mode = conversation.ModeTutee
	sess.Name = "Math Tutee Conversation 1"

	if _, err := svc.GenerateResponse(context.Background(), sess, "explain fractions"); err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if len(ai.runs) != 1 || ai.runs[0] != "asst_tutee_math" {
		t.Errorf("runs = %v, want [asst_tutee_math]", ai.runs)
	}
}

func TestGenerateResponseUnconfiguredSubject(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("ok")
	svc := NewOrchestratorService(db, ai, nil, nil, nil, nil, testAssistantsConfig())

	sess := testSession()
	sess.Subject = conversation.SubjectNursing
	sess.Mode = conversation.ModeTutee
	sess.Name = "Nursing Tutee Conversation 1"

	_, err := svc.GenerateResponse(context.Background(), sess, "hi")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unconfigured assistant, got %v", err)
	}
}

func TestGenerateResponseInvalidSession(t *testing.T) {
	svc := NewOrchestratorService(memory.NewStore(), newFakeAssistant(), nil, nil, nil, nil, testAssistantsConfig())

	sess := testSession()
	sess.Mode = "Lecture"

	_, err := svc.GenerateResponse(context.Background(), sess, "hi")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown mode, got %v", err)
	}
}

func TestGenerateResponseEmptyMessage(t *testing.T) {
	svc := NewOrchestratorService(memory.NewStore(), newFakeAssistant(), nil, nil, nil, nil, testAssistantsConfig())

	_, err := svc.GenerateResponse(context.Background(), testSession(), "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty message, got %v", err)
	}
}

func TestGenerateResponseRunFailure(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("never delivered")
	ai.runStatus = []string{"in_progress", assistant.StatusFailed}
	svc := NewOrchestratorService(db, ai, nil, nil, nil, nil, testAssistantsConfig())

	_, err := svc.GenerateResponse(context.Background(), testSession(), "hi")
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote for failed run, got %v", err)
	}

	// Nothing is persisted for a failed exchange.
	if _, err := db.GetConversation(context.Background(), 123, "Math Tutor Conversation 1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no stored conversation, got %v", err)
	}
}

func TestGenerateResponseAssistantCallFailures(t *testing.T) {
	// Any failing call to the assistant service surfaces as a remote error,
	// not as an unclassified internal one.
	cases := []struct {
		label string
		setup func(*fakeAssistant)
	}{
		{"create thread", func(f *fakeAssistant) { f.createThreadErr = errors.New("connection refused") }},
		{"post message", func(f *fakeAssistant) { f.postMessageErr = errors.New("connection refused") }},
		{"start run", func(f *fakeAssistant) { f.startRunErr = errors.New("connection refused") }},
	}
	for _, tc := range cases {
		db := memory.NewStore()
		ai := newFakeAssistant("never delivered")
		tc.setup(ai)
		svc := NewOrchestratorService(db, ai, nil, nil, nil, nil, testAssistantsConfig())

		_, err := svc.GenerateResponse(context.Background(), testSession(), "hi")
		if !errors.Is(err, domain.ErrRemote) {
			t.Errorf("%s failure: expected ErrRemote, got %v", tc.label, err)
		}
	}
}

func TestGenerateResponseRunTimeout(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("never delivered")
	ai.runStatus = []string{"in_progress"} // never progresses

	cfg := testAssistantsConfig()
	cfg.RunTimeout = 20 * time.Millisecond
	svc := NewOrchestratorService(db, ai, nil, nil, nil, nil, cfg)

	_, err := svc.GenerateResponse(context.Background(), testSession(), "hi")
	if !errors.Is(err, domain.ErrRunTimeout) {
		t.Fatalf("expected ErrRunTimeout, got %v", err)
	}
}

func TestGenerateResponseRefreshesCache(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("reply")
	c := newFakeCache()
	svc := NewOrchestratorService(db, ai, c, nil, nil, nil, testAssistantsConfig())
	ctx := context.Background()

	c.data[transcriptKey(123, "Math Tutor Conversation 1")] = []byte("stale")

	if _, err := svc.GenerateResponse(ctx, testSession(), "hi"); err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}

	if _, ok := c.data[transcriptKey(123, "Math Tutor Conversation 1")]; ok {
		t.Error("stale transcript survived the exchange")
	}
	threadRef, ok := c.data[threadKey(123, "Math Tutor Conversation 1")]
	if !ok || len(threadRef) == 0 {
		t.Error("thread binding was not cached")
	}
}

func TestGenerateResponseUsesCachedThreadBinding(t *testing.T) {
	db := memory.NewStore()
	ai := newFakeAssistant("reply")
	c := newFakeCache()
	q := newFakeQueue()
	svc := NewOrchestratorService(db, ai, c, nil, q, nil, testAssistantsConfig())
	ctx := context.Background()

	// A cached binding short-circuits both the store lookup and the remote
	// thread verify, even when the store has no row yet.
	c.data[threadKey(123, "Math Tutor Conversation 1")] = []byte("thread_cached")

	if _, err := svc.GenerateResponse(ctx, testSession(), "hi"); err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}

	conv, err := db.GetConversation(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.ThreadRef != "thread_cached" {
		t.Errorf("thread ref = %q, want the cached binding", conv.ThreadRef)
	}
	if got := q.count(messagequeue.SubjectConversationCreated); got != 0 {
		t.Errorf("cached binding produced %d created events, want 0", got)
	}
}

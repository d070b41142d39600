package openai_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caadev/tutortrainer/internal/adapter/openai"
	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/resilience"
)

func TestCreateThread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/threads" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth: %q", got)
		}
		if got := r.Header.Get("OpenAI-Beta"); got != "assistants=v2" {
			t.Fatalf("unexpected beta header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"thread_abc123"}`))
	}))
	defer srv.Close()

	client := openai.NewClient(srv.URL, "test-key")
	ref, err := client.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	if ref != "thread_abc123" {
		t.Fatalf("expected thread_abc123, got %q", ref)
	}
}

func TestStartRunAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads/thread_1/runs":
			_, _ = w.Write([]byte(`{"id":"run_1","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/threads/thread_1/runs/run_1":
			_, _ = w.Write([]byte(`{"id":"run_1","status":"completed"}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := openai.NewClient(srv.URL, "test-key")
	runRef, err := client.StartRun(context.Background(), "thread_1", "asst_1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if runRef != "run_1" {
		t.Fatalf("expected run_1, got %q", runRef)
	}

	status, err := client.RunStatus(context.Background(), "thread_1", "run_1")
	if err != nil {
		t.Fatalf("RunStatus failed: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected completed, got %q", status)
	}
}

func TestListMessagesExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/threads/thread_1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"role":"assistant","created_at":200,"content":[{"type":"text","text":{"value":"The answer is 4."}}]},
			{"role":"user","created_at":100,"content":[{"type":"text","text":{"value":"What is 2+2?"}}]}
		]}`))
	}))
	defer srv.Close()

	client := openai.NewClient(srv.URL, "test-key")
	msgs, err := client.ListMessages(context.Background(), "thread_1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "assistant" || msgs[0].Content != "The answer is 4." {
		t.Fatalf("unexpected newest message: %+v", msgs[0])
	}
	if msgs[1].CreatedAt != 100 {
		t.Fatalf("expected created_at 100, got %d", msgs[1].CreatedAt)
	}
}

func TestPostMessageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer srv.Close()

	client := openai.NewClient(srv.URL, "test-key")
	err := client.PostMessage(context.Background(), "thread_1", "user", "hi")
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote for 400 response, got %v", err)
	}
}

func TestTransportErrorIsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := openai.NewClient(srv.URL, "test-key")
	_, err := client.CreateThread(context.Background())
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("expected ErrRemote for transport failure, got %v", err)
	}
}

func TestBreakerRejectsAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := openai.NewClient(srv.URL, "test-key")
	client.SetBreaker(resilience.NewBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		if err := client.RetrieveThread(context.Background(), "thread_1"); err == nil {
			t.Fatal("expected error")
		}
	}

	err := client.RetrieveThread(context.Background(), "thread_1")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !errors.Is(err, domain.ErrRemote) {
		t.Fatalf("open breaker should classify as remote failure, got %v", err)
	}
}

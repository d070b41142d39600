package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caadev/tutortrainer/internal/config"
	"github.com/caadev/tutortrainer/internal/port/assistant"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

// fakeAssistant scripts the remote assistant service for tests. Each posted
// user message is answered with the next reply from the replies queue once
// the run completes.
type fakeAssistant struct {
	mu sync.Mutex

	replies    []string
	runStatus  []string // statuses returned by successive RunStatus calls
	statusIdx  int
	nextThread int

	threads map[string][]assistant.ThreadMessage
	clock   int64

	createThreadErr error
	postMessageErr  error
	startRunErr     error

	posted []string
	runs   []string // assistant refs passed to StartRun
}

func newFakeAssistant(replies ...string) *fakeAssistant {
	return &fakeAssistant{
		replies:   replies,
		runStatus: []string{assistant.StatusCompleted},
		threads:   make(map[string][]assistant.ThreadMessage),
	}
}

func (f *fakeAssistant) CreateThread(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createThreadErr != nil {
		return "", f.createThreadErr
	}
	f.nextThread++
	ref := fmt.Sprintf("thread_fake_%d", f.nextThread)
	f.threads[ref] = nil
	return ref, nil
}

func (f *fakeAssistant) RetrieveThread(_ context.Context, threadRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadRef]; !ok {
		// Unknown refs are accepted as pre-existing remote threads.
		f.threads[threadRef] = nil
	}
	return nil
}

func (f *fakeAssistant) PostMessage(_ context.Context, threadRef, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postMessageErr != nil {
		return f.postMessageErr
	}
	f.clock++
	f.threads[threadRef] = append(f.threads[threadRef], assistant.ThreadMessage{
		Role: role, Content: content, CreatedAt: f.clock,
	})
	f.posted = append(f.posted, content)
	return nil
}

func (f *fakeAssistant) StartRun(_ context.Context, threadRef, assistantRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startRunErr != nil {
		return "", f.startRunErr
	}
	f.runs = append(f.runs, assistantRef)
	// Queue the scripted reply so it lands once the run "completes".
	if len(f.replies) > 0 {
		f.clock++
		f.threads[threadRef] = append(f.threads[threadRef], assistant.ThreadMessage{
			Role: "assistant", Content: f.replies[0], CreatedAt: f.clock,
		})
		f.replies = f.replies[1:]
	}
	return fmt.Sprintf("run_fake_%d", len(f.runs)), nil
}

func (f *fakeAssistant) RunStatus(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.runStatus[f.statusIdx]
	if f.statusIdx < len(f.runStatus)-1 {
		f.statusIdx++
	}
	return status, nil
}

func (f *fakeAssistant) ListMessages(_ context.Context, threadRef string) ([]assistant.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.threads[threadRef]
	// Newest first, like the remote service.
	out := make([]assistant.ThreadMessage, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out, nil
}

// fakeQueue records published messages.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{published: make(map[string][][]byte)}
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published[subject])
}

// fakeCache is a map-backed cache recording deletes.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// testAssistantsConfig returns assistant configuration with fast polling for
// tests.
func testAssistantsConfig() config.Assistants {
	return config.Assistants{
		URL:   "http://localhost",
		Tutor: "asst_tutor",
		Tutee: map[string]string{
			"Math": "asst_tutee_math",
		},
		Generate: map[string]string{
			"Math": "asst_generate_math",
		},
		Evaluator:       "asst_evaluator",
		PollInterval:    time.Millisecond,
		PollMaxInterval: 5 * time.Millisecond,
		RunTimeout:      time.Second,
	}
}

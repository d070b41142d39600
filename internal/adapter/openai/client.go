// Package openai provides an HTTP client for the OpenAI Assistants API,
// implementing the assistant port: thread lifecycle, message posting, and
// run polling.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/port/assistant"
	"github.com/caadev/tutortrainer/internal/resilience"
)

// Client talks to an Assistants-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new assistants client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// thread is the wire shape of a thread object.
type thread struct {
	ID string `json:"id"`
}

// run is the wire shape of a run object.
type run struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// message is the wire shape of a thread message. Content parts other than
// text are ignored.
type message struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
	CreatedAt int64 `json:"created_at"`
}

// CreateThread starts a new remote thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/threads", []byte(`{}`))
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	var t thread
	if err := json.Unmarshal(resp, &t); err != nil {
		return "", fmt.Errorf("unmarshal thread: %w", err)
	}
	return t.ID, nil
}

// RetrieveThread verifies a thread ref exists on the remote service.
func (c *Client) RetrieveThread(ctx context.Context, threadRef string) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/v1/threads/"+threadRef, nil); err != nil {
		return fmt.Errorf("retrieve thread %s: %w", threadRef, err)
	}
	return nil
}

// PostMessage appends a message to the thread.
func (c *Client) PostMessage(ctx context.Context, threadRef, role, content string) error {
	body, err := json.Marshal(map[string]string{"role": role, "content": content})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/threads/"+threadRef+"/messages", body); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// StartRun invokes the given assistant against the thread.
func (c *Client) StartRun(ctx context.Context, threadRef, assistantRef string) (string, error) {
	body, err := json.Marshal(map[string]string{"assistant_id": assistantRef})
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/threads/"+threadRef+"/runs", body)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	var r run
	if err := json.Unmarshal(resp, &r); err != nil {
		return "", fmt.Errorf("unmarshal run: %w", err)
	}
	return r.ID, nil
}

// RunStatus reports the current status of a run.
func (c *Client) RunStatus(ctx context.Context, threadRef, runRef string) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/threads/"+threadRef+"/runs/"+runRef, nil)
	if err != nil {
		return "", fmt.Errorf("run status: %w", err)
	}

	var r run
	if err := json.Unmarshal(resp, &r); err != nil {
		return "", fmt.Errorf("unmarshal run: %w", err)
	}
	return r.Status, nil
}

// ListMessages returns the thread's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadRef string) ([]assistant.ThreadMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/threads/"+threadRef+"/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var result struct {
		Data []message `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}

	msgs := make([]assistant.ThreadMessage, 0, len(result.Data))
	for _, m := range result.Data {
		var text string
		for _, part := range m.Content {
			if part.Type == "text" {
				text = part.Text.Value
				break
			}
		}
		msgs = append(msgs, assistant.ThreadMessage{
			Role:      m.Role,
			Content:   text,
			CreatedAt: m.CreatedAt,
		})
	}
	return msgs, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("OpenAI-Beta", "assistants=v2")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %v: %w", err, domain.ErrRemote)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %v: %w", err, domain.ErrRemote)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("assistants API error %d: %s: %w", resp.StatusCode, string(data), domain.ErrRemote)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			// An open breaker means the remote service is unavailable.
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, fmt.Errorf("%w: %w", err, domain.ErrRemote)
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

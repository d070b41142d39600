// Package assistant defines the port for the remote conversational-AI
// capability: thread lifecycle, message posting, and run polling.
package assistant

import "context"

// Run statuses reported by the remote service. Completed is the only
// successful terminal status; Failed, Cancelled, and Expired are terminal
// failures. Anything else means the run is still in progress.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// TerminalFailure reports whether a run status is a terminal non-success.
func TerminalFailure(status string) bool {
	switch status {
	case StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ThreadMessage is one message as stored on the remote thread. CreatedAt is
// epoch seconds assigned by the remote service.
type ThreadMessage struct {
	Role      string
	Content   string
	CreatedAt int64
}

// Client is the port interface for the assistant service.
type Client interface {
	// CreateThread starts a new remote thread and returns its ref.
	CreateThread(ctx context.Context) (string, error)
	// RetrieveThread verifies an existing thread ref with the remote service.
	RetrieveThread(ctx context.Context, threadRef string) error
	// PostMessage appends a message to the thread.
	PostMessage(ctx context.Context, threadRef, role, content string) error
	// StartRun invokes the given assistant against the thread and returns a run ref.
	StartRun(ctx context.Context, threadRef, assistantRef string) (string, error)
	// RunStatus reports the current status of a run.
	RunStatus(ctx context.Context, threadRef, runRef string) (string, error)
	// ListMessages returns the thread's messages, newest first.
	ListMessages(ctx context.Context, threadRef string) ([]ThreadMessage, error)
}

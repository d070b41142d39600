// Package broadcast defines the port for pushing real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends typed events to every connected client, such as run
// progress and assistant replies streamed back to the desktop GUI.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

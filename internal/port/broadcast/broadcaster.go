// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Audience restricts which clients receive an event. The zero value reaches
// every client.
type Audience struct {
	UserID         string
	OrganizationID string
}

// Broadcaster sends real-time events to connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to every client in the audience.
	BroadcastEvent(ctx context.Context, to Audience, eventType string, payload any)
}

// Nop discards every event.
type Nop struct{}

// BroadcastEvent implements Broadcaster.
func (Nop) BroadcastEvent(context.Context, Audience, string, any) {}

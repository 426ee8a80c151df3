package core

import (
	"context"
)

// Sender publishes outbound documents on the topic mapped to an event.
type Sender interface {
	// Send publishes a plain text payload.
	Send(ctx context.Context, event EventType, payload string) error

	// SendFields publishes a small structured document of named scalar fields.
	SendFields(ctx context.Context, event EventType, fields map[string]any) error
}

// MessageHandler receives one inbound message already mapped to its event.
type MessageHandler func(ctx context.Context, event EventType, payload []byte)

// Session is the messaging layer of the link.
type Session interface {
	Sender

	// Connect establishes a new messaging session. It blocks until the broker accepts or the
	// connect timeout expires.
	Connect(ctx context.Context) error

	IsConnected() bool

	// Subscribe subscribes to the topic mapped to an inbound event.
	Subscribe(ctx context.Context, event EventType) error

	// Service delivers queued inbound messages to handler in arrival order and returns how many
	// were delivered.
	Service(ctx context.Context, handler MessageHandler) int
}

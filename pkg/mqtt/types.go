package mqtt

import (
	"context"
)

// MessageHandler defines the callback function for processing received MQTT messages.
// It is invoked on the client's reader goroutine and must not block.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client defines the interface for a generic MQTT client.
// It abstracts the underlying paho implementation details.
//
// Unlike a self-healing connection manager, the client never reconnects on its own:
// the owner decides when to call Connect again after IsConnected turns false.
type Client interface {
	// Connect dials the broker and performs the MQTT handshake.
	// It blocks until the CONNACK is received or the connect timeout expires.
	Connect(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a specific topic filter and sends the SUBSCRIBE packet.
	// Handlers survive reconnects but the SUBSCRIBE must be sent again on every new session.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Unsubscribe removes the handler and sends an UNSUBSCRIBE packet.
	Unsubscribe(ctx context.Context, topic string) error

	// IsConnected returns true if the client is currently connected.
	IsConnected() bool
}

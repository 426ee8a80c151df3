package hub

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
	"github.com/autopeer-io/cellrelay/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/cellrelay/pkg/mqtt/topic"
)

// InboxSize bounds the number of inbound messages waiting for the control loop.
const InboxSize = 16

type message struct {
	event   core.EventType
	payload []byte
}

// Hub binds the agent's events to MQTT topics of one device. Inbound messages arrive on the
// client's reader goroutine and wait in the inbox until the control loop services them.
type Hub struct {
	deviceID string

	mc     mqtt.Client
	topics *mqtttopic.Builder
	inbox  chan message
}

var _ core.Session = (*Hub)(nil)

func New(deviceID string, client mqtt.Client, topicbuilder *mqtttopic.Builder) *Hub {
	return &Hub{
		deviceID: deviceID,
		mc:       client,
		topics:   topicbuilder,
		inbox:    make(chan message, InboxSize),
	}
}

// Topic returns the full topic of an event.
func (b *Hub) Topic(event core.EventType) (string, error) {
	segment, ok := events[event]
	if !ok {
		return "", fmt.Errorf("unmapped event: %s", event)
	}
	return b.topics.Build(segment, b.deviceID), nil
}

func (b *Hub) Send(ctx context.Context, event core.EventType, payload string) error {
	return b.publish(ctx, event, []byte(payload))
}

func (b *Hub) SendFields(ctx context.Context, event core.EventType, fields map[string]any) error {
	doc, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", event, err)
	}
	payload, err := protojson.Marshal(doc)
	if err != nil {
		return err
	}
	return b.publish(ctx, event, payload)
}

func (b *Hub) publish(ctx context.Context, event core.EventType, payload []byte) error {
	topic, err := b.Topic(event)
	if err != nil {
		return err
	}
	if err := b.mc.Publish(ctx, topic, 1, retained[event], payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	log.Debug("Published", "topic", topic, "bytes", len(payload))
	return nil
}

func (b *Hub) Connect(ctx context.Context) error {
	return b.mc.Connect(ctx)
}

func (b *Hub) IsConnected() bool {
	return b.mc.IsConnected()
}

func (b *Hub) Subscribe(ctx context.Context, event core.EventType) error {
	topic, err := b.Topic(event)
	if err != nil {
		return err
	}
	return b.mc.Subscribe(ctx, topic, 1, func(_ context.Context, _ string, payload []byte) {
		msg := message{event: event, payload: append([]byte(nil), payload...)}
		select {
		case b.inbox <- msg:
		default:
			log.Warn("Inbox full, dropping inbound message", "topic", topic)
		}
	})
}

// Service only delivers what was queued when it was called, so a slow handler cannot keep the
// control loop here indefinitely.
func (b *Hub) Service(ctx context.Context, handler core.MessageHandler) int {
	pending := len(b.inbox)
	for i := 0; i < pending; i++ {
		msg := <-b.inbox
		handler(ctx, msg.event, msg.payload)
	}
	return pending
}

func (b *Hub) Stop() {
	log.Info("Disconnecting MQTT client...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.mc.Disconnect(ctx)
}

package core

type EventType string

const (
	// Inbound.
	EventRelayCommand EventType = "relay.command"
	EventOTATrigger   EventType = "ota.trigger"

	// Outbound.
	EventStatus     EventType = "node.status"
	EventHeartbeat  EventType = "node.heartbeat"
	EventCommandAck EventType = "command.ack"
)

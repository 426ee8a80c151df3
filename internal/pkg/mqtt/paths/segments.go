package paths

// Topic segments for the relay node protocol.
// These constants define the routing contract between the backend and the node.
// Changing these values will break compatibility with deployed nodes.

// Downstream: Backend -> Node
const (
	// Command is the topic segment for relay and maintenance commands.
	// Payload: plain text ("relay1on", "relay1off", "check_update").
	// Pattern: [{root}/]cmd/{deviceID}
	Command = "cmd"

	// OTA is the topic segment for firmware update triggers.
	// Payload: plain text ("update").
	// Pattern: [{root}/]ota/{deviceID}
	OTA = "ota"
)

// Upstream: Node -> Backend
const (
	// Status is the topic segment for connection, firmware and update status.
	// Pattern: [{root}/]status/{deviceID}
	Status = "status"

	// Heartbeat is the topic segment for periodic retained health documents.
	// Pattern: [{root}/]heartbeat/{deviceID}
	Heartbeat = "heartbeat"

	// Ack is the topic segment for command acknowledgements.
	// Pattern: [{root}/]ack/{deviceID}
	Ack = "ack"
)

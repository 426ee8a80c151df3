package hub

import (
	"github.com/autopeer-io/cellrelay/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
)

var (
	events   = make(map[core.EventType]string)
	retained = make(map[core.EventType]bool)
)

func init() {
	events[core.EventRelayCommand] = paths.Command
	events[core.EventOTATrigger] = paths.OTA
	events[core.EventStatus] = paths.Status
	events[core.EventHeartbeat] = paths.Heartbeat
	events[core.EventCommandAck] = paths.Ack

	retained[core.EventHeartbeat] = true
}

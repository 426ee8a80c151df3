package dispatch

import (
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
)

// PayloadBufferSize is the inbound payload buffer, including the terminator slot. Longer
// payloads are truncated to PayloadBufferSize-1 bytes.
const PayloadBufferSize = 32

// Wire literals of the command and OTA topics.
const (
	CmdRelayOn     = "relay1on"
	CmdRelayOff    = "relay1off"
	CmdCheckUpdate = "check_update"
	CmdStartUpdate = "update"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindRelayOn
	KindRelayOff
	KindCheckUpdate
	KindStartUpdate
)

func (k Kind) String() string {
	switch k {
	case KindRelayOn:
		return "relay_on"
	case KindRelayOff:
		return "relay_off"
	case KindCheckUpdate:
		return "check_update"
	case KindStartUpdate:
		return "start_update"
	default:
		return "unknown"
	}
}

// Command is one decoded inbound message.
type Command struct {
	Kind Kind
	// Raw is the truncated payload text.
	Raw string
}

var commandSets = map[core.EventType]map[string]Kind{
	core.EventRelayCommand: {
		CmdRelayOn:     KindRelayOn,
		CmdRelayOff:    KindRelayOff,
		CmdCheckUpdate: KindCheckUpdate,
	},
	core.EventOTATrigger: {
		CmdStartUpdate: KindStartUpdate,
	},
}

// Decode routes by topic first, then matches the payload case-sensitively against that topic's
// command set.
func Decode(event core.EventType, payload []byte) Command {
	if len(payload) > PayloadBufferSize-1 {
		payload = payload[:PayloadBufferSize-1]
	}
	raw := string(payload)

	if kind, ok := commandSets[event][raw]; ok {
		return Command{Kind: kind, Raw: raw}
	}
	return Command{Kind: KindUnknown, Raw: raw}
}

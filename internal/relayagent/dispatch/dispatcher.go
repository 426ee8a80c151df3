package dispatch

import (
	"context"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

const (
	AckCheckingForUpdates = "checking_for_updates"
	AckStartingOTA        = "starting_ota_update"
)

// Updater is the part of the firmware updater the dispatcher triggers.
type Updater interface {
	CheckForUpdates(ctx context.Context)
	PerformUpdate(ctx context.Context)
}

// Dispatcher turns inbound messages into relay actions and update triggers.
type Dispatcher struct {
	actuator Actuator
	updater  Updater
	sender   core.Sender

	lastCommand string
}

func NewDispatcher(actuator Actuator, updater Updater, sender core.Sender) *Dispatcher {
	return &Dispatcher{
		actuator: actuator,
		updater:  updater,
		sender:   sender,
	}
}

// LastCommand returns the most recent relay command that actuated successfully, empty before
// the first one.
func (d *Dispatcher) LastCommand() string {
	return d.lastCommand
}

// OnMessage handles one inbound message synchronously. It satisfies core.MessageHandler.
func (d *Dispatcher) OnMessage(ctx context.Context, event core.EventType, payload []byte) {
	cmd := Decode(event, payload)
	metrics.CommandsTotal.WithLabelValues(cmd.Kind.String()).Inc()
	log.Info("Command received", "event", event, "command", cmd.Raw, "kind", cmd.Kind.String())

	switch cmd.Kind {
	case KindRelayOn:
		d.relay(ctx, cmd, d.actuator.RelayOn)
	case KindRelayOff:
		d.relay(ctx, cmd, d.actuator.RelayOff)
	case KindCheckUpdate:
		d.ack(ctx, AckCheckingForUpdates)
		d.updater.CheckForUpdates(ctx)
	case KindStartUpdate:
		d.ack(ctx, AckStartingOTA)
		d.updater.PerformUpdate(ctx)
	default:
		log.Warn("Ignoring unknown command", "event", event, "payload", cmd.Raw)
	}
}

func (d *Dispatcher) relay(ctx context.Context, cmd Command, pulse func(context.Context) error) {
	if err := pulse(ctx); err != nil {
		log.Error(err, "Relay actuation failed", "command", cmd.Raw)
		return
	}
	d.lastCommand = cmd.Raw
	d.ack(ctx, cmd.Raw)
}

func (d *Dispatcher) ack(ctx context.Context, text string) {
	if err := d.sender.Send(ctx, core.EventCommandAck, text); err != nil {
		log.Error(err, "Failed to publish acknowledgement", "ack", text)
	}
}

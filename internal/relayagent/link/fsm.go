package link

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	fsmutil "github.com/autopeer-io/cellrelay/internal/pkg/util/fsm"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// State of a single link layer.
type State string

const (
	Down       State = "down"
	Connecting State = "connecting"
	Up         State = "up"
)

const (
	// EventDial starts a recovery attempt.
	EventDial = "dial"
	// EventEstablished marks the layer usable, either after an attempt or when it is observed up.
	EventEstablished = "established"
	// EventFailed ends an unsuccessful attempt.
	EventFailed = "failed"
	// EventLost marks the layer unusable, observed directly or forced by a lower layer.
	EventLost = "lost"
)

const (
	LayerRadio   = "radio"
	LayerBearer  = "bearer"
	LayerSession = "session"
)

// layer is the transition table of one link layer. The session layer has no connecting state:
// its connect is a single blocking call.
type layer struct {
	name string
	*fsm.FSM
}

func newLayer(name string, withConnecting bool) *layer {
	l := &layer{name: name}

	down, connecting, up := string(Down), string(Connecting), string(Up)
	var events fsm.Events
	if withConnecting {
		events = fsm.Events{
			{Name: EventDial, Src: []string{down}, Dst: connecting},
			{Name: EventEstablished, Src: []string{down, connecting, up}, Dst: up},
			{Name: EventFailed, Src: []string{connecting}, Dst: down},
			{Name: EventLost, Src: []string{down, connecting, up}, Dst: down},
		}
	} else {
		events = fsm.Events{
			{Name: EventEstablished, Src: []string{down, up}, Dst: up},
			{Name: EventLost, Src: []string{down, up}, Dst: down},
		}
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(l.actionEnterState),
	}

	l.FSM = fsm.NewFSM(down, events, callbacks)
	metrics.LinkLayerUp.WithLabelValues(name).Set(0)
	return l
}

func (l *layer) actionEnterState(_ context.Context, e *fsm.Event) error {
	metrics.LinkLayerUp.WithLabelValues(l.name).Set(metrics.BoolGauge(e.Dst == string(Up)))
	log.Info("Link layer transition", "layer", l.name, "event", e.Event, "from", e.Src, "to", e.Dst)
	return nil
}

func (l *layer) state() State {
	return State(l.Current())
}

func (l *layer) fire(ctx context.Context, event string) {
	if err := fsmutil.Fire(ctx, l.FSM, event); err != nil {
		log.Error(err, "Invalid link layer transition", "layer", l.name, "event", event, "state", l.Current())
	}
}

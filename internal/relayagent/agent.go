package relayagent

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/relayagent/dispatch"
	"github.com/autopeer-io/cellrelay/internal/relayagent/hub"
	"github.com/autopeer-io/cellrelay/internal/relayagent/link"
	"github.com/autopeer-io/cellrelay/internal/relayagent/server"
	"github.com/autopeer-io/cellrelay/internal/relayagent/telemetry"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// Agent runs the relay node control loop.
type Agent struct {
	deviceID        string
	firmwareVersion string

	supervisor *link.Supervisor
	hub        *hub.Hub
	dispatcher *dispatch.Dispatcher
	scheduler  *telemetry.Scheduler
	server     *server.Server

	clock        clock.Clock
	loopInterval time.Duration

	// closers are released after the loop exits, in order.
	closers []io.Closer

	// state is the last composite link state, read by the readiness probe.
	state atomic.Pointer[link.LinkState]
}

func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting cpeer-relay-agent", "deviceID", a.deviceID, "firmwareVersion", a.firmwareVersion)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Start(ctx)
	})
	g.Go(func() error {
		a.loop(ctx)
		return nil
	})
	err := g.Wait()

	log.Info("Agent shutting down...")
	a.hub.Stop()
	for _, c := range a.closers {
		if cerr := c.Close(); cerr != nil {
			log.Error(cerr, "Failed to release resource")
		}
	}
	return err
}

func (a *Agent) loop(ctx context.Context) {
	a.supervisor.Boot(ctx)
	for {
		a.step(ctx)

		select {
		case <-ctx.Done():
			return
		case <-a.clock.After(a.loopInterval):
		}
	}
}

// step runs one control-loop iteration. Commands and timers are only serviced while every
// link layer is up.
func (a *Agent) step(ctx context.Context) {
	state := a.supervisor.Tick(ctx)
	a.state.Store(&state)
	if !state.Up() {
		return
	}

	if n := a.hub.Service(ctx, a.dispatcher.OnMessage); n > 0 {
		log.Debug("Serviced inbound messages", "count", n)
	}
	a.scheduler.Tick(ctx)
}

// Ready reports whether every link layer was up at the end of the last iteration.
func (a *Agent) Ready() (bool, string) {
	state := a.state.Load()
	if state == nil {
		return false, "booting"
	}
	return state.Up(), state.String()
}

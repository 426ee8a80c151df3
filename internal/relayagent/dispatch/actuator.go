package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
)

// Actuator executes the fixed relay pulse sequences. Both calls block for the pulse duration.
type Actuator interface {
	RelayOn(ctx context.Context) error
	RelayOff(ctx context.Context) error
}

type PulseActuator struct {
	gpio  core.GPIO
	pulse time.Duration
	clock clock.Clock
}

var _ Actuator = (*PulseActuator)(nil)

func NewPulseActuator(gpio core.GPIO, pulse time.Duration, clk clock.Clock) *PulseActuator {
	return &PulseActuator{gpio: gpio, pulse: pulse, clock: clk}
}

type level struct {
	out    core.Output
	active bool
}

// RelayOn pulses relay 1 together with the indicator, then releases both. If a line cannot be
// driven, every line of the sequence is released before the error is returned.
func (a *PulseActuator) RelayOn(ctx context.Context) error {
	if err := a.apply(level{core.Relay1, true}, level{core.Indicator, true}); err != nil {
		return errors.Join(err, a.release(core.Indicator, core.Relay1))
	}
	a.clock.Sleep(a.pulse)
	return a.release(core.Indicator, core.Relay1)
}

// RelayOff releases relay 1 and the indicator and pulses relay 2.
func (a *PulseActuator) RelayOff(ctx context.Context) error {
	if err := a.apply(level{core.Relay1, false}, level{core.Indicator, false}, level{core.Relay2, true}); err != nil {
		return errors.Join(err, a.release(core.Relay1, core.Indicator, core.Relay2))
	}
	a.clock.Sleep(a.pulse)
	return a.release(core.Relay2)
}

// apply drives the levels in order and stops at the first failure.
func (a *PulseActuator) apply(levels ...level) error {
	for _, l := range levels {
		if err := a.gpio.Write(l.out, l.active); err != nil {
			return fmt.Errorf("drive %s: %w", l.out, err)
		}
	}
	return nil
}

// release drives every output inactive, continuing past failures.
func (a *PulseActuator) release(outs ...core.Output) error {
	var errs []error
	for _, out := range outs {
		if err := a.gpio.Write(out, false); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", out, err))
		}
	}
	return errors.Join(errs...)
}

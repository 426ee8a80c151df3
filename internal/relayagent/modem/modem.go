package modem

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

// SignalUnknown is the CSQ value reported when no signal can be measured.
const SignalUnknown = 99

const (
	pollInterval   = 250 * time.Millisecond
	restartTimeout = 30 * time.Second
)

type Config struct {
	// CommandTimeout bounds ordinary AT commands.
	CommandTimeout time.Duration
	// AttachTimeout bounds bearer attach and activation.
	AttachTimeout time.Duration
}

// Modem drives a 3GPP cellular module over its AT command interface.
type Modem struct {
	cfg   Config
	at    *at
	clock clock.Clock
}

var _ core.Modem = (*Modem)(nil)

func New(port Port, cfg Config, clk clock.Clock) *Modem {
	return &Modem{
		cfg:   cfg,
		at:    &at{port: port, clock: clk, timeout: cfg.CommandTimeout},
		clock: clk,
	}
}

// Close releases the serial port.
func (m *Modem) Close() error {
	return m.at.port.Close()
}

// Restart resets the module and waits until it answers AT again.
func (m *Modem) Restart(ctx context.Context) error {
	if _, err := m.at.Command(ctx, "AT+CFUN=1,1", 0); err != nil {
		// Some modules reset before answering.
		log.Debug("Modem reset not acknowledged", "err", err)
	}

	deadline := m.clock.Now().Add(restartTimeout)
	for {
		if _, err := m.at.Command(ctx, "AT", time.Second); err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !m.clock.Now().Before(deadline) {
			return fmt.Errorf("modem did not answer after restart: %w", ErrTimeout)
		}
		m.clock.Sleep(pollInterval)
	}

	if _, err := m.at.Command(ctx, "ATE0", 0); err != nil {
		return fmt.Errorf("disable echo: %w", err)
	}
	log.Info("Modem ready")
	return nil
}

func (m *Modem) WaitForNetwork(ctx context.Context, timeout time.Duration, force bool) bool {
	deadline := m.clock.Now().Add(timeout)
	for {
		if m.IsNetworkConnected(ctx) && (!force || m.SignalQuality(ctx) != SignalUnknown) {
			return true
		}
		if ctx.Err() != nil || !m.clock.Now().Before(deadline) {
			return false
		}
		m.clock.Sleep(pollInterval)
	}
}

// IsNetworkConnected checks EPS registration first and falls back to circuit-switched
// registration for 2G modules.
func (m *Modem) IsNetworkConnected(ctx context.Context) bool {
	return m.registered(ctx, "AT+CEREG?", "+CEREG") || m.registered(ctx, "AT+CREG?", "+CREG")
}

// registered reports stat 1 (home) or 5 (roaming) from a "+CxREG: <n>,<stat>" response.
func (m *Modem) registered(ctx context.Context, cmd, prefix string) bool {
	lines, err := m.at.Command(ctx, cmd, 0)
	if err != nil {
		return false
	}
	vals, ok := field(lines, prefix)
	if !ok || len(vals) < 2 {
		return false
	}
	return vals[1] == "1" || vals[1] == "5"
}

type step struct {
	cmd     string
	timeout time.Duration
}

// AttachBearer defines PDP context 1, authenticates when a user is set, then attaches and
// activates the context.
func (m *Modem) AttachBearer(ctx context.Context, apn, user, password string) bool {
	steps := []step{{cmd: fmt.Sprintf(`AT+CGDCONT=1,"IP","%s"`, apn)}}
	if user != "" {
		steps = append(steps, step{cmd: fmt.Sprintf(`AT+CGAUTH=1,1,"%s","%s"`, user, password)})
	}
	steps = append(steps,
		step{cmd: "AT+CGATT=1", timeout: m.cfg.AttachTimeout},
		step{cmd: "AT+CGACT=1,1", timeout: m.cfg.AttachTimeout},
	)

	for _, st := range steps {
		if _, err := m.at.Command(ctx, st.cmd, st.timeout); err != nil {
			log.Error(err, "Bearer attach step failed")
			return false
		}
	}
	return m.IsBearerConnected(ctx)
}

func (m *Modem) IsBearerConnected(ctx context.Context) bool {
	lines, err := m.at.Command(ctx, "AT+CGACT?", 0)
	if err != nil {
		return false
	}
	for _, l := range lines {
		vals, ok := field([]string{l}, "+CGACT")
		if ok && len(vals) >= 2 && vals[0] == "1" && vals[1] == "1" {
			return true
		}
	}
	return false
}

func (m *Modem) SignalQuality(ctx context.Context) int {
	lines, err := m.at.Command(ctx, "AT+CSQ", 0)
	if err != nil {
		return SignalUnknown
	}
	vals, ok := field(lines, "+CSQ")
	if !ok {
		return SignalUnknown
	}
	rssi, err := strconv.Atoi(vals[0])
	if err != nil {
		return SignalUnknown
	}
	return rssi
}

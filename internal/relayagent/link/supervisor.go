package link

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

const (
	StatusConnected = "connected"

	// DocTypeFirmwareInfo tags the version document published on every new session.
	DocTypeFirmwareInfo = "firmware_info"
)

// LinkState is the composite state of the three link layers.
type LinkState struct {
	Radio   State
	Bearer  State
	Session State
}

// Up reports whether every layer is up.
func (s LinkState) Up() bool {
	return s.Radio == Up && s.Bearer == Up && s.Session == Up
}

func (s LinkState) String() string {
	return fmt.Sprintf("radio=%s bearer=%s session=%s", s.Radio, s.Bearer, s.Session)
}

// Config carries the recovery policy and the bearer credentials.
type Config struct {
	APN      string
	User     string
	Password string

	// NetworkTimeout bounds a single wait for radio registration.
	NetworkTimeout time.Duration
	// ForceSignal rejects a registration without a measurable signal.
	ForceSignal bool

	// CoolDown is the pause after a failed radio or bearer attempt.
	CoolDown time.Duration
	// ReconnectInterval is the minimum spacing of session attempts.
	ReconnectInterval time.Duration

	FirmwareVersion string
}

// Supervisor keeps the radio, bearer and session layers alive. Failures are detected top-down
// and repaired bottom-up, with at most one recovery action per Tick.
type Supervisor struct {
	cfg     Config
	modem   core.Modem
	session core.Session
	clock   clock.PassiveClock

	radio  *layer
	bearer *layer
	sess   *layer

	// Earliest time of the next attempt per layer. Zero means immediately.
	radioRetryAt   time.Time
	bearerRetryAt  time.Time
	sessionRetryAt time.Time
}

func NewSupervisor(cfg Config, modem core.Modem, session core.Session, clk clock.PassiveClock) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		modem:   modem,
		session: session,
		clock:   clk,
		radio:   newLayer(LayerRadio, true),
		bearer:  newLayer(LayerBearer, true),
		sess:    newLayer(LayerSession, false),
	}
}

// Boot restarts the modem so the first Tick starts from a known radio state.
func (s *Supervisor) Boot(ctx context.Context) {
	log.Info("Restarting modem")
	if err := s.modem.Restart(ctx); err != nil {
		log.Error(err, "Modem restart failed, continuing with recovery loop")
	}
}

// State returns the composite state without touching the link.
func (s *Supervisor) State() LinkState {
	return LinkState{
		Radio:   s.radio.state(),
		Bearer:  s.bearer.state(),
		Session: s.sess.state(),
	}
}

// Tick observes the link and performs at most one recovery action.
func (s *Supervisor) Tick(ctx context.Context) LinkState {
	if !s.modem.IsNetworkConnected(ctx) {
		s.lose(ctx, s.radio, s.bearer, s.sess)
		s.recoverRadio(ctx)
		return s.State()
	}
	s.radio.fire(ctx, EventEstablished)

	if !s.modem.IsBearerConnected(ctx) {
		s.lose(ctx, s.bearer, s.sess)
		s.recoverBearer(ctx)
		return s.State()
	}
	s.bearer.fire(ctx, EventEstablished)

	if !s.session.IsConnected() || s.sess.state() != Up {
		s.lose(ctx, s.sess)
		s.recoverSession(ctx)
	}
	return s.State()
}

// lose forces the given layers down, lowest first.
func (s *Supervisor) lose(ctx context.Context, layers ...*layer) {
	for _, l := range layers {
		l.fire(ctx, EventLost)
	}
}

func (s *Supervisor) recoverRadio(ctx context.Context) {
	if s.clock.Now().Before(s.radioRetryAt) {
		return
	}

	s.radio.fire(ctx, EventDial)
	log.Info("Waiting for radio network", "timeout", s.cfg.NetworkTimeout, "force", s.cfg.ForceSignal)
	if !s.modem.WaitForNetwork(ctx, s.cfg.NetworkTimeout, s.cfg.ForceSignal) {
		s.radio.fire(ctx, EventFailed)
		s.radioRetryAt = s.clock.Now().Add(s.cfg.CoolDown)
		metrics.ReconnectAttemptsTotal.WithLabelValues(LayerRadio, "failed").Inc()
		log.Warn("Radio network unavailable, cooling down", "coolDown", s.cfg.CoolDown)
		return
	}

	s.radio.fire(ctx, EventEstablished)
	s.radioRetryAt = time.Time{}
	metrics.ReconnectAttemptsTotal.WithLabelValues(LayerRadio, "success").Inc()
}

func (s *Supervisor) recoverBearer(ctx context.Context) {
	if s.clock.Now().Before(s.bearerRetryAt) {
		return
	}

	s.bearer.fire(ctx, EventDial)
	log.Info("Attaching packet-data bearer", "apn", s.cfg.APN)
	if !s.modem.AttachBearer(ctx, s.cfg.APN, s.cfg.User, s.cfg.Password) {
		s.bearer.fire(ctx, EventFailed)
		s.bearerRetryAt = s.clock.Now().Add(s.cfg.CoolDown)
		metrics.ReconnectAttemptsTotal.WithLabelValues(LayerBearer, "failed").Inc()
		log.Warn("Bearer attach failed, cooling down", "coolDown", s.cfg.CoolDown)
		return
	}

	s.bearer.fire(ctx, EventEstablished)
	s.bearerRetryAt = time.Time{}
	metrics.ReconnectAttemptsTotal.WithLabelValues(LayerBearer, "success").Inc()
}

func (s *Supervisor) recoverSession(ctx context.Context) {
	now := s.clock.Now()
	if now.Before(s.sessionRetryAt) {
		return
	}
	s.sessionRetryAt = now.Add(s.cfg.ReconnectInterval)

	if err := s.session.Connect(ctx); err != nil {
		metrics.ReconnectAttemptsTotal.WithLabelValues(LayerSession, "failed").Inc()
		log.Error(err, "Messaging session connect failed", "retryIn", s.cfg.ReconnectInterval)
		return
	}
	if err := s.setupSession(ctx); err != nil {
		metrics.ReconnectAttemptsTotal.WithLabelValues(LayerSession, "failed").Inc()
		log.Error(err, "Messaging session setup failed", "retryIn", s.cfg.ReconnectInterval)
		return
	}

	s.sess.fire(ctx, EventEstablished)
	s.sessionRetryAt = time.Time{}
	metrics.ReconnectAttemptsTotal.WithLabelValues(LayerSession, "success").Inc()
}

// setupSession runs once per established session.
func (s *Supervisor) setupSession(ctx context.Context) error {
	for _, event := range []core.EventType{core.EventRelayCommand, core.EventOTATrigger} {
		if err := s.session.Subscribe(ctx, event); err != nil {
			return fmt.Errorf("subscribe %s: %w", event, err)
		}
	}

	if err := s.session.Send(ctx, core.EventStatus, StatusConnected); err != nil {
		return err
	}
	return s.session.SendFields(ctx, core.EventStatus, map[string]any{
		"version": s.cfg.FirmwareVersion,
		"type":    DocTypeFirmwareInfo,
	})
}

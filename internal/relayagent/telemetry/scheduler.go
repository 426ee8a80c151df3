package telemetry

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

const DocTypeHeartbeat = "heartbeat"

// Radio is the part of the modem read by heartbeats.
type Radio interface {
	SignalQuality(ctx context.Context) int
	IsBearerConnected(ctx context.Context) bool
}

// CommandRecord exposes the most recently executed relay command.
type CommandRecord interface {
	LastCommand() string
}

// Checker runs a remote firmware version check.
type Checker interface {
	CheckForUpdates(ctx context.Context)
}

type Config struct {
	HeartbeatInterval   time.Duration
	UpdateCheckInterval time.Duration
	FirmwareVersion     string
}

// Scheduler owns the heartbeat and update-check timers. Tick is only called while the link is
// up, so both deadlines stand still during an outage and fire right after reconnection.
type Scheduler struct {
	cfg     Config
	sender  core.Sender
	session interface{ IsConnected() bool }
	radio   Radio
	record  CommandRecord
	checker Checker
	clock   clock.PassiveClock

	boot        time.Time
	heartbeat   *Timer
	updateCheck *Timer
}

func NewScheduler(cfg Config, session core.Session, radio Radio, record CommandRecord, checker Checker, clk clock.PassiveClock) *Scheduler {
	now := clk.Now()
	return &Scheduler{
		cfg:         cfg,
		sender:      session,
		session:     session,
		radio:       radio,
		record:      record,
		checker:     checker,
		clock:       clk,
		boot:        now,
		heartbeat:   NewTimer(cfg.HeartbeatInterval, now),
		updateCheck: NewTimer(cfg.UpdateCheckInterval, now),
	}
}

// Tick services whichever timers are due, heartbeat first.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.heartbeat.Fire(s.clock.Now()) {
		s.Heartbeat(ctx)
	}
	if s.updateCheck.Fire(s.clock.Now()) {
		log.Info("Periodic update check")
		s.checker.CheckForUpdates(ctx)
	}
}

// Heartbeat publishes the retained heartbeat document.
func (s *Scheduler) Heartbeat(ctx context.Context) {
	doc := map[string]any{
		"uptime_s": int64(s.clock.Since(s.boot) / time.Second),
		"csq":      s.radio.SignalQuality(ctx),
		"gprs":     s.radio.IsBearerConnected(ctx),
		"mqtt":     s.session.IsConnected(),
		"command":  s.record.LastCommand(),
		"version":  s.cfg.FirmwareVersion,
		"type":     DocTypeHeartbeat,
	}
	if err := s.sender.SendFields(ctx, core.EventHeartbeat, doc); err != nil {
		log.Error(err, "Failed to publish heartbeat")
		return
	}
	metrics.HeartbeatsTotal.Inc()
	log.Debug("Heartbeat published", "uptime", doc["uptime_s"], "csq", doc["csq"])
}

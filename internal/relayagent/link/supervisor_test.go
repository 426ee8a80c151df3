package link

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
)

type fakeModem struct {
	network, bearer  bool
	waitOK, attachOK bool

	restarts, waits, attaches int
}

func (m *fakeModem) Restart(context.Context) error { m.restarts++; return nil }

func (m *fakeModem) WaitForNetwork(context.Context, time.Duration, bool) bool {
	m.waits++
	m.network = m.waitOK
	return m.waitOK
}

func (m *fakeModem) IsNetworkConnected(context.Context) bool { return m.network }

func (m *fakeModem) AttachBearer(_ context.Context, _, _, _ string) bool {
	m.attaches++
	m.bearer = m.attachOK
	return m.attachOK
}

func (m *fakeModem) IsBearerConnected(context.Context) bool { return m.network && m.bearer }

func (m *fakeModem) SignalQuality(context.Context) int { return 20 }

type sent struct {
	event   core.EventType
	payload string
	fields  map[string]any
}

type fakeSession struct {
	connected  bool
	connectErr error
	connects   int
	subs       []core.EventType
	sent       []sent
}

func (f *fakeSession) Connect(context.Context) error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeSession) IsConnected() bool { return f.connected }

func (f *fakeSession) Subscribe(_ context.Context, event core.EventType) error {
	f.subs = append(f.subs, event)
	return nil
}

func (f *fakeSession) Service(context.Context, core.MessageHandler) int { return 0 }

func (f *fakeSession) Send(_ context.Context, event core.EventType, payload string) error {
	f.sent = append(f.sent, sent{event: event, payload: payload})
	return nil
}

func (f *fakeSession) SendFields(_ context.Context, event core.EventType, fields map[string]any) error {
	f.sent = append(f.sent, sent{event: event, fields: fields})
	return nil
}

func testConfig() Config {
	return Config{
		APN:               "internet",
		NetworkTimeout:    180 * time.Second,
		ForceSignal:       true,
		CoolDown:          10 * time.Second,
		ReconnectInterval: 10 * time.Second,
		FirmwareVersion:   "1.0.0",
	}
}

func newTestSupervisor() (*Supervisor, *fakeModem, *fakeSession, *testingclock.FakeClock) {
	m := &fakeModem{waitOK: true, attachOK: true}
	sess := &fakeSession{}
	clk := testingclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewSupervisor(testConfig(), m, sess, clk), m, sess, clk
}

func TestTickRepairsBottomUpOneActionPerTick(t *testing.T) {
	s, m, sess, _ := newTestSupervisor()
	ctx := context.Background()

	steps := []struct {
		want                      LinkState
		waits, attaches, connects int
	}{
		{LinkState{Up, Down, Down}, 1, 0, 0},
		{LinkState{Up, Up, Down}, 1, 1, 0},
		{LinkState{Up, Up, Up}, 1, 1, 1},
		{LinkState{Up, Up, Up}, 1, 1, 1},
	}
	for i, step := range steps {
		got := s.Tick(ctx)
		if got != step.want {
			t.Fatalf("tick %d: state %v, want %v", i, got, step.want)
		}
		if m.waits != step.waits || m.attaches != step.attaches || sess.connects != step.connects {
			t.Fatalf("tick %d: waits=%d attaches=%d connects=%d", i, m.waits, m.attaches, sess.connects)
		}
	}
	if !s.State().Up() {
		t.Fatal("expected composite link up")
	}
}

func TestSessionSetupRunsOncePerEstablishment(t *testing.T) {
	s, _, sess, _ := newTestSupervisor()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Tick(ctx)
	}

	if len(sess.subs) != 2 || sess.subs[0] != core.EventRelayCommand || sess.subs[1] != core.EventOTATrigger {
		t.Fatalf("subscriptions = %v", sess.subs)
	}
	if len(sess.sent) != 2 {
		t.Fatalf("sent %d status documents, want 2", len(sess.sent))
	}
	if sess.sent[0].event != core.EventStatus || sess.sent[0].payload != StatusConnected {
		t.Errorf("first status = %+v", sess.sent[0])
	}
	info := sess.sent[1].fields
	if info["version"] != "1.0.0" || info["type"] != DocTypeFirmwareInfo {
		t.Errorf("firmware info = %v", info)
	}

	// Session drops: the reconnect timer was reset by the last success, so the next tick
	// reconnects at once and runs the setup again.
	sess.connected = false
	if got := s.Tick(ctx); !got.Up() {
		t.Fatalf("state after session drop = %v, want up", got)
	}
	if sess.connects != 2 || len(sess.subs) != 4 || len(sess.sent) != 4 {
		t.Fatalf("connects=%d subs=%d sent=%d", sess.connects, len(sess.subs), len(sess.sent))
	}
}

func TestRadioCoolDown(t *testing.T) {
	s, m, _, clk := newTestSupervisor()
	m.waitOK = false
	ctx := context.Background()

	if got := s.Tick(ctx); got != (LinkState{Down, Down, Down}) {
		t.Fatalf("state = %v", got)
	}
	for i := 0; i < 50; i++ {
		clk.Step(100 * time.Millisecond)
		s.Tick(ctx)
	}
	if m.waits != 1 {
		t.Fatalf("waits during cool-down = %d, want 1", m.waits)
	}

	clk.Step(5 * time.Second)
	s.Tick(ctx)
	if m.waits != 2 {
		t.Fatalf("waits after cool-down = %d, want 2", m.waits)
	}
}

func TestBearerCoolDown(t *testing.T) {
	s, m, _, clk := newTestSupervisor()
	m.attachOK = false
	ctx := context.Background()

	s.Tick(ctx) // radio
	if got := s.Tick(ctx); got != (LinkState{Up, Down, Down}) {
		t.Fatalf("state = %v", got)
	}
	clk.Step(9 * time.Second)
	s.Tick(ctx)
	if m.attaches != 1 {
		t.Fatalf("attaches = %d, want 1", m.attaches)
	}
	clk.Step(time.Second)
	m.attachOK = true
	if got := s.Tick(ctx); got != (LinkState{Up, Up, Down}) {
		t.Fatalf("state = %v", got)
	}
	if m.attaches != 2 {
		t.Fatalf("attaches = %d, want 2", m.attaches)
	}
}

func TestSessionReconnectInterval(t *testing.T) {
	s, _, sess, clk := newTestSupervisor()
	sess.connectErr = errors.New("refused")
	ctx := context.Background()

	s.Tick(ctx)
	s.Tick(ctx)
	if got := s.Tick(ctx); got != (LinkState{Up, Up, Down}) {
		t.Fatalf("state = %v", got)
	}
	for i := 0; i < 99; i++ {
		clk.Step(100 * time.Millisecond)
		s.Tick(ctx)
	}
	if sess.connects != 1 {
		t.Fatalf("connects within interval = %d, want 1", sess.connects)
	}
	clk.Step(100 * time.Millisecond)
	sess.connectErr = nil
	if got := s.Tick(ctx); !got.Up() {
		t.Fatalf("state = %v, want up", got)
	}
	if sess.connects != 2 {
		t.Fatalf("connects = %d, want 2", sess.connects)
	}
}

func TestLowerLayerLossForcesUpperLayersDown(t *testing.T) {
	s, m, _, _ := newTestSupervisor()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Tick(ctx)
	}
	if !s.State().Up() {
		t.Fatal("expected link up")
	}

	m.bearer = false
	m.attachOK = false
	if got := s.Tick(ctx); got != (LinkState{Up, Down, Down}) {
		t.Fatalf("after bearer loss: %v", got)
	}

	m.network = false
	m.waitOK = false
	if got := s.Tick(ctx); got != (LinkState{Down, Down, Down}) {
		t.Fatalf("after radio loss: %v", got)
	}
}

func TestLayeringInvariantUnderRandomFailures(t *testing.T) {
	s, m, sess, clk := newTestSupervisor()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		switch rng.Intn(8) {
		case 0:
			m.network = false
		case 1:
			m.bearer = false
		case 2:
			sess.connected = false
		}
		m.waitOK = rng.Intn(3) != 0
		m.attachOK = rng.Intn(3) != 0
		sess.connectErr = nil
		if rng.Intn(4) == 0 {
			sess.connectErr = errors.New("refused")
		}

		st := s.Tick(ctx)
		if st.Bearer == Up && st.Radio != Up {
			t.Fatalf("tick %d: bearer up while radio %s", i, st.Radio)
		}
		if st.Session == Up && st.Bearer != Up {
			t.Fatalf("tick %d: session up while bearer %s", i, st.Bearer)
		}

		clk.Step(time.Duration(rng.Intn(3000)) * time.Millisecond)
	}
}

func TestFailedAttemptsRespectMinimumSpacing(t *testing.T) {
	tests := []struct {
		name string
		tick time.Duration
	}{
		{"fast loop", 10 * time.Millisecond},
		{"default loop", 100 * time.Millisecond},
		{"slow loop", 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m, _, clk := newTestSupervisor()
			m.waitOK = false
			ctx := context.Background()

			var attempts []time.Time
			for i := 0; i < 2000; i++ {
				before := m.waits
				s.Tick(ctx)
				if m.waits != before {
					attempts = append(attempts, clk.Now())
				}
				clk.Step(tt.tick)
			}
			for i := 1; i < len(attempts); i++ {
				if gap := attempts[i].Sub(attempts[i-1]); gap < testConfig().CoolDown {
					t.Fatalf("attempt %d after %v, want >= %v", i, gap, testConfig().CoolDown)
				}
			}
			if len(attempts) < 2 {
				t.Fatalf("only %d attempts", len(attempts))
			}
		})
	}
}

func TestBootRestartsModem(t *testing.T) {
	s, m, _, _ := newTestSupervisor()
	s.Boot(context.Background())
	if m.restarts != 1 {
		t.Fatalf("restarts = %d, want 1", m.restarts)
	}
}

package modem

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"
)

// scriptedPort answers each AT command with the next scripted response; the last response of a
// command repeats. An empty read steps the clock like a real read timeout.
type scriptedPort struct {
	clk     *testingclock.FakeClock
	echo    bool
	script  map[string][]string
	written []string
	out     []byte
}

func newScriptedPort(clk *testingclock.FakeClock, script map[string][]string) *scriptedPort {
	return &scriptedPort{clk: clk, script: script}
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	cmd := strings.TrimSuffix(string(b), "\r")
	p.written = append(p.written, cmd)
	if p.echo {
		p.out = append(p.out, cmd+"\r\n"...)
	}
	if resps, ok := p.script[cmd]; ok && len(resps) > 0 {
		p.out = append(p.out, resps[0]...)
		if len(resps) > 1 {
			p.script[cmd] = resps[1:]
		}
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.out) == 0 {
		p.clk.Step(readTimeout)
		return 0, nil
	}
	n := copy(b, p.out)
	p.out = p.out[n:]
	return n, nil
}

func (p *scriptedPort) ResetInputBuffer() error { return nil }
func (p *scriptedPort) Close() error            { return nil }

func (p *scriptedPort) count(cmd string) int {
	n := 0
	for _, w := range p.written {
		if w == cmd {
			n++
		}
	}
	return n
}

func newTestModem(script map[string][]string) (*Modem, *scriptedPort, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	port := newScriptedPort(clk, script)
	m := New(port, Config{CommandTimeout: 2 * time.Second, AttachTimeout: 60 * time.Second}, clk)
	return m, port, clk
}

func TestCommand(t *testing.T) {
	m, port, clk := newTestModem(map[string][]string{
		"AT+CSQ":  {"\r\n+CSQ: 18,99\r\n\r\nOK\r\n"},
		"AT+BAD":  {"\r\nERROR\r\n"},
		"AT+CME":  {"\r\n+CME ERROR: 10\r\n"},
		"AT+INFO": {"\r\nline one\r\nline two\r\nOK\r\n"},
	})
	port.echo = true
	ctx := context.Background()

	lines, err := m.at.Command(ctx, "AT+CSQ", 0)
	if err != nil || len(lines) != 1 || lines[0] != "+CSQ: 18,99" {
		t.Fatalf("AT+CSQ = %q, %v", lines, err)
	}
	lines, err = m.at.Command(ctx, "AT+INFO", 0)
	if err != nil || strings.Join(lines, "|") != "line one|line two" {
		t.Fatalf("AT+INFO = %q, %v", lines, err)
	}
	if _, err := m.at.Command(ctx, "AT+BAD", 0); !errors.Is(err, ErrCommand) {
		t.Fatalf("AT+BAD error = %v, want ErrCommand", err)
	}
	if _, err := m.at.Command(ctx, "AT+CME", 0); !errors.Is(err, ErrCommand) {
		t.Fatalf("AT+CME error = %v, want ErrCommand", err)
	}

	start := clk.Now()
	if _, err := m.at.Command(ctx, "AT+SILENT", 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("AT+SILENT error = %v, want ErrTimeout", err)
	}
	if waited := clk.Since(start); waited < 2*time.Second || waited > 2*time.Second+readTimeout {
		t.Fatalf("timed out after %v, want about 2s", waited)
	}
}

func TestCommandCanceled(t *testing.T) {
	m, _, _ := newTestModem(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.at.Command(ctx, "AT", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestIsNetworkConnected(t *testing.T) {
	tests := []struct {
		name  string
		cereg string
		creg  string
		want  bool
	}{
		{"lte home", "+CEREG: 0,1\r\nOK\r\n", "+CREG: 0,0\r\nOK\r\n", true},
		{"lte roaming", "+CEREG: 2,5,\"1A2B\",\"01A2B3C4\",7\r\nOK\r\n", "+CREG: 0,0\r\nOK\r\n", true},
		{"searching, gsm home", "+CEREG: 0,2\r\nOK\r\n", "+CREG: 0,1\r\nOK\r\n", true},
		{"denied", "+CEREG: 0,3\r\nOK\r\n", "+CREG: 0,3\r\nOK\r\n", false},
		{"unsupported", "ERROR\r\n", "+CREG: 0,0\r\nOK\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestModem(map[string][]string{
				"AT+CEREG?": {tt.cereg},
				"AT+CREG?":  {tt.creg},
			})
			if got := m.IsNetworkConnected(context.Background()); got != tt.want {
				t.Fatalf("IsNetworkConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignalQuality(t *testing.T) {
	tests := []struct {
		resp string
		want int
	}{
		{"+CSQ: 23,0\r\nOK\r\n", 23},
		{"+CSQ: 99,99\r\nOK\r\n", SignalUnknown},
		{"ERROR\r\n", SignalUnknown},
		{"OK\r\n", SignalUnknown},
	}
	for _, tt := range tests {
		m, _, _ := newTestModem(map[string][]string{"AT+CSQ": {tt.resp}})
		if got := m.SignalQuality(context.Background()); got != tt.want {
			t.Errorf("SignalQuality(%q) = %d, want %d", tt.resp, got, tt.want)
		}
	}
}

func TestWaitForNetwork(t *testing.T) {
	m, port, clk := newTestModem(map[string][]string{
		"AT+CEREG?": {"+CEREG: 0,2\r\nOK\r\n", "+CEREG: 0,2\r\nOK\r\n", "+CEREG: 0,1\r\nOK\r\n"},
		"AT+CREG?":  {"+CREG: 0,2\r\nOK\r\n"},
		"AT+CSQ":    {"+CSQ: 15,0\r\nOK\r\n"},
	})
	start := clk.Now()
	if !m.WaitForNetwork(context.Background(), 180*time.Second, true) {
		t.Fatal("WaitForNetwork() = false, want true")
	}
	if port.count("AT+CEREG?") != 3 {
		t.Errorf("CEREG polls = %d, want 3", port.count("AT+CEREG?"))
	}
	if clk.Since(start) < 2*pollInterval {
		t.Errorf("returned after %v, expected two poll pauses", clk.Since(start))
	}
}

func TestWaitForNetworkForceRequiresSignal(t *testing.T) {
	script := func() map[string][]string {
		return map[string][]string{
			"AT+CEREG?": {"+CEREG: 0,1\r\nOK\r\n"},
			"AT+CSQ":    {"+CSQ: 99,99\r\nOK\r\n"},
		}
	}

	m, _, clk := newTestModem(script())
	start := clk.Now()
	if m.WaitForNetwork(context.Background(), 10*time.Second, true) {
		t.Fatal("forced wait accepted a registration without signal")
	}
	if clk.Since(start) < 10*time.Second {
		t.Fatalf("gave up after %v, want the full timeout", clk.Since(start))
	}

	m, _, _ = newTestModem(script())
	if !m.WaitForNetwork(context.Background(), 10*time.Second, false) {
		t.Fatal("unforced wait rejected a registration")
	}
}

func TestAttachBearer(t *testing.T) {
	script := func() map[string][]string {
		return map[string][]string{
			`AT+CGDCONT=1,"IP","internet"`:  {"OK\r\n"},
			`AT+CGAUTH=1,1,"user","secret"`: {"OK\r\n"},
			"AT+CGATT=1":                    {"OK\r\n"},
			"AT+CGACT=1,1":                  {"OK\r\n"},
			"AT+CGACT?":                     {"+CGACT: 1,1\r\n+CGACT: 2,0\r\nOK\r\n"},
		}
	}

	m, port, _ := newTestModem(script())
	if !m.AttachBearer(context.Background(), "internet", "user", "secret") {
		t.Fatal("AttachBearer() = false")
	}
	want := []string{`AT+CGDCONT=1,"IP","internet"`, `AT+CGAUTH=1,1,"user","secret"`, "AT+CGATT=1", "AT+CGACT=1,1", "AT+CGACT?"}
	if strings.Join(port.written, "|") != strings.Join(want, "|") {
		t.Errorf("commands = %q, want %q", port.written, want)
	}

	m, port, _ = newTestModem(script())
	if !m.AttachBearer(context.Background(), "internet", "", "") {
		t.Fatal("AttachBearer() without credentials = false")
	}
	if port.count(`AT+CGAUTH=1,1,"user","secret"`) != 0 {
		t.Error("CGAUTH sent without a user")
	}
}

func TestAttachBearerFailure(t *testing.T) {
	m, port, _ := newTestModem(map[string][]string{
		`AT+CGDCONT=1,"IP","internet"`: {"OK\r\n"},
		"AT+CGATT=1":                   {"+CME ERROR: 30\r\n"},
	})
	if m.AttachBearer(context.Background(), "internet", "", "") {
		t.Fatal("AttachBearer() = true after CGATT error")
	}
	if port.count("AT+CGACT=1,1") != 0 {
		t.Error("activation attempted after attach failure")
	}
}

func TestIsBearerConnected(t *testing.T) {
	tests := []struct {
		resp string
		want bool
	}{
		{"+CGACT: 1,1\r\nOK\r\n", true},
		{"+CGACT: 1,0\r\nOK\r\n", false},
		{"+CGACT: 2,1\r\nOK\r\n", false},
		{"ERROR\r\n", false},
	}
	for _, tt := range tests {
		m, _, _ := newTestModem(map[string][]string{"AT+CGACT?": {tt.resp}})
		if got := m.IsBearerConnected(context.Background()); got != tt.want {
			t.Errorf("IsBearerConnected(%q) = %v, want %v", tt.resp, got, tt.want)
		}
	}
}

func TestRestart(t *testing.T) {
	m, port, _ := newTestModem(map[string][]string{
		"AT+CFUN=1,1": {""},
		"AT":          {"", "", "OK\r\n"},
		"ATE0":        {"OK\r\n"},
	})
	if err := m.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if port.count("AT") != 3 || port.count("ATE0") != 1 {
		t.Errorf("commands = %q", port.written)
	}
}

func TestRestartNeverAnswers(t *testing.T) {
	m, _, _ := newTestModem(nil)
	if err := m.Restart(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Restart() error = %v, want ErrTimeout", err)
	}
}

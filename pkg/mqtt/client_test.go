package mqtt

import (
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"cmd/esp0", "cmd/esp0", true},
		{"cmd/esp0", "cmd/esp1", false},
		{"cmd/+", "cmd/esp1", true},
		{"cmd/+", "cmd/esp1/extra", false},
		{"relay/#", "relay/esp0/status", true},
		{"relay/+/status", "relay/esp0/ack", false},
	}

	for _, tt := range tests {
		if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestTopicFilterStripsSharedPrefix(t *testing.T) {
	if got := topicFilter("$share/agents/cmd/+"); got != "cmd/+" {
		t.Errorf("topicFilter = %q, want cmd/+", got)
	}
	if got := topicFilter("cmd/esp0"); got != "cmd/esp0" {
		t.Errorf("topicFilter = %q, want cmd/esp0", got)
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ClientConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"missing broker", &ClientConfig{ClientID: "esp0_client"}, true},
		{"bad scheme", &ClientConfig{BrokerURL: "ws://broker:80", ClientID: "esp0_client"}, true},
		{"missing client id", &ClientConfig{BrokerURL: "tcp://broker:1883"}, true},
		{"ok", &ClientConfig{BrokerURL: "tcp://broker:1883", ClientID: "esp0_client"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.IsConnected() {
				t.Error("fresh client must not report connected")
			}
		})
	}
}

func TestPublishWithoutConnect(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://broker:1883", ClientID: "esp0_client"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Publish(t.Context(), "status/esp0", 1, false, []byte("x")); err != ErrNotConnected {
		t.Errorf("Publish() err = %v, want ErrNotConnected", err)
	}
}

func TestPahoLoggerForwardsToLogr(t *testing.T) {
	var lines []string
	l := funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 1})

	pahoLogger{l}.Printf("sending %s", "CONNECT")
	pahoLogger{l.V(1)}.Println("PINGREQ", 1)
	pahoLogger{l.V(2)}.Println("dropped")

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "sending CONNECT") {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"PINGREQ 1"`) {
		t.Errorf("line 1 = %s", lines[1])
	}
}

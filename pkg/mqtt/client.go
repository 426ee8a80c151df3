package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/paho"
	"github.com/go-logr/logr"

	"github.com/autopeer-io/cellrelay/pkg/log"
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("mqtt client not connected")

type pahoClient struct {
	cfg *ClientConfig

	mu  sync.Mutex
	cli *paho.Client

	connected atomic.Bool

	// subscriptions holds the registered handlers.
	// Key: topic filter (string), Value: subscriptionEntry
	subscriptions sync.Map
}

type subscriptionEntry struct {
	topic   string
	qos     int
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg: cfg,
	}, nil
}

func (c *pahoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli != nil {
		// Drop whatever is left of the previous session before dialing again.
		_ = c.cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
		c.cli = nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", c.cfg.BrokerURL, err)
	}

	cli := paho.NewClient(paho.ClientConfig{
		ClientID:           c.cfg.ClientID,
		Conn:               conn,
		OnClientError:      c.onClientError,
		OnServerDisconnect: c.onServerDisconnect,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			c.router,
		},
	})
	pahoLog := log.Logr().WithName("paho")
	cli.SetErrorLogger(pahoLogger{pahoLog})
	cli.SetDebugLogger(pahoLogger{pahoLog.V(1)})

	cp := &paho.Connect{
		KeepAlive:    c.cfg.KeepAlive,
		ClientID:     c.cfg.ClientID,
		CleanStart:   c.cfg.CleanStart,
		Username:     c.cfg.Username,
		UsernameFlag: c.cfg.Username != "",
		Password:     []byte(c.cfg.Password),
		PasswordFlag: c.cfg.Password != "",
		WillMessage:  c.willMessage(),
	}
	if c.cfg.SessionExpiry > 0 {
		expiry := c.cfg.SessionExpiry
		cp.Properties = &paho.ConnectProperties{SessionExpiryInterval: &expiry}
	}

	log.Info("Connecting to MQTT broker", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	ca, err := cli.Connect(ctx, cp)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}
	if ca.ReasonCode != 0 {
		_ = conn.Close()
		return fmt.Errorf("mqtt connect refused: reason code %d", ca.ReasonCode)
	}

	c.cli = cli
	c.connected.Store(true)

	go func() {
		<-cli.Done()
		if c.connected.CompareAndSwap(true, false) {
			log.Warn("MQTT session closed")
		}
	}()

	log.Info("MQTT Connection established")
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cli == nil {
		return
	}
	c.connected.Store(false)
	_ = c.cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
	c.cli = nil
	log.Info("MQTT Client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	cli, err := c.client()
	if err != nil {
		return err
	}

	_, err = cli.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	c.subscriptions.Store(topic, subscriptionEntry{
		topic:   topic,
		qos:     qos,
		handler: handler,
	})

	cli, err := c.client()
	if err != nil {
		return err
	}

	if _, err := cli.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	}); err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Info("Subscribed to topic", "topic", topic)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	c.subscriptions.Delete(topic)

	cli, err := c.client()
	if err != nil {
		return err
	}

	_, err = cli.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{topic},
	})
	return err
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) client() (*paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cli == nil || !c.connected.Load() {
		return nil, ErrNotConnected
	}
	return c.cli, nil
}

func (c *pahoClient) dial(ctx context.Context) (net.Conn, error) {
	u, _ := url.Parse(c.cfg.BrokerURL) // Already validated

	host := u.Host
	secure := u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "mqtts"
	if u.Port() == "" {
		if secure {
			host = net.JoinHostPort(u.Hostname(), "8883")
		} else {
			host = net.JoinHostPort(u.Hostname(), "1883")
		}
	}

	if secure {
		d := &tls.Dialer{Config: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
			ServerName:         u.Hostname(),
		}}
		return d.DialContext(ctx, "tcp", host)
	}

	var d net.Dialer
	return d.DialContext(ctx, "tcp", host)
}

// --- Internal Callbacks ---

func (c *pahoClient) onClientError(err error) {
	c.connected.Store(false)
	log.Error(err, "MQTT Client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	if d.Properties != nil {
		log.Warn("MQTT Server requested disconnect", "reason", d.Properties.ReasonString)
	} else {
		log.Warn("MQTT Server requested disconnect", "reasonCode", d.ReasonCode)
	}
}

// router handles incoming messages and dispatches them to the registered handlers.
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	// Iterate over subscriptions to find a match.
	// Since we support wildcards, we cannot do a simple map lookup.
	// This O(N) iteration is acceptable for the expected number of subscriptions (usually < 10 per agent).

	matched := false
	c.subscriptions.Range(func(key, value any) bool {
		entry := value.(subscriptionEntry)
		if topicsMatch(topicFilter(entry.topic), p.Packet.Topic) {
			// Handlers only enqueue; the owner services them from its own loop.
			entry.handler(context.Background(), p.Packet.Topic, p.Packet.Payload)
			matched = true
		}
		return true
	})

	if !matched {
		log.Debug("Received message on unhandled topic", "topic", p.Packet.Topic)
	}

	return true, nil // Always acknowledge reception
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// pahoLogger forwards paho's printf style diagnostics to logr.
type pahoLogger struct {
	l logr.Logger
}

func (p pahoLogger) Println(v ...any) {
	p.l.Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (p pahoLogger) Printf(format string, v ...any) {
	p.l.Info(fmt.Sprintf(format, v...))
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	// Optimization: if no wildcards, we are done.
	if !strings.Contains(filter, "+") && !strings.Contains(filter, "#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

func topicFilter(filter string) string {
	if strings.HasPrefix(filter, "$share/") {
		// Format: $share/<group>/<topic>
		parts := strings.SplitN(filter, "/", 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}
	return filter
}

package mqtt

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout bounds dialing plus the CONNECT/CONNACK exchange. Default is 5s.
	ConnectTimeout time.Duration

	// CleanStart indicates whether to start a clean session.
	CleanStart bool

	// SessionExpiry in seconds, sent as a CONNECT property when non-zero.
	SessionExpiry uint32

	// InsecureSkipVerify disables TLS certificate verification for tls/ssl/mqtts brokers.
	InsecureSkipVerify bool

	// Last will, published by the broker when the session drops without DISCONNECT.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "tcp", "mqtt", "ssl", "tls", "mqtts":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	return nil
}

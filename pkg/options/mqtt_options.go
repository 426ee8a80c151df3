package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/cellrelay/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for the MQTT session and topics.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SessionExpiry  uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// Only meaningful for ssl:// and mqtts:// brokers. This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// Topic Topology definition
	// Topics are constructed like: [{TopicRoot}/]{segment}/{deviceID}
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:         "tcp://127.0.0.1:1883",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 15 * time.Second,
		CleanStart:     true,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Broker == "" {
		errors = append(errors, fmt.Errorf("--mqtt.broker is required"))
	}
	if o.ConnectTimeout <= 0 {
		errors = append(errors, fmt.Errorf("--mqtt.connect-timeout must be positive"))
	}

	return errors
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, "mqtt.broker", o.Broker, "The URL of the MQTT broker (tcp://, ssl://).")
	fs.StringVar(&o.Username, "mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, "mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, "mqtt.client-id", o.ClientID, "Explicit Client ID (optional, defaults to {device-id}_client).")

	fs.DurationVar(&o.KeepAlive, "mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, "mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing MQTT connection.")
	fs.Uint32Var(&o.SessionExpiry, "mqtt.session-expiry", o.SessionExpiry, "MQTT Session Expiry Interval in seconds.")
	fs.BoolVar(&o.CleanStart, "mqtt.clean-start", o.CleanStart, "Start a clean MQTT session on every connect.")
	fs.BoolVar(&o.InsecureSkipVerify, "mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	// Topics
	fs.StringVar(&o.TopicRoot, "mqtt.topic-root", o.TopicRoot, "Optional prefix prepended to every topic.")
}

func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           o.ClientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}

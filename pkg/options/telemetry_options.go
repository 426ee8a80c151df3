package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TelemetryOptions)(nil)

// TelemetryOptions contains the periods of the control loop and its timers.
type TelemetryOptions struct {
	HeartbeatInterval   time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
	UpdateCheckInterval time.Duration `json:"update-check-interval" mapstructure:"update-check-interval"`

	// ReconnectInterval is the minimum spacing between two messaging session attempts.
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`

	// LoopInterval is the idle pause between two control-loop iterations.
	LoopInterval time.Duration `json:"loop-interval" mapstructure:"loop-interval"`
}

// NewTelemetryOptions creates a TelemetryOptions object with default parameters.
func NewTelemetryOptions() *TelemetryOptions {
	return &TelemetryOptions{
		HeartbeatInterval:   time.Minute,
		UpdateCheckInterval: time.Hour,
		ReconnectInterval:   10 * time.Second,
		LoopInterval:        100 * time.Millisecond,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *TelemetryOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.HeartbeatInterval <= 0 {
		errors = append(errors, fmt.Errorf("--telemetry.heartbeat-interval must be positive"))
	}
	if o.UpdateCheckInterval <= 0 {
		errors = append(errors, fmt.Errorf("--telemetry.update-check-interval must be positive"))
	}
	if o.ReconnectInterval <= 0 {
		errors = append(errors, fmt.Errorf("--telemetry.reconnect-interval must be positive"))
	}
	if o.LoopInterval <= 0 {
		errors = append(errors, fmt.Errorf("--telemetry.loop-interval must be positive"))
	}

	return errors
}

// AddFlags adds flags for TelemetryOptions to the specified FlagSet.
func (o *TelemetryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.HeartbeatInterval, "telemetry.heartbeat-interval", o.HeartbeatInterval, "Period of retained heartbeat documents.")
	fs.DurationVar(&o.UpdateCheckInterval, "telemetry.update-check-interval", o.UpdateCheckInterval, "Period of remote firmware version checks.")
	fs.DurationVar(&o.ReconnectInterval, "telemetry.reconnect-interval", o.ReconnectInterval, "Minimum spacing between messaging session attempts.")
	fs.DurationVar(&o.LoopInterval, "telemetry.loop-interval", o.LoopInterval, "Idle pause between control-loop iterations.")
}

package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RelayOptions)(nil)

// RelayOptions describes the GPIO lines driving the relays and the status indicator.
type RelayOptions struct {
	// Relay1Line, Relay2Line and IndicatorLine are GPIO line numbers.
	Relay1Line    int `json:"relay1-line" mapstructure:"relay1-line"`
	Relay2Line    int `json:"relay2-line" mapstructure:"relay2-line"`
	IndicatorLine int `json:"indicator-line" mapstructure:"indicator-line"`

	// ActiveLow inverts the electrical level of every line.
	ActiveLow bool `json:"active-low" mapstructure:"active-low"`

	// Pulse is how long a relay stays energized per command.
	Pulse time.Duration `json:"pulse" mapstructure:"pulse"`
}

// NewRelayOptions creates a RelayOptions object with default parameters.
func NewRelayOptions() *RelayOptions {
	return &RelayOptions{
		Relay1Line:    21,
		Relay2Line:    22,
		IndicatorLine: 2,
		Pulse:         time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RelayOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	lines := map[int]string{}
	for name, line := range map[string]int{"relay1-line": o.Relay1Line, "relay2-line": o.Relay2Line, "indicator-line": o.IndicatorLine} {
		if line < 0 {
			errors = append(errors, fmt.Errorf("--relay.%s must not be negative", name))
			continue
		}
		if other, dup := lines[line]; dup {
			errors = append(errors, fmt.Errorf("--relay.%s and --relay.%s use the same line %d", name, other, line))
		}
		lines[line] = name
	}
	// The dispatcher blocks for the whole pulse, so keep it short.
	if o.Pulse <= 0 || o.Pulse > 10*time.Second {
		errors = append(errors, fmt.Errorf("--relay.pulse must be within (0s, 10s]"))
	}

	return errors
}

// AddFlags adds flags for RelayOptions to the specified FlagSet.
func (o *RelayOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.Relay1Line, "relay.relay1-line", o.Relay1Line, "GPIO line of relay 1.")
	fs.IntVar(&o.Relay2Line, "relay.relay2-line", o.Relay2Line, "GPIO line of relay 2.")
	fs.IntVar(&o.IndicatorLine, "relay.indicator-line", o.IndicatorLine, "GPIO line of the status indicator.")
	fs.BoolVar(&o.ActiveLow, "relay.active-low", o.ActiveLow, "Drive every line low to activate it.")
	fs.DurationVar(&o.Pulse, "relay.pulse", o.Pulse, "How long a relay stays energized per command.")
}

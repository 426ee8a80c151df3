package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ModemOptions)(nil)

// ModemOptions contains the cellular modem serial link and packet-data credentials.
type ModemOptions struct {
	// Serial link to the modem AT interface.
	Port     string `json:"port" mapstructure:"port"`
	BaudRate int    `json:"baud-rate" mapstructure:"baud-rate"`

	// Packet-data bearer credentials.
	APN      string `json:"apn" mapstructure:"apn"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`

	// NetworkTimeout bounds a single wait for radio registration.
	NetworkTimeout time.Duration `json:"network-timeout" mapstructure:"network-timeout"`

	// CommandTimeout bounds a single AT command round trip.
	CommandTimeout time.Duration `json:"command-timeout" mapstructure:"command-timeout"`

	// AttachTimeout bounds bearer activation, which can take tens of seconds on some networks.
	AttachTimeout time.Duration `json:"attach-timeout" mapstructure:"attach-timeout"`

	// CoolDown is the pause imposed after a failed radio or bearer recovery attempt.
	CoolDown time.Duration `json:"cool-down" mapstructure:"cool-down"`
}

// NewModemOptions creates a ModemOptions object with default parameters.
func NewModemOptions() *ModemOptions {
	return &ModemOptions{
		Port:           "/dev/ttyUSB2",
		BaudRate:       115200,
		APN:            "internet",
		NetworkTimeout: 180 * time.Second,
		CommandTimeout: 2 * time.Second,
		AttachTimeout:  60 * time.Second,
		CoolDown:       10 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *ModemOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.Port == "" {
		errors = append(errors, fmt.Errorf("--modem.port is required"))
	}
	if o.BaudRate <= 0 {
		errors = append(errors, fmt.Errorf("--modem.baud-rate must be positive"))
	}
	if o.APN == "" {
		errors = append(errors, fmt.Errorf("--modem.apn is required"))
	}
	for name, d := range map[string]time.Duration{
		"network-timeout": o.NetworkTimeout,
		"command-timeout": o.CommandTimeout,
		"attach-timeout":  o.AttachTimeout,
		"cool-down":       o.CoolDown,
	} {
		if d <= 0 {
			errors = append(errors, fmt.Errorf("--modem.%s must be positive", name))
		}
	}

	return errors
}

// AddFlags adds flags for ModemOptions to the specified FlagSet.
func (o *ModemOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Port, "modem.port", o.Port, "Serial device of the modem AT interface.")
	fs.IntVar(&o.BaudRate, "modem.baud-rate", o.BaudRate, "Baud rate of the modem AT interface.")
	fs.StringVar(&o.APN, "modem.apn", o.APN, "Access point name of the packet-data bearer.")
	fs.StringVar(&o.User, "modem.user", o.User, "Username of the packet-data bearer.")
	fs.StringVar(&o.Password, "modem.password", o.Password, "Password of the packet-data bearer.")
	fs.DurationVar(&o.NetworkTimeout, "modem.network-timeout", o.NetworkTimeout, "Maximum wait for radio network registration.")
	fs.DurationVar(&o.CommandTimeout, "modem.command-timeout", o.CommandTimeout, "Maximum wait for a single AT command response.")
	fs.DurationVar(&o.AttachTimeout, "modem.attach-timeout", o.AttachTimeout, "Maximum wait for packet-data bearer activation.")
	fs.DurationVar(&o.CoolDown, "modem.cool-down", o.CoolDown, "Pause after a failed radio or bearer recovery attempt.")
}

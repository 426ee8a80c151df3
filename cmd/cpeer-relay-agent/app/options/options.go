package options

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/cellrelay/internal/relayagent"
	"github.com/autopeer-io/cellrelay/pkg/app"
	"github.com/autopeer-io/cellrelay/pkg/log"
	"github.com/autopeer-io/cellrelay/pkg/options"
)

type AgentOptions struct {
	// DeviceID names the node in every topic. Discovered from the environment when empty.
	DeviceID string `json:"device-id" mapstructure:"device-id"`

	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	ModemOptions     *options.ModemOptions     `json:"modem" mapstructure:"modem"`
	RelayOptions     *options.RelayOptions     `json:"relay" mapstructure:"relay"`
	OTAOptions       *options.OTAOptions       `json:"ota" mapstructure:"ota"`
	TelemetryOptions *options.TelemetryOptions `json:"telemetry" mapstructure:"telemetry"`
	S3Options        *options.S3Options        `json:"s3" mapstructure:"s3"`
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*AgentOptions)(nil)

func NewAgentOptions() *AgentOptions {
	o := &AgentOptions{
		MqttOptions:      options.NewMqttOptions(),
		ModemOptions:     options.NewModemOptions(),
		RelayOptions:     options.NewRelayOptions(),
		OTAOptions:       options.NewOTAOptions(),
		TelemetryOptions: options.NewTelemetryOptions(),
		S3Options:        options.NewS3Options(),
		HttpOptions:      options.NewHttpOptions(),
		Log:              log.NewOptions(),
	}

	return o
}

func (o *AgentOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.addFlags(fss.FlagSet("agent"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.ModemOptions.AddFlags(fss.FlagSet("modem"))
	o.RelayOptions.AddFlags(fss.FlagSet("relay"))
	o.OTAOptions.AddFlags(fss.FlagSet("ota"))
	o.TelemetryOptions.AddFlags(fss.FlagSet("telemetry"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *AgentOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DeviceID, "device-id", o.DeviceID,
		"Identity of this node used in every topic. Defaults to $CPEER_DEVICE_ID or "+relayagent.DeviceIDFile+".")
}

func (o *AgentOptions) Complete() error {
	if o.DeviceID == "" {
		o.DeviceID = relayagent.DiscoverDeviceID()
	}
	return nil
}

func (o *AgentOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.ModemOptions.Validate()...)
	errs = append(errs, o.RelayOptions.Validate()...)
	errs = append(errs, o.OTAOptions.Validate()...)
	errs = append(errs, o.TelemetryOptions.Validate()...)
	if o.OTAOptions.Source == options.OTASourceS3 {
		errs = append(errs, o.S3Options.Validate()...)
	}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *AgentOptions) Config() (*relayagent.Config, error) {
	return &relayagent.Config{
		DeviceID:         o.DeviceID,
		MqttOptions:      o.MqttOptions,
		ModemOptions:     o.ModemOptions,
		RelayOptions:     o.RelayOptions,
		OTAOptions:       o.OTAOptions,
		TelemetryOptions: o.TelemetryOptions,
		S3Options:        o.S3Options,
		HttpOptions:      o.HttpOptions,
	}, nil
}

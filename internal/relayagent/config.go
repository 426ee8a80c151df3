package relayagent

import (
	"fmt"
	"io"
	"net/http"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/cellrelay/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/cellrelay/internal/relayagent/core"
	"github.com/autopeer-io/cellrelay/internal/relayagent/dispatch"
	"github.com/autopeer-io/cellrelay/internal/relayagent/hal"
	"github.com/autopeer-io/cellrelay/internal/relayagent/hub"
	"github.com/autopeer-io/cellrelay/internal/relayagent/link"
	"github.com/autopeer-io/cellrelay/internal/relayagent/modem"
	"github.com/autopeer-io/cellrelay/internal/relayagent/ota"
	"github.com/autopeer-io/cellrelay/internal/relayagent/server"
	"github.com/autopeer-io/cellrelay/internal/relayagent/storage"
	"github.com/autopeer-io/cellrelay/internal/relayagent/telemetry"
	"github.com/autopeer-io/cellrelay/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/cellrelay/pkg/mqtt/topic"
	"github.com/autopeer-io/cellrelay/pkg/options"
	"github.com/autopeer-io/cellrelay/pkg/version"
)

// WillPayload is published by the broker on the status topic when the session drops uncleanly.
const WillPayload = "offline"

type Config struct {
	DeviceID string

	MqttOptions      *options.MqttOptions
	ModemOptions     *options.ModemOptions
	RelayOptions     *options.RelayOptions
	OTAOptions       *options.OTAOptions
	TelemetryOptions *options.TelemetryOptions
	S3Options        *options.S3Options
	HttpOptions      *options.HttpOptions
}

func (cfg *Config) NewAgent() (*Agent, error) {
	systemHAL, err := hal.NewHAL(hal.Config{
		DeviceID: cfg.DeviceID,
		Lines: hal.Lines{
			core.Relay1:    cfg.RelayOptions.Relay1Line,
			core.Relay2:    cfg.RelayOptions.Relay2Line,
			core.Indicator: cfg.RelayOptions.IndicatorLine,
		},
		ActiveLow: cfg.RelayOptions.ActiveLow,
		ImagePath: cfg.OTAOptions.ImagePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init hal: %w", err)
	}

	deviceID := systemHAL.DeviceID()
	if deviceID == "" {
		return nil, fmt.Errorf("FATAL: unable to retrieve DeviceID from HAL")
	}

	port, err := modem.OpenPort(cfg.ModemOptions.Port, cfg.ModemOptions.BaudRate)
	if err != nil {
		return nil, err
	}
	clk := clock.RealClock{}
	m := modem.New(port, modem.Config{
		CommandTimeout: cfg.ModemOptions.CommandTimeout,
		AttachTimeout:  cfg.ModemOptions.AttachTimeout,
	}, clk)

	mqttClient, topicBuilder, err := cfg.initMqttClientAndTopicBuilder(deviceID)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	source, err := cfg.newSource()
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("failed to init firmware source: %w", err)
	}

	return cfg.assemble(systemHAL, m, mqttClient, topicBuilder, source, clk, m), nil
}

// otaHTTPClient returns a client whose responses keep the server's Content-Length.
func (cfg *Config) otaHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	return &http.Client{Timeout: cfg.OTAOptions.HTTPTimeout, Transport: transport}
}

// assemble wires the control loop from already constructed drivers.
func (cfg *Config) assemble(h core.HAL, m core.Modem, client mqtt.Client, topics *mqtttopic.Builder, source ota.Source,
	clk clock.Clock, closers ...io.Closer) *Agent {
	deviceID := h.DeviceID()
	fwVersion := cfg.firmwareVersion()

	session := hub.New(deviceID, client, topics)

	updater := ota.NewUpdater(ota.Config{
		FirmwareVersion: fwVersion,
		FlushDelay:      cfg.OTAOptions.FlushDelay,
	}, source, cfg.otaHTTPClient(), session, h.Flasher(), h, clk)

	actuator := dispatch.NewPulseActuator(h.GPIO(), cfg.RelayOptions.Pulse, clk)
	dispatcher := dispatch.NewDispatcher(actuator, updater, session)

	supervisor := link.NewSupervisor(link.Config{
		APN:               cfg.ModemOptions.APN,
		User:              cfg.ModemOptions.User,
		Password:          cfg.ModemOptions.Password,
		NetworkTimeout:    cfg.ModemOptions.NetworkTimeout,
		ForceSignal:       true,
		CoolDown:          cfg.ModemOptions.CoolDown,
		ReconnectInterval: cfg.TelemetryOptions.ReconnectInterval,
		FirmwareVersion:   fwVersion,
	}, m, session, clk)

	scheduler := telemetry.NewScheduler(telemetry.Config{
		HeartbeatInterval:   cfg.TelemetryOptions.HeartbeatInterval,
		UpdateCheckInterval: cfg.TelemetryOptions.UpdateCheckInterval,
		FirmwareVersion:     fwVersion,
	}, session, m, dispatcher, updater, clk)

	a := &Agent{
		deviceID:        deviceID,
		firmwareVersion: fwVersion,
		supervisor:      supervisor,
		hub:             session,
		dispatcher:      dispatcher,
		scheduler:       scheduler,
		clock:           clk,
		loopInterval:    cfg.TelemetryOptions.LoopInterval,
		closers:         closers,
	}
	a.server = server.NewServer(cfg.HttpOptions, a.Ready)
	return a
}

func (cfg *Config) firmwareVersion() string {
	if cfg.OTAOptions.FirmwareVersion != "" {
		return cfg.OTAOptions.FirmwareVersion
	}
	return version.Get().GitVersion
}

func (cfg *Config) newSource() (ota.Source, error) {
	o := cfg.OTAOptions
	if o.Source == options.OTASourceS3 {
		return storage.NewMinIO(cfg.S3Options, o.FirmwareObject, o.VersionObject, o.PresignExpiry)
	}
	return storage.NewStatic(o.FirmwareURL, o.VersionURL), nil
}

func (cfg *Config) initMqttClientAndTopicBuilder(deviceID string) (mqtt.Client, *mqtttopic.Builder, error) {
	topicBuilder := mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)

	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		mqttConfig.ClientID = fmt.Sprintf("%s_client", deviceID)
	}

	// Not retained: the next "connected" status is not retained either and could not replace it.
	mqttConfig.WillTopic = topicBuilder.Build(paths.Status, deviceID)
	mqttConfig.WillPayload = []byte(WillPayload)
	mqttConfig.WillQoS = 1

	mqttClient, err := mqtt.NewClient(mqttConfig)
	if err != nil {
		return nil, nil, err
	}

	return mqttClient, topicBuilder, nil
}

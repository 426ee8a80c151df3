package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/cellrelay/cmd/cpeer-relay-agent/app/options"
	"github.com/autopeer-io/cellrelay/pkg/app"
	"github.com/autopeer-io/cellrelay/pkg/log"
)

const (
	commandName = "cpeer-relay-agent"
	commandDesc = `The cellrelay agent runs on a cellular relay node. It keeps the radio,
packet-data bearer and MQTT session alive, pulses the relays on command,
publishes heartbeats and installs firmware updates.`
)

func NewApp() *app.App {
	opts := options.NewAgentOptions()
	application := app.NewApp(
		commandName,
		"Launch a cellrelay node agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}

		return agent.Run(ctx)
	}
}

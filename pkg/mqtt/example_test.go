package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/cellrelay/pkg/log"
	"github.com/autopeer-io/cellrelay/pkg/mqtt"
)

// ExampleClient shows the lifecycle the relay agent drives: connect explicitly,
// subscribe after every successful connect, publish, and reconnect only when the
// owner decides to.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "esp0_client",
		Username:       "django",
		Password:       "secret",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
		WillTopic:      "status/esp0",
		WillPayload:    []byte("offline"),
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Error(err, "Failed to connect MQTT client")
		return
	}

	// Handlers run on the reader goroutine; hand the message off instead of doing work here.
	inbox := make(chan string, 8)
	if err := client.Subscribe(ctx, "cmd/esp0", 1, func(ctx context.Context, topic string, payload []byte) {
		inbox <- string(payload)
	}); err != nil {
		log.Error(err, "Failed to subscribe", "topic", "cmd/esp0")
	}

	if err := client.Publish(ctx, "status/esp0", 1, false, []byte("connected")); err != nil {
		log.Error(err, "Failed to publish message")
	}

	if !client.IsConnected() {
		fmt.Println("session lost, caller schedules a reconnect")
	}

	client.Disconnect(ctx)
}

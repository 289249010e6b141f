package publisher

import (
	"context"
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shimmeringbee/logwrap"
	"time"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTT adapts a paho client to Client.
type MQTT struct {
	client mqtt.Client
}

// Dial connects to broker, reconnecting automatically after connection loss.
func Dial(ctx context.Context, broker string, clientID string, logger logwrap.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.LogInfo(ctx, "MQTT connected.", logwrap.Datum("Broker", broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.LogWarn(ctx, "MQTT connection lost.", logwrap.Datum("Broker", broker), logwrap.Err(err))
	})

	c := mqtt.NewClient(opts)

	t := c.Connect()
	if !t.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connecting to %s: timeout after %v", broker, connectTimeout)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}

	return &MQTT{client: c}, nil
}

func (m *MQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	t := m.client.Publish(topic, qos, retained, payload)
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout after %v", publishTimeout)
	}

	return t.Error()
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

var _ Client = (*MQTT)(nil)

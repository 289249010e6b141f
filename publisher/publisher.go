package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/shimmeringbee/callbacks"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/logwrap"
	"strings"
)

const DefaultTopicPrefix = "cda"

var ErrPublishFailed = errors.New("publish failed")

// Client is the part of a broker connection the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

type Options struct {
	TopicPrefix string
	QoS         byte
	Retained    bool
}

// Publisher mirrors characteristic updates and device availability onto a
// message bus, one topic per characteristic.
type Publisher struct {
	client Client
	opts   Options
	logger logwrap.Logger
}

func New(client Client, opts Options, logger logwrap.Logger) *Publisher {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}

	opts.TopicPrefix = strings.TrimSuffix(opts.TopicPrefix, "/")

	return &Publisher{client: client, opts: opts, logger: logger}
}

// Attach subscribes the publisher to a bridge's events.
func (p *Publisher) Attach(adder callbacks.Adder) {
	adder.Add(p.characteristicUpdate)
	adder.Add(p.onlineChanged)
}

func (p *Publisher) CharacteristicTopic(e cda.CharacteristicUpdate) string {
	return strings.Join([]string{p.opts.TopicPrefix, e.Device.ID, e.Service.ComponentID(), e.Service.Type(), e.Characteristic}, "/")
}

func (p *Publisher) AvailabilityTopic(deviceID string) string {
	return strings.Join([]string{p.opts.TopicPrefix, deviceID, "online"}, "/")
}

type valuePayload struct {
	Value any `json:"value"`
}

func (p *Publisher) characteristicUpdate(ctx context.Context, e cda.CharacteristicUpdate) error {
	p.publish(ctx, p.CharacteristicTopic(e), valuePayload{Value: e.Value})
	return nil
}

func (p *Publisher) onlineChanged(ctx context.Context, e cda.DeviceOnlineChanged) error {
	p.publish(ctx, p.AvailabilityTopic(e.Device.ID), valuePayload{Value: e.Online})
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.LogError(ctx, "Failed to encode payload.", logwrap.Datum("Topic", topic), logwrap.Err(err))
		return
	}

	if err := p.client.Publish(topic, p.opts.QoS, p.opts.Retained, payload); err != nil {
		p.logger.LogWarn(ctx, "Failed to publish.", logwrap.Datum("Topic", topic), logwrap.Err(fmt.Errorf("%w: %w", ErrPublishFailed, err)))
	}
}

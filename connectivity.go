package gatewaymodule

import (
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/config"
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/gateway-module-core/model"
)

// connectivity is the module's facade over the MQTT client.
//
// It owns the subscription list, applies the session last will, and exposes
// the Publish surface the services use. All methods except the registered
// callbacks are called from the command worker only.
type connectivity struct {
	client *mqtt.Client
	qos    byte

	// inbound receives every subscribed message. It runs on the MQTT
	// client's callback goroutines and must only enqueue work.
	inbound func(channel string, payload []byte)
}

func newConnectivity(cfg config.MQTTConfig) *connectivity {
	return &connectivity{
		client: mqtt.New(cfg),
		qos:    byte(cfg.QoS),
	}
}

// setInboundHandler sets the callback invoked for every subscribed message.
// Must be called before connect.
func (c *connectivity) setInboundHandler(handler func(channel string, payload []byte)) {
	c.inbound = handler
}

// setOnConnectionLost forwards the client's connection-lost notification.
func (c *connectivity) setOnConnectionLost(callback func(err error)) {
	c.client.SetOnConnectionLost(callback)
}

// setLogger forwards the logger to the underlying client.
func (c *connectivity) setLogger(logger Logger) {
	c.client.SetLogger(logger)
}

// SetLastWill installs the session last will, applied on the next connect.
func (c *connectivity) SetLastWill(msg model.Message) {
	c.client.SetWill(msg.Channel, msg.Payload)
}

// connect establishes the broker session and subscribes the given channels.
// Channels already tracked by the client are restored by the client itself.
func (c *connectivity) connect(channels []string) error {
	if err := c.client.Connect(); err != nil {
		return err
	}
	return c.subscribe(channels)
}

// subscribe adds any channels not yet tracked. Requires a live session.
func (c *connectivity) subscribe(channels []string) error {
	for _, channel := range channels {
		if c.client.HasSubscription(channel) {
			continue
		}
		if err := c.client.Subscribe(channel, c.qos, c.handleMessage); err != nil {
			return err
		}
	}
	return nil
}

// unsubscribe removes the given channels from the session and the tracked
// set. Errors are returned for the caller to log; the loop keeps going so a
// single failure does not leave the remainder subscribed.
func (c *connectivity) unsubscribe(channels []string) error {
	var firstErr error
	for _, channel := range channels {
		if !c.client.HasSubscription(channel) {
			continue
		}
		if err := c.client.Unsubscribe(channel); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// disconnect closes the broker session.
func (c *connectivity) disconnect() {
	c.client.Disconnect()
}

// isConnected reports the client's last known connection state.
func (c *connectivity) isConnected() bool {
	return c.client.IsConnected()
}

// Publish delivers one encoded message to the broker. Messages are not
// retained; QoS follows the module configuration.
func (c *connectivity) Publish(msg model.Message) error {
	return c.client.Publish(msg.Channel, msg.Payload, c.qos, false)
}

func (c *connectivity) handleMessage(topic string, payload []byte) error {
	if c.inbound != nil {
		c.inbound(topic, payload)
	}
	return nil
}

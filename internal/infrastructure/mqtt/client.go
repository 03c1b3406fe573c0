package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gateway-module-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with the module's connectivity semantics.
//
// It provides an explicit connect/disconnect lifecycle, message publishing,
// subscription handling, a refreshable Last Will and Testament, and
// connection-loss notification. Reconnection is never attempted by the
// client itself.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored when Connect succeeds again.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// will holds the Last Will applied at the next Connect.
	willTopic   string
	willPayload []byte
	willMu      sync.RWMutex

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callback for connection loss (optional, set via SetOnConnectionLost).
	onConnectionLost func(err error)
	callbackMu       sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// New creates a disconnected client for the given broker configuration.
//
// Call SetWill before Connect if a Last Will is required; the stored will
// is applied on every connection attempt.
func New(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
}

// SetWill stores the Last Will and Testament applied at the next Connect.
//
// The will is published by the broker if the client disconnects
// unexpectedly (crash, network failure). Calling SetWill while connected
// takes effect only after the next Connect.
//
// Parameters:
//   - topic: Will topic
//   - payload: Will payload
func (c *Client) SetWill(topic string, payload []byte) {
	c.willMu.Lock()
	c.willTopic = topic
	c.willPayload = append([]byte(nil), payload...)
	c.willMu.Unlock()
}

// Connect attempts a single connection to the broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Applies the stored Last Will, if any
//  3. Attempts the connection with timeout
//  4. Restores any tracked subscriptions
//
// Exactly one attempt is made. On failure the caller decides when to retry.
//
// Returns:
//   - error: If the connection fails within the timeout
func (c *Client) Connect() error {
	opts := buildClientOptions(c.cfg)

	c.willMu.RLock()
	if c.willTopic != "" {
		opts.SetBinaryWill(c.willTopic, c.willPayload, byte(c.cfg.QoS), false)
	}
	c.willMu.RUnlock()

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.connMu.Lock()
	c.client = client
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()

	return nil
}

// handleConnectionLost is called when the connection is lost.
func (c *Client) handleConnectionLost(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}

	c.callbackMu.RLock()
	callback := c.onConnectionLost
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// Disconnect gracefully disconnects from the MQTT broker.
//
// Pending operations are given a short quiesce period to complete.
// Disconnecting an already-disconnected client is a no-op.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	client := c.client
	c.connected = false
	c.connMu.Unlock()

	if client == nil {
		return
	}

	// Disconnect with quiesce period for pending operations
	client.Disconnect(defaultDisconnectQuiesce)
}

// HealthCheck verifies the MQTT connection is alive and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnConnectionLost sets a callback to be invoked when the connection is
// lost. The error parameter describes why the connection was lost.
func (c *Client) SetOnConnectionLost(callback func(err error)) {
	c.callbackMu.Lock()
	c.onConnectionLost = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}

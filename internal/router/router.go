package router

import (
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

// Listener receives the messages claimed by its protocol.
type Listener interface {
	MessageReceived(msg model.Message)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(msg model.Message)

// MessageReceived calls f.
func (f ListenerFunc) MessageReceived(msg model.Message) {
	f(msg)
}

// Logger is the logging surface the router needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type registration struct {
	protocol protocol.Protocol
	listener Listener
}

// Router dispatches inbound messages to the listeners of the protocols that
// claim them.
//
// Thread Safety:
//   - Register is called during wiring, before traffic flows.
//   - Route may be called from the connectivity layer's callback goroutines.
type Router struct {
	registrations []registration
	logger        Logger
}

// New creates an empty router.
func New() *Router {
	return &Router{logger: noopLogger{}}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds a protocol and the listener that handles its messages.
func (r *Router) Register(p protocol.Protocol, listener Listener) {
	r.registrations = append(r.registrations, registration{protocol: p, listener: listener})
}

// Route delivers the message to every listener whose protocol claims the
// channel. Unclaimed channels are logged and dropped.
func (r *Router) Route(channel string, payload []byte) {
	msg := model.Message{Channel: channel, Payload: payload}

	delivered := false
	for _, reg := range r.registrations {
		if claims(reg.protocol, channel) {
			reg.listener.MessageReceived(msg)
			delivered = true
		}
	}

	if !delivered {
		r.logger.Warn("no protocol claims inbound channel", "channel", channel)
	}
}

// Channels returns the union of every registered protocol's static inbound
// channels plus its per-device channels for each given subdevice key,
// duplicates removed, order preserved.
func (r *Router) Channels(deviceKeys []string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(channels []string) {
		for _, c := range channels {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	for _, reg := range r.registrations {
		add(reg.protocol.InboundChannels())
	}
	for _, key := range deviceKeys {
		for _, reg := range r.registrations {
			add(reg.protocol.InboundChannelsForDevice(key))
		}
	}
	return out
}

func claims(p protocol.Protocol, channel string) bool {
	for _, pattern := range p.InboundChannels() {
		if protocol.ChannelMatches(pattern, channel) {
			return true
		}
	}
	return false
}

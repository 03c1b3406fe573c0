package protocol

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// PlatformStatusChannel carries gateway-to-platform connectivity updates.
// The body is a one-word token, not JSON.
const PlatformStatusChannel = "p2d/connection_status"

// PlatformStatusProtocol is the codec for platform connectivity updates.
type PlatformStatusProtocol struct{}

// NewPlatformStatusProtocol creates the platform status codec.
func NewPlatformStatusProtocol() *PlatformStatusProtocol {
	return &PlatformStatusProtocol{}
}

// InboundChannels returns the single connection status channel.
func (p *PlatformStatusProtocol) InboundChannels() []string {
	return []string{PlatformStatusChannel}
}

// InboundChannelsForDevice returns nothing; platform status is not
// per-device.
func (p *PlatformStatusProtocol) InboundChannelsForDevice(string) []string {
	return nil
}

// ExtractDeviceKey returns ""; the channel carries no device key.
func (p *PlatformStatusProtocol) ExtractDeviceKey(string) string {
	return ""
}

// ParseStatus decodes the one-word connectivity token.
func (p *PlatformStatusProtocol) ParseStatus(msg model.Message) (model.PlatformStatus, error) {
	if msg.Channel != PlatformStatusChannel {
		return "", fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	switch token := strings.TrimSpace(string(msg.Payload)); token {
	case string(model.PlatformStatusConnected):
		return model.PlatformStatusConnected, nil
	case string(model.PlatformStatusOffline):
		return model.PlatformStatusOffline, nil
	default:
		return "", fmt.Errorf("%w: platform status %q", ErrMalformedPayload, token)
	}
}

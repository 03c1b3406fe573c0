package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
)

func TestPlatformStatusChannels(t *testing.T) {
	p := NewPlatformStatusProtocol()

	assert.Equal(t, []string{"p2d/connection_status"}, p.InboundChannels())
	assert.Empty(t, p.InboundChannelsForDevice("D1"))
	assert.Equal(t, "", p.ExtractDeviceKey("p2d/connection_status"))
}

func TestParseStatus(t *testing.T) {
	p := NewPlatformStatusProtocol()

	status, err := p.ParseStatus(model.Message{
		Channel: "p2d/connection_status",
		Payload: []byte("CONNECTED"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PlatformStatusConnected, status)

	status, err = p.ParseStatus(model.Message{
		Channel: "p2d/connection_status",
		Payload: []byte("OFFLINE\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PlatformStatusOffline, status)
}

func TestParseStatusRejectsUnknownToken(t *testing.T) {
	p := NewPlatformStatusProtocol()

	_, err := p.ParseStatus(model.Message{
		Channel: "p2d/connection_status",
		Payload: []byte("MAYBE"),
	})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseStatusRejectsWrongChannel(t *testing.T) {
	p := NewPlatformStatusProtocol()

	_, err := p.ParseStatus(model.Message{
		Channel: "p2d/actuator_set/d/D1/r/SW",
		Payload: []byte("CONNECTED"),
	})
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

func TestRouteDeliversToClaimingProtocol(t *testing.T) {
	r := New()

	var dataGot []model.Message
	var firmwareGot []model.Message

	r.Register(protocol.NewDataProtocol(), ListenerFunc(func(msg model.Message) {
		dataGot = append(dataGot, msg)
	}))
	r.Register(protocol.NewFirmwareProtocol(), ListenerFunc(func(msg model.Message) {
		firmwareGot = append(firmwareGot, msg)
	}))

	r.Route("p2d/actuator_set/d/D1/r/SW", []byte(`{"value":"true"}`))
	r.Route("p2d/firmware_update_install/d/D1", []byte(`{"devices":["D1"],"fileName":"f"}`))

	require.Len(t, dataGot, 1)
	assert.Equal(t, "p2d/actuator_set/d/D1/r/SW", dataGot[0].Channel)
	require.Len(t, firmwareGot, 1)
	assert.Equal(t, "p2d/firmware_update_install/d/D1", firmwareGot[0].Channel)
}

func TestRouteUnclaimedChannelDropped(t *testing.T) {
	r := New()

	delivered := 0
	r.Register(protocol.NewDataProtocol(), ListenerFunc(func(model.Message) {
		delivered++
	}))

	r.Route("d2p/sensor_reading/d/D1/r/T", []byte(`[]`))
	assert.Zero(t, delivered)
}

func TestChannelsUnion(t *testing.T) {
	r := New()
	r.Register(protocol.NewDataProtocol(), ListenerFunc(func(model.Message) {}))
	r.Register(protocol.NewPlatformStatusProtocol(), ListenerFunc(func(model.Message) {}))

	channels := r.Channels([]string{"D1"})

	assert.Contains(t, channels, "p2d/actuator_set/d/+/r/+")
	assert.Contains(t, channels, "p2d/connection_status")
	assert.Contains(t, channels, "p2d/actuator_set/d/D1/r/+")
	assert.Contains(t, channels, "p2d/configuration_set/d/D1")
}

func TestChannelsDeduplicates(t *testing.T) {
	r := New()
	r.Register(protocol.NewPlatformStatusProtocol(), ListenerFunc(func(model.Message) {}))
	r.Register(protocol.NewPlatformStatusProtocol(), ListenerFunc(func(model.Message) {}))

	channels := r.Channels(nil)
	assert.Equal(t, []string{"p2d/connection_status"}, channels)
}

func TestRouteDeliversToAllClaimants(t *testing.T) {
	r := New()

	count := 0
	listener := ListenerFunc(func(model.Message) { count++ })
	r.Register(protocol.NewPlatformStatusProtocol(), listener)
	r.Register(protocol.NewPlatformStatusProtocol(), listener)

	r.Route("p2d/connection_status", []byte("CONNECTED"))
	assert.Equal(t, 2, count)
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
)

func TestStatusInboundChannels(t *testing.T) {
	p := NewStatusProtocol()

	assert.Equal(t, []string{
		"p2d/subdevice_status_request",
		"p2d/subdevice_status_request/d/+",
	}, p.InboundChannels())

	assert.Equal(t, []string{"p2d/subdevice_status_request/d/D1"}, p.InboundChannelsForDevice("D1"))
}

func TestIsStatusRequest(t *testing.T) {
	p := NewStatusProtocol()

	assert.True(t, p.IsStatusRequest("p2d/subdevice_status_request"))
	assert.True(t, p.IsStatusRequest("p2d/subdevice_status_request/d/D1"))
	assert.False(t, p.IsStatusRequest("p2d/actuator_set/d/D1/r/SW"))
}

func TestStatusExtractDeviceKey(t *testing.T) {
	p := NewStatusProtocol()

	assert.Equal(t, "D1", p.ExtractDeviceKey("p2d/subdevice_status_request/d/D1"))
	assert.Equal(t, "", p.ExtractDeviceKey("p2d/subdevice_status_request"))
}

func TestMakeStatusUpdateMessage(t *testing.T) {
	p := NewStatusProtocol()

	msg, err := p.MakeStatusUpdateMessage("D1", model.DeviceStatusConnected)
	require.NoError(t, err)
	assert.Equal(t, "d2p/subdevice_status_update/d/D1", msg.Channel)
	assert.JSONEq(t, `{"state":"CONNECTED"}`, string(msg.Payload))
}

func TestMakeStatusResponseMessage(t *testing.T) {
	p := NewStatusProtocol()

	msg, err := p.MakeStatusResponseMessage("D1", model.DeviceStatusSleep)
	require.NoError(t, err)
	assert.Equal(t, "d2p/subdevice_status_response/d/D1", msg.Channel)
	assert.JSONEq(t, `{"state":"SLEEP"}`, string(msg.Payload))
}

func TestMakeStatusMessageRejectsUnknownStatus(t *testing.T) {
	p := NewStatusProtocol()

	_, err := p.MakeStatusUpdateMessage("D1", "HIBERNATE")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMakeLastWillMessage(t *testing.T) {
	p := NewStatusProtocol()

	msg, err := p.MakeLastWillMessage([]string{"D1", "D2"})
	require.NoError(t, err)
	assert.Equal(t, "lastwill", msg.Channel)
	assert.JSONEq(t, `["D1","D2"]`, string(msg.Payload))

	empty, err := p.MakeLastWillMessage(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty.Payload))
}

func TestParseDeviceStatusRoundTrip(t *testing.T) {
	p := NewStatusProtocol()

	for _, status := range []model.DeviceStatus{
		model.DeviceStatusConnected,
		model.DeviceStatusSleep,
		model.DeviceStatusService,
		model.DeviceStatusOffline,
	} {
		msg, err := p.MakeStatusUpdateMessage("D1", status)
		require.NoError(t, err)

		parsed, err := p.ParseDeviceStatus(msg)
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}
}

func TestParseDeviceStatusRejectsUnknown(t *testing.T) {
	p := NewStatusProtocol()

	_, err := p.ParseDeviceStatus(model.Message{Payload: []byte(`{"state":"NAPPING"}`)})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

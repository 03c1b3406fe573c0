package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
)

func TestRegistrationInboundChannels(t *testing.T) {
	p := NewRegistrationProtocol()

	assert.Equal(t, []string{
		"p2d/register_subdevice/d/+",
		"p2d/update_subdevice/d/+",
	}, p.InboundChannels())

	assert.Equal(t, []string{
		"p2d/register_subdevice/d/D1",
		"p2d/update_subdevice/d/D1",
	}, p.InboundChannelsForDevice("D1"))
}

func TestMakeRegistrationRequestMessage(t *testing.T) {
	p := NewRegistrationProtocol()

	msg, err := p.MakeRegistrationRequestMessage(model.Subdevice{
		Name: "Device 1",
		Key:  "DEVICE_KEY_1",
		Template: model.DeviceTemplate{
			Sensors: []model.SensorTemplate{
				{Name: "Temperature", Reference: "T", ReadingType: "TEMPERATURE", Unit: "℃", Minimum: -40, Maximum: 85},
			},
			Actuators: []model.ActuatorTemplate{
				{Name: "Switch", Reference: "SW", DataType: model.DataTypeBoolean},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "d2p/register_subdevice/d/DEVICE_KEY_1", msg.Channel)
	assert.JSONEq(t, `{
		"device":{"name":"Device 1","key":"DEVICE_KEY_1"},
		"template":{
			"sensors":[{"name":"Temperature","reference":"T","readingType":"TEMPERATURE","unit":"℃","description":"","minimum":-40,"maximum":85}],
			"actuators":[{"name":"Switch","reference":"SW","dataType":"BOOLEAN","description":""}],
			"alarms":[],
			"configurations":[]
		}
	}`, string(msg.Payload))
}

func TestMakeRegistrationRequestMessageRejectsMissingKey(t *testing.T) {
	p := NewRegistrationProtocol()

	_, err := p.MakeRegistrationRequestMessage(model.Subdevice{Name: "nameless"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMakeUpdateRequestMessage(t *testing.T) {
	p := NewRegistrationProtocol()

	msg, err := p.MakeUpdateRequestMessage(model.SubdeviceUpdateRequest{
		DeviceKey:              "D1",
		UpdateDefaultSemantics: true,
		Sensors: []model.SensorTemplate{
			{Name: "Pressure", Reference: "P", ReadingType: "PRESSURE", Unit: "mb"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "d2p/update_subdevice/d/D1", msg.Channel)
	assert.JSONEq(t, `{
		"updateDefaultSemantics":true,
		"configurations":[],
		"sensors":[{"name":"Pressure","reference":"P","readingType":"PRESSURE","unit":"mb","description":"","minimum":0,"maximum":0}],
		"alarms":[],
		"actuators":[]
	}`, string(msg.Payload))
}

func TestParseResponse(t *testing.T) {
	p := NewRegistrationProtocol()

	response, err := p.ParseResponse(model.Message{
		Channel: "p2d/register_subdevice/d/DEVICE_KEY_1",
		Payload: []byte(`{"result":"OK"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "DEVICE_KEY_1", response.DeviceKey)
	assert.Equal(t, model.RegistrationOK, response.Result)
}

func TestParseResponseUpdateChannel(t *testing.T) {
	p := NewRegistrationProtocol()

	response, err := p.ParseResponse(model.Message{
		Channel: "p2d/update_subdevice/d/D1",
		Payload: []byte(`{"result":"ERROR_KEY_CONFLICT"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationErrorKeyConflict, response.Result)
}

func TestParseResponseMalformed(t *testing.T) {
	p := NewRegistrationProtocol()

	_, err := p.ParseResponse(model.Message{
		Channel: "p2d/register_subdevice/d/D1",
		Payload: []byte(`{}`),
	})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = p.ParseResponse(model.Message{
		Channel: "d2p/register_subdevice/d/D1",
		Payload: []byte(`{"result":"OK"}`),
	})
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

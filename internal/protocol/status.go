package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// Status protocol channels.
const (
	statusUpdateRoot   = "d2p/subdevice_status_update/d/"
	statusResponseRoot = "d2p/subdevice_status_response/d/"
	statusRequestRoot  = "p2d/subdevice_status_request"

	// LastWillChannel is where the broker publishes the session's last will:
	// the list of subdevice keys to mark offline on an ungraceful disconnect.
	LastWillChannel = "lastwill"
)

// StatusProtocol is the JSON codec for subdevice status traffic.
type StatusProtocol struct{}

// NewStatusProtocol creates the status codec.
func NewStatusProtocol() *StatusProtocol {
	return &StatusProtocol{}
}

// InboundChannels returns the status request subscriptions: the bare
// all-devices form and the per-device wildcard form.
func (p *StatusProtocol) InboundChannels() []string {
	return []string{
		statusRequestRoot,
		statusRequestRoot + "/d/" + Wildcard,
	}
}

// InboundChannelsForDevice returns the per-device status request channel.
func (p *StatusProtocol) InboundChannelsForDevice(deviceKey string) []string {
	return []string{
		statusRequestRoot + "/d/" + deviceKey,
	}
}

// ExtractDeviceKey returns the device key encoded in the channel, or "" for
// the all-devices request form.
func (p *StatusProtocol) ExtractDeviceKey(channel string) string {
	return deviceKeyFromChannel(channel)
}

// IsStatusRequest reports whether the channel carries a status request.
func (p *StatusProtocol) IsStatusRequest(channel string) bool {
	return strings.HasPrefix(channel, statusRequestRoot)
}

// wireDeviceStatus is the JSON body of status updates and responses.
type wireDeviceStatus struct {
	State string `json:"state"`
}

// MakeStatusUpdateMessage encodes an unsolicited device status update.
func (p *StatusProtocol) MakeStatusUpdateMessage(deviceKey string, status model.DeviceStatus) (model.Message, error) {
	return makeStatusMessage(statusUpdateRoot, deviceKey, status)
}

// MakeStatusResponseMessage encodes the reply to a status request.
func (p *StatusProtocol) MakeStatusResponseMessage(deviceKey string, status model.DeviceStatus) (model.Message, error) {
	return makeStatusMessage(statusResponseRoot, deviceKey, status)
}

func makeStatusMessage(root, deviceKey string, status model.DeviceStatus) (model.Message, error) {
	if !status.Valid() {
		return model.Message{}, fmt.Errorf("%w: device status %q", ErrInvalidValue, status)
	}

	payload, err := json.Marshal(wireDeviceStatus{State: string(status)})
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding device status: %w", err)
	}

	return model.Message{Channel: root + deviceKey, Payload: payload}, nil
}

// MakeLastWillMessage encodes the session last will: the JSON array of all
// known subdevice keys, so an ungraceful disconnect marks every one offline.
func (p *StatusProtocol) MakeLastWillMessage(deviceKeys []string) (model.Message, error) {
	if deviceKeys == nil {
		deviceKeys = []string{}
	}

	payload, err := json.Marshal(deviceKeys)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding last will: %w", err)
	}

	return model.Message{Channel: LastWillChannel, Payload: payload}, nil
}

// ParseDeviceStatus decodes the body of a status update or response.
func (p *StatusProtocol) ParseDeviceStatus(msg model.Message) (model.DeviceStatus, error) {
	var body wireDeviceStatus
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	status := model.DeviceStatus(body.State)
	if !status.Valid() {
		return "", fmt.Errorf("%w: device status %q", ErrMalformedPayload, body.State)
	}
	return status, nil
}

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// Firmware protocol channels.
const (
	firmwareInstallRoot = "p2d/firmware_update_install/d/"
	firmwareAbortRoot   = "p2d/firmware_update_abort/d/"

	firmwareStatusRoot  = "d2p/firmware_update_status/d/"
	firmwareVersionRoot = "d2p/firmware_version_update/d/"
)

// FirmwareProtocol is the JSON codec for firmware install, abort, status and
// version traffic.
type FirmwareProtocol struct{}

// NewFirmwareProtocol creates the firmware codec.
func NewFirmwareProtocol() *FirmwareProtocol {
	return &FirmwareProtocol{}
}

// InboundChannels returns the install and abort subscriptions, wildcard form.
func (p *FirmwareProtocol) InboundChannels() []string {
	return []string{
		firmwareInstallRoot + Wildcard,
		firmwareAbortRoot + Wildcard,
	}
}

// InboundChannelsForDevice returns the install and abort channels for one
// subdevice.
func (p *FirmwareProtocol) InboundChannelsForDevice(deviceKey string) []string {
	return []string{
		firmwareInstallRoot + deviceKey,
		firmwareAbortRoot + deviceKey,
	}
}

// ExtractDeviceKey returns the device key encoded in the channel, or "".
func (p *FirmwareProtocol) ExtractDeviceKey(channel string) string {
	return deviceKeyFromChannel(channel)
}

// IsInstallCommand reports whether the channel carries an install command.
func (p *FirmwareProtocol) IsInstallCommand(channel string) bool {
	return strings.HasPrefix(channel, firmwareInstallRoot)
}

// IsAbortCommand reports whether the channel carries an abort command.
func (p *FirmwareProtocol) IsAbortCommand(channel string) bool {
	return strings.HasPrefix(channel, firmwareAbortRoot)
}

// wireFirmwareInstall is the JSON body of an install command.
type wireFirmwareInstall struct {
	Devices  []string `json:"devices"`
	FileName string   `json:"fileName"`
}

// wireFirmwareAbort is the JSON body of an abort command.
type wireFirmwareAbort struct {
	Devices []string `json:"devices"`
}

// wireFirmwareStatus is the JSON body of a status report.
type wireFirmwareStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ParseInstall decodes a firmware install command.
func (p *FirmwareProtocol) ParseInstall(msg model.Message) (model.FirmwareUpdateInstall, error) {
	if !p.IsInstallCommand(msg.Channel) {
		return model.FirmwareUpdateInstall{}, fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	var body wireFirmwareInstall
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return model.FirmwareUpdateInstall{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return model.FirmwareUpdateInstall{
		DeviceKeys: body.Devices,
		FileName:   body.FileName,
	}, nil
}

// ParseAbort decodes a firmware abort command.
func (p *FirmwareProtocol) ParseAbort(msg model.Message) (model.FirmwareUpdateAbort, error) {
	if !p.IsAbortCommand(msg.Channel) {
		return model.FirmwareUpdateAbort{}, fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	var body wireFirmwareAbort
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return model.FirmwareUpdateAbort{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return model.FirmwareUpdateAbort{DeviceKeys: body.Devices}, nil
}

// MakeStatusMessage encodes a firmware update status report. The error
// qualifier is only carried when the status is ERROR.
func (p *FirmwareProtocol) MakeStatusMessage(status model.FirmwareUpdateStatus) (model.Message, error) {
	if status.DeviceKey == "" {
		return model.Message{}, fmt.Errorf("%w: firmware status without device key", ErrInvalidValue)
	}

	body := wireFirmwareStatus{Status: string(status.Status)}
	if status.Status == model.FirmwareStatusError {
		errCode := status.Error
		if errCode == "" {
			errCode = model.FirmwareErrorUnspecified
		}
		body.Error = string(errCode)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding firmware status: %w", err)
	}

	return model.Message{
		Channel: firmwareStatusRoot + status.DeviceKey,
		Payload: payload,
	}, nil
}

// MakeVersionMessage encodes a firmware version report; the body is the raw
// version string.
func (p *FirmwareProtocol) MakeVersionMessage(version model.FirmwareVersion) (model.Message, error) {
	if version.DeviceKey == "" || version.Version == "" {
		return model.Message{}, fmt.Errorf("%w: incomplete firmware version", ErrInvalidValue)
	}

	return model.Message{
		Channel: firmwareVersionRoot + version.DeviceKey,
		Payload: []byte(version.Version),
	}, nil
}

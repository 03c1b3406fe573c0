package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// Data protocol channel roots.
const (
	sensorReadingRoot    = "d2p/sensor_reading/d/"
	eventRoot            = "d2p/events/d/"
	actuatorStatusRoot   = "d2p/actuator_status/d/"
	configurationOutRoot = "d2p/configuration_get/d/"

	actuatorSetRoot      = "p2d/actuator_set/d/"
	actuatorGetRoot      = "p2d/actuator_get/d/"
	configurationSetRoot = "p2d/configuration_set/d/"
	configurationGetRoot = "p2d/configuration_get/d/"
)

// multiValueJoin separates the values of a multi-value reading inside the
// wire "data" field.
const multiValueJoin = " "

// configValueJoin separates the values of a multi-value configuration item
// on the wire.
const configValueJoin = ","

// DataProtocol is the JSON codec for telemetry, actuation and configuration
// traffic.
type DataProtocol struct{}

// NewDataProtocol creates the data codec.
func NewDataProtocol() *DataProtocol {
	return &DataProtocol{}
}

// InboundChannels returns the wildcard subscriptions for actuation and
// configuration commands.
func (p *DataProtocol) InboundChannels() []string {
	return []string{
		actuatorSetRoot + Wildcard + "/r/" + Wildcard,
		actuatorGetRoot + Wildcard + "/r/" + Wildcard,
		configurationSetRoot + Wildcard,
		configurationGetRoot + Wildcard,
	}
}

// InboundChannelsForDevice returns the subscriptions instantiated for one
// subdevice key.
func (p *DataProtocol) InboundChannelsForDevice(deviceKey string) []string {
	return []string{
		actuatorSetRoot + deviceKey + "/r/" + Wildcard,
		actuatorGetRoot + deviceKey + "/r/" + Wildcard,
		configurationSetRoot + deviceKey,
		configurationGetRoot + deviceKey,
	}
}

// ExtractDeviceKey returns the device key encoded in the channel, or "".
func (p *DataProtocol) ExtractDeviceKey(channel string) string {
	return deviceKeyFromChannel(channel)
}

// ExtractReference returns the capability reference encoded in the channel,
// or "".
func (p *DataProtocol) ExtractReference(channel string) string {
	return referenceFromChannel(channel)
}

// IsActuatorSet reports whether the channel carries an actuator set command.
func (p *DataProtocol) IsActuatorSet(channel string) bool {
	return strings.HasPrefix(channel, actuatorSetRoot)
}

// IsActuatorGet reports whether the channel carries an actuator get command.
func (p *DataProtocol) IsActuatorGet(channel string) bool {
	return strings.HasPrefix(channel, actuatorGetRoot)
}

// IsConfigurationSet reports whether the channel carries a configuration set
// command.
func (p *DataProtocol) IsConfigurationSet(channel string) bool {
	return strings.HasPrefix(channel, configurationSetRoot)
}

// IsConfigurationGet reports whether the channel carries a configuration get
// command.
func (p *DataProtocol) IsConfigurationGet(channel string) bool {
	return strings.HasPrefix(channel, configurationGetRoot)
}

// wireReading is the JSON element of a sensor reading or event batch.
type wireReading struct {
	UTC  uint64 `json:"utc"`
	Data string `json:"data"`
}

// wireActuatorStatus is the JSON body of an actuator status message.
type wireActuatorStatus struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

// wireActuatorSet is the JSON body of an actuator set command.
type wireActuatorSet struct {
	Value string `json:"value"`
}

// wireConfiguration is the JSON body of configuration snapshots and set
// commands.
type wireConfiguration struct {
	Values map[string]string `json:"values"`
}

// MakeSensorReadingsMessage encodes one batch of readings for a single
// (device, reference) pair. Multi-value readings publish their ordered values
// joined with a single space.
func (p *DataProtocol) MakeSensorReadingsMessage(deviceKey, reference string, readings []model.SensorReading) (model.Message, error) {
	if len(readings) == 0 {
		return model.Message{}, fmt.Errorf("%w: no readings for %s", ErrEmptyBatch, reference)
	}

	batch := make([]wireReading, 0, len(readings))
	for _, r := range readings {
		if len(r.Values) == 0 {
			return model.Message{}, fmt.Errorf("%w: reading %s has no values", ErrInvalidValue, reference)
		}
		batch = append(batch, wireReading{
			UTC:  r.RTC,
			Data: strings.Join(r.Values, multiValueJoin),
		})
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding readings: %w", err)
	}

	return model.Message{
		Channel: sensorReadingRoot + deviceKey + "/r/" + reference,
		Payload: payload,
	}, nil
}

// MakeAlarmsMessage encodes one batch of alarm state changes for a single
// (device, reference) pair. Active maps to "ON", inactive to "OFF".
func (p *DataProtocol) MakeAlarmsMessage(deviceKey, reference string, alarms []model.Alarm) (model.Message, error) {
	if len(alarms) == 0 {
		return model.Message{}, fmt.Errorf("%w: no alarms for %s", ErrEmptyBatch, reference)
	}

	batch := make([]wireReading, 0, len(alarms))
	for _, a := range alarms {
		data := "OFF"
		if a.Active {
			data = "ON"
		}
		batch = append(batch, wireReading{UTC: a.RTC, Data: data})
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding alarms: %w", err)
	}

	return model.Message{
		Channel: eventRoot + deviceKey + "/r/" + reference,
		Payload: payload,
	}, nil
}

// MakeActuatorStatusMessage encodes the current status of one actuator.
func (p *DataProtocol) MakeActuatorStatusMessage(deviceKey string, status model.ActuatorStatus) (model.Message, error) {
	if !status.State.Valid() {
		return model.Message{}, fmt.Errorf("%w: actuator state %q", ErrInvalidValue, status.State)
	}

	payload, err := json.Marshal(wireActuatorStatus{
		Status: string(status.State),
		Value:  status.Value,
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding actuator status: %w", err)
	}

	return model.Message{
		Channel: actuatorStatusRoot + deviceKey + "/r/" + status.Reference,
		Payload: payload,
	}, nil
}

// MakeConfigurationMessage encodes the full configuration snapshot of one
// subdevice. Multi-value items publish their values joined with a comma.
func (p *DataProtocol) MakeConfigurationMessage(deviceKey string, snapshot model.ConfigurationSnapshot) (model.Message, error) {
	if len(snapshot.Items) == 0 {
		return model.Message{}, fmt.Errorf("%w: empty configuration for %s", ErrEmptyBatch, deviceKey)
	}

	values := make(map[string]string, len(snapshot.Items))
	for _, item := range snapshot.Items {
		values[item.Reference] = strings.Join(item.Values, configValueJoin)
	}

	payload, err := json.Marshal(wireConfiguration{Values: values})
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding configuration: %w", err)
	}

	return model.Message{
		Channel: configurationOutRoot + deviceKey,
		Payload: payload,
	}, nil
}

// ParseActuatorSet decodes an actuator set command. The reference comes from
// the channel, the value from the body.
func (p *DataProtocol) ParseActuatorSet(msg model.Message) (reference, value string, err error) {
	if !p.IsActuatorSet(msg.Channel) {
		return "", "", fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	reference = p.ExtractReference(msg.Channel)
	if reference == "" {
		return "", "", fmt.Errorf("%w: no reference in %s", ErrMalformedPayload, msg.Channel)
	}

	var body wireActuatorSet
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return reference, body.Value, nil
}

// ParseActuatorGet decodes an actuator get command; the body is empty, only
// the channel matters.
func (p *DataProtocol) ParseActuatorGet(msg model.Message) (reference string, err error) {
	if !p.IsActuatorGet(msg.Channel) {
		return "", fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	reference = p.ExtractReference(msg.Channel)
	if reference == "" {
		return "", fmt.Errorf("%w: no reference in %s", ErrMalformedPayload, msg.Channel)
	}
	return reference, nil
}

// ParseConfigurationSet decodes a configuration set command into items.
// Comma-separated values are split into the multi-value form.
func (p *DataProtocol) ParseConfigurationSet(msg model.Message) ([]model.ConfigurationItem, error) {
	if !p.IsConfigurationSet(msg.Channel) {
		return nil, fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	var body wireConfiguration
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if len(body.Values) == 0 {
		return nil, fmt.Errorf("%w: configuration set carries no values", ErrMalformedPayload)
	}

	items := make([]model.ConfigurationItem, 0, len(body.Values))
	for reference, joined := range body.Values {
		items = append(items, model.ConfigurationItem{
			Reference: reference,
			Values:    strings.Split(joined, configValueJoin),
		})
	}
	return items, nil
}

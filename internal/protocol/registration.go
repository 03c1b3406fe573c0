package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// Registration protocol channels.
const (
	registrationRequestRoot = "d2p/register_subdevice/d/"
	updateRequestRoot       = "d2p/update_subdevice/d/"

	registrationResponseRoot = "p2d/register_subdevice/d/"
	updateResponseRoot       = "p2d/update_subdevice/d/"
)

// RegistrationProtocol is the JSON codec for subdevice registration and
// update traffic.
type RegistrationProtocol struct{}

// NewRegistrationProtocol creates the registration codec.
func NewRegistrationProtocol() *RegistrationProtocol {
	return &RegistrationProtocol{}
}

// InboundChannels returns the response subscriptions, wildcard form.
func (p *RegistrationProtocol) InboundChannels() []string {
	return []string{
		registrationResponseRoot + Wildcard,
		updateResponseRoot + Wildcard,
	}
}

// InboundChannelsForDevice returns the response channels for one subdevice.
func (p *RegistrationProtocol) InboundChannelsForDevice(deviceKey string) []string {
	return []string{
		registrationResponseRoot + deviceKey,
		updateResponseRoot + deviceKey,
	}
}

// ExtractDeviceKey returns the device key encoded in the channel, or "".
func (p *RegistrationProtocol) ExtractDeviceKey(channel string) string {
	return deviceKeyFromChannel(channel)
}

// IsRegistrationResponse reports whether the channel carries a registration
// response.
func (p *RegistrationProtocol) IsRegistrationResponse(channel string) bool {
	return strings.HasPrefix(channel, registrationResponseRoot)
}

// IsUpdateResponse reports whether the channel carries an update response.
func (p *RegistrationProtocol) IsUpdateResponse(channel string) bool {
	return strings.HasPrefix(channel, updateResponseRoot)
}

// Wire DTOs for templates. Field layout is fixed by the platform; changing a
// tag breaks registration.
type wireSensorTemplate struct {
	Name        string  `json:"name"`
	Reference   string  `json:"reference"`
	ReadingType string  `json:"readingType"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
	Minimum     float64 `json:"minimum"`
	Maximum     float64 `json:"maximum"`
}

type wireActuatorTemplate struct {
	Name        string   `json:"name"`
	Reference   string   `json:"reference"`
	DataType    string   `json:"dataType"`
	Description string   `json:"description"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

type wireAlarmTemplate struct {
	Name        string `json:"name"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

type wireConfigurationTemplate struct {
	Name         string   `json:"name"`
	Reference    string   `json:"reference"`
	DataType     string   `json:"dataType"`
	Description  string   `json:"description"`
	DefaultValue string   `json:"defaultValue"`
	Labels       []string `json:"labels,omitempty"`
	Minimum      *float64 `json:"minimum,omitempty"`
	Maximum      *float64 `json:"maximum,omitempty"`
}

type wireTemplate struct {
	Sensors        []wireSensorTemplate        `json:"sensors"`
	Actuators      []wireActuatorTemplate      `json:"actuators"`
	Alarms         []wireAlarmTemplate         `json:"alarms"`
	Configurations []wireConfigurationTemplate `json:"configurations"`
}

type wireRegistrationRequest struct {
	Device struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"device"`
	Template wireTemplate `json:"template"`
}

type wireUpdateRequest struct {
	UpdateDefaultSemantics bool                        `json:"updateDefaultSemantics"`
	Configurations         []wireConfigurationTemplate `json:"configurations"`
	Sensors                []wireSensorTemplate        `json:"sensors"`
	Alarms                 []wireAlarmTemplate         `json:"alarms"`
	Actuators              []wireActuatorTemplate      `json:"actuators"`
}

type wireRegistrationResponse struct {
	Result string `json:"result"`
}

// MakeRegistrationRequestMessage encodes a subdevice registration request.
func (p *RegistrationProtocol) MakeRegistrationRequestMessage(device model.Subdevice) (model.Message, error) {
	if device.Key == "" {
		return model.Message{}, fmt.Errorf("%w: subdevice without key", ErrInvalidValue)
	}

	var body wireRegistrationRequest
	body.Device.Name = device.Name
	body.Device.Key = device.Key
	body.Template = toWireTemplate(device.Template)

	payload, err := json.Marshal(body)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding registration request: %w", err)
	}

	return model.Message{
		Channel: registrationRequestRoot + device.Key,
		Payload: payload,
	}, nil
}

// MakeUpdateRequestMessage encodes a subdevice update request.
func (p *RegistrationProtocol) MakeUpdateRequestMessage(request model.SubdeviceUpdateRequest) (model.Message, error) {
	if request.DeviceKey == "" {
		return model.Message{}, fmt.Errorf("%w: update request without device key", ErrInvalidValue)
	}

	body := wireUpdateRequest{
		UpdateDefaultSemantics: request.UpdateDefaultSemantics,
		Configurations:         toWireConfigurations(request.Configurations),
		Sensors:                toWireSensors(request.Sensors),
		Alarms:                 toWireAlarms(request.Alarms),
		Actuators:              toWireActuators(request.Actuators),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return model.Message{}, fmt.Errorf("encoding update request: %w", err)
	}

	return model.Message{
		Channel: updateRequestRoot + request.DeviceKey,
		Payload: payload,
	}, nil
}

// ParseResponse decodes a registration or update response. The device key
// comes from the channel.
func (p *RegistrationProtocol) ParseResponse(msg model.Message) (model.SubdeviceRegistrationResponse, error) {
	if !p.IsRegistrationResponse(msg.Channel) && !p.IsUpdateResponse(msg.Channel) {
		return model.SubdeviceRegistrationResponse{}, fmt.Errorf("%w: %s", ErrChannelMismatch, msg.Channel)
	}

	deviceKey := p.ExtractDeviceKey(msg.Channel)
	if deviceKey == "" {
		return model.SubdeviceRegistrationResponse{}, fmt.Errorf("%w: no device key in %s", ErrMalformedPayload, msg.Channel)
	}

	var body wireRegistrationResponse
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		return model.SubdeviceRegistrationResponse{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if body.Result == "" {
		return model.SubdeviceRegistrationResponse{}, fmt.Errorf("%w: response carries no result", ErrMalformedPayload)
	}

	return model.SubdeviceRegistrationResponse{
		DeviceKey: deviceKey,
		Result:    model.RegistrationResult(body.Result),
	}, nil
}

func toWireTemplate(t model.DeviceTemplate) wireTemplate {
	return wireTemplate{
		Sensors:        toWireSensors(t.Sensors),
		Actuators:      toWireActuators(t.Actuators),
		Alarms:         toWireAlarms(t.Alarms),
		Configurations: toWireConfigurations(t.Configurations),
	}
}

func toWireSensors(sensors []model.SensorTemplate) []wireSensorTemplate {
	out := make([]wireSensorTemplate, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, wireSensorTemplate{
			Name:        s.Name,
			Reference:   s.Reference,
			ReadingType: s.ReadingType,
			Unit:        s.Unit,
			Description: s.Description,
			Minimum:     s.Minimum,
			Maximum:     s.Maximum,
		})
	}
	return out
}

func toWireActuators(actuators []model.ActuatorTemplate) []wireActuatorTemplate {
	out := make([]wireActuatorTemplate, 0, len(actuators))
	for _, a := range actuators {
		out = append(out, wireActuatorTemplate{
			Name:        a.Name,
			Reference:   a.Reference,
			DataType:    string(a.DataType),
			Description: a.Description,
			Minimum:     a.Minimum,
			Maximum:     a.Maximum,
		})
	}
	return out
}

func toWireAlarms(alarms []model.AlarmTemplate) []wireAlarmTemplate {
	out := make([]wireAlarmTemplate, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, wireAlarmTemplate{
			Name:        a.Name,
			Reference:   a.Reference,
			Description: a.Description,
		})
	}
	return out
}

func toWireConfigurations(configurations []model.ConfigurationTemplate) []wireConfigurationTemplate {
	out := make([]wireConfigurationTemplate, 0, len(configurations))
	for _, c := range configurations {
		out = append(out, wireConfigurationTemplate{
			Name:         c.Name,
			Reference:    c.Reference,
			DataType:     string(c.DataType),
			Description:  c.Description,
			DefaultValue: c.DefaultValue,
			Labels:       c.Labels,
			Minimum:      c.Minimum,
			Maximum:      c.Maximum,
		})
	}
	return out
}

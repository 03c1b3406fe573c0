package status

import (
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

// Publisher delivers an encoded message to the broker.
type Publisher interface {
	Publish(msg model.Message) error
}

// WillSetter installs the message the broker publishes on an ungraceful
// disconnect.
type WillSetter interface {
	SetLastWill(msg model.Message)
}

// Registry is the device lookup surface the service needs.
type Registry interface {
	DeviceKeys() []string
}

// Logger is the logging surface the service needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceStatusProvider reads the current connectivity state of a subdevice.
type DeviceStatusProvider func(deviceKey string) model.DeviceStatus

// Service publishes device status messages and maintains the last will.
type Service struct {
	protocol   *protocol.StatusProtocol
	publisher  Publisher
	willSetter WillSetter
	registry   Registry
	logger     Logger

	provider DeviceStatusProvider
}

// New creates a status service. The device status provider and logger are
// attached with the Set methods before traffic flows.
func New(p *protocol.StatusProtocol, publisher Publisher, willSetter WillSetter, registry Registry) *Service {
	return &Service{
		protocol:   p,
		publisher:  publisher,
		willSetter: willSetter,
		registry:   registry,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetDeviceStatusProvider sets the provider read for status requests.
func (s *Service) SetDeviceStatusProvider(provider DeviceStatusProvider) {
	s.provider = provider
}

// PublishDeviceStatusUpdate publishes an unsolicited status update for the
// device. Failure is logged and the message dropped.
func (s *Service) PublishDeviceStatusUpdate(deviceKey string, status model.DeviceStatus) {
	msg, err := s.protocol.MakeStatusUpdateMessage(deviceKey, status)
	if err != nil {
		s.logger.Error("encoding status update", "device", deviceKey, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing status update", "channel", msg.Channel, "error", err)
	}
}

// PublishDeviceStatusResponse publishes the reply to a platform status
// request. Failure is logged and the message dropped.
func (s *Service) PublishDeviceStatusResponse(deviceKey string, status model.DeviceStatus) {
	msg, err := s.protocol.MakeStatusResponseMessage(deviceKey, status)
	if err != nil {
		s.logger.Error("encoding status response", "device", deviceKey, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing status response", "channel", msg.Channel, "error", err)
	}
}

// DevicesUpdated rebuilds the last will from the given device keys and
// installs it on the connectivity layer. Call it whenever the set of known
// devices changes and before every connect.
func (s *Service) DevicesUpdated(deviceKeys []string) {
	msg, err := s.protocol.MakeLastWillMessage(deviceKeys)
	if err != nil {
		s.logger.Error("encoding last will", "error", err)
		return
	}
	s.willSetter.SetLastWill(msg)
}

// MessageReceived handles one inbound status message.
//
// A keyed status request is answered with a status response for that
// device. A request without a device key publishes one status update per
// known device.
func (s *Service) MessageReceived(msg model.Message) {
	if !s.protocol.IsStatusRequest(msg.Channel) {
		s.logger.Warn("unhandled status channel", "channel", msg.Channel)
		return
	}
	if s.provider == nil {
		s.logger.Error("status request without provider", "channel", msg.Channel)
		return
	}

	deviceKey := s.protocol.ExtractDeviceKey(msg.Channel)
	if deviceKey == "" {
		for _, key := range s.registry.DeviceKeys() {
			s.PublishDeviceStatusUpdate(key, s.provider(key))
		}
		return
	}

	s.PublishDeviceStatusResponse(deviceKey, s.provider(deviceKey))
}

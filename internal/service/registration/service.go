package registration

import (
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

// Publisher delivers an encoded message to the broker.
type Publisher interface {
	Publish(msg model.Message) error
}

// Logger is the logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ResponseHandler receives the parsed result of a registration or update
// response.
type ResponseHandler func(response model.SubdeviceRegistrationResponse)

// Service publishes registration traffic and dispatches responses.
type Service struct {
	protocol  *protocol.RegistrationProtocol
	publisher Publisher
	logger    Logger

	responseHandler ResponseHandler
}

// New creates a registration service. The response handler and logger are
// attached with the Set methods before traffic flows.
func New(p *protocol.RegistrationProtocol, publisher Publisher) *Service {
	return &Service{
		protocol:  p,
		publisher: publisher,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetResponseHandler sets the handler invoked for every parsed registration
// or update response.
func (s *Service) SetResponseHandler(handler ResponseHandler) {
	s.responseHandler = handler
}

// PublishRegistrationRequest encodes and publishes a registration request
// for the device. Failure is logged and the message dropped; the module
// publishes the request again on every (re)connect.
func (s *Service) PublishRegistrationRequest(device model.Subdevice) {
	msg, err := s.protocol.MakeRegistrationRequestMessage(device)
	if err != nil {
		s.logger.Error("encoding registration request", "device", device.Key, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing registration request", "channel", msg.Channel, "error", err)
	}
}

// PublishUpdateRequest encodes and publishes a subdevice update request.
func (s *Service) PublishUpdateRequest(request model.SubdeviceUpdateRequest) {
	msg, err := s.protocol.MakeUpdateRequestMessage(request)
	if err != nil {
		s.logger.Error("encoding update request", "device", request.DeviceKey, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing update request", "channel", msg.Channel, "error", err)
	}
}

// MessageReceived parses one inbound registration or update response and
// hands it to the response handler.
func (s *Service) MessageReceived(msg model.Message) {
	if !s.protocol.IsRegistrationResponse(msg.Channel) && !s.protocol.IsUpdateResponse(msg.Channel) {
		s.logger.Warn("unhandled registration channel", "channel", msg.Channel)
		return
	}

	response, err := s.protocol.ParseResponse(msg)
	if err != nil {
		s.logger.Warn("malformed registration response", "channel", msg.Channel, "error", err)
		return
	}

	if response.Result == model.RegistrationOK {
		s.logger.Info("subdevice registered", "device", response.DeviceKey)
	} else {
		s.logger.Error("subdevice registration failed",
			"device", response.DeviceKey, "result", string(response.Result))
	}

	if s.responseHandler != nil {
		s.responseHandler(response)
	}
}

package platformstatus

import (
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

// Listener receives every parsed platform connectivity update.
type Listener func(status model.PlatformStatus)

// Logger is the logging surface the service needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Service parses platform connectivity updates and notifies a listener.
type Service struct {
	protocol *protocol.PlatformStatusProtocol
	logger   Logger

	listener Listener
}

// New creates a platform status service.
func New(p *protocol.PlatformStatusProtocol) *Service {
	return &Service{
		protocol: p,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetListener sets the listener invoked for every parsed status update.
func (s *Service) SetListener(listener Listener) {
	s.listener = listener
}

// MessageReceived parses one inbound connectivity update and hands it to the
// listener. Unrecognized payloads are logged and dropped.
func (s *Service) MessageReceived(msg model.Message) {
	status, err := s.protocol.ParseStatus(msg)
	if err != nil {
		s.logger.Warn("malformed platform status", "channel", msg.Channel, "error", err)
		return
	}

	s.logger.Info("platform connectivity changed", "status", string(status))

	if s.listener != nil {
		s.listener(status)
	}
}

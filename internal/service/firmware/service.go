package firmware

import (
	"os"

	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
)

// Publisher delivers an encoded message to the broker.
type Publisher interface {
	Publish(msg model.Message) error
}

// Executor marshals a closure onto the module's command worker.
type Executor interface {
	Push(cmd func())
}

// Registry is the device lookup surface the service needs.
type Registry interface {
	DeviceExists(deviceKey string) bool
}

// Installer performs firmware installation on the host.
//
// Install must eventually invoke exactly one of onSuccess or onFail, from
// any goroutine. Abort returns whether a running installation was stopped.
type Installer interface {
	Install(deviceKey, fileName string, onSuccess func(), onFail func())
	Abort(deviceKey string) bool
}

// VersionProvider reads the currently running firmware version of a device.
type VersionProvider func(deviceKey string) string

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

// Service runs the firmware update state machine.
//
// Thread Safety:
//   - All state lives in consumer-thread-only maps; inbound commands and
//     installer callbacks alike execute on the command worker.
type Service struct {
	protocol  *protocol.FirmwareProtocol
	publisher Publisher
	executor  Executor
	registry  Registry
	logger    Logger

	installer       Installer
	versionProvider VersionProvider

	// states tracks the update state per device key. Absent means IDLE.
	states map[string]model.FirmwareUpdateState
}

// New creates a firmware service. Installer and version provider are
// attached with Configure; until then the service reports itself disabled
// and drops inbound commands.
func New(p *protocol.FirmwareProtocol, publisher Publisher, executor Executor, registry Registry) *Service {
	return &Service{
		protocol:  p,
		publisher: publisher,
		executor:  executor,
		registry:  registry,
		logger:    noopLogger{},
		states:    make(map[string]model.FirmwareUpdateState),
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Configure attaches the host's installer and version provider.
func (s *Service) Configure(installer Installer, provider VersionProvider) {
	s.installer = installer
	s.versionProvider = provider
}

// Enabled reports whether an installer and version provider are attached.
func (s *Service) Enabled() bool {
	return s.installer != nil && s.versionProvider != nil
}

// State returns the current update state for the device.
func (s *Service) State(deviceKey string) model.FirmwareUpdateState {
	if state, ok := s.states[deviceKey]; ok {
		return state
	}
	return model.FirmwareStateIdle
}

// PublishFirmwareVersion publishes the device's current firmware version as
// reported by the version provider. Empty versions are skipped.
func (s *Service) PublishFirmwareVersion(deviceKey string) {
	if !s.Enabled() {
		return
	}

	version := s.versionProvider(deviceKey)
	if version == "" {
		return
	}

	msg, err := s.protocol.MakeVersionMessage(model.FirmwareVersion{
		DeviceKey: deviceKey,
		Version:   version,
	})
	if err != nil {
		s.logger.Error("encoding firmware version", "device", deviceKey, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing firmware version", "channel", msg.Channel, "error", err)
	}
}

// MessageReceived classifies and handles one inbound firmware command.
func (s *Service) MessageReceived(msg model.Message) {
	if !s.Enabled() {
		s.logger.Warn("firmware command while updates disabled", "channel", msg.Channel)
		return
	}

	switch {
	case s.protocol.IsInstallCommand(msg.Channel):
		s.handleInstall(msg)
	case s.protocol.IsAbortCommand(msg.Channel):
		s.handleAbort(msg)
	default:
		s.logger.Warn("unhandled firmware channel", "channel", msg.Channel)
	}
}

func (s *Service) handleInstall(msg model.Message) {
	install, err := s.protocol.ParseInstall(msg)
	if err != nil {
		s.logger.Warn("malformed install command", "channel", msg.Channel, "error", err)
		return
	}
	if len(install.DeviceKeys) != 1 || install.FileName == "" {
		s.logger.Warn("illegal install command",
			"devices", len(install.DeviceKeys), "file", install.FileName)
		return
	}

	deviceKey := install.DeviceKeys[0]
	if !s.registry.DeviceExists(deviceKey) {
		s.logger.Error("install command for unknown device", "device", deviceKey)
		return
	}
	if s.State(deviceKey) != model.FirmwareStateIdle {
		s.logger.Warn("install command while update in progress",
			"device", deviceKey, "state", string(s.State(deviceKey)))
		return
	}

	if !fileReadable(install.FileName) {
		s.logger.Error("firmware file missing or empty",
			"device", deviceKey, "file", install.FileName)
		s.publishStatus(deviceKey, model.FirmwareStatusError, model.FirmwareErrorFileSystem)
		return
	}

	s.states[deviceKey] = model.FirmwareStateInstalling
	s.publishStatus(deviceKey, model.FirmwareStatusInstallation, "")
	s.logger.Info("firmware installation started", "device", deviceKey, "file", install.FileName)

	s.installer.Install(deviceKey, install.FileName,
		func() {
			s.executor.Push(func() { s.installSucceeded(deviceKey) })
		},
		func() {
			s.executor.Push(func() { s.installFailed(deviceKey) })
		},
	)
}

func (s *Service) installSucceeded(deviceKey string) {
	if s.State(deviceKey) != model.FirmwareStateInstalling {
		return
	}
	s.states[deviceKey] = model.FirmwareStateCompleted
	s.publishStatus(deviceKey, model.FirmwareStatusCompleted, "")
	s.PublishFirmwareVersion(deviceKey)
	s.logger.Info("firmware installation completed", "device", deviceKey)
}

func (s *Service) installFailed(deviceKey string) {
	if s.State(deviceKey) != model.FirmwareStateInstalling {
		return
	}
	s.states[deviceKey] = model.FirmwareStateFailed
	s.publishStatus(deviceKey, model.FirmwareStatusError, model.FirmwareErrorInstallationFailed)
	s.logger.Error("firmware installation failed", "device", deviceKey)
}

func (s *Service) handleAbort(msg model.Message) {
	abort, err := s.protocol.ParseAbort(msg)
	if err != nil {
		s.logger.Warn("malformed abort command", "channel", msg.Channel, "error", err)
		return
	}

	for _, deviceKey := range abort.DeviceKeys {
		if s.State(deviceKey) != model.FirmwareStateInstalling {
			s.logger.Warn("abort command without running installation", "device", deviceKey)
			continue
		}
		if !s.installer.Abort(deviceKey) {
			s.logger.Warn("installer refused abort", "device", deviceKey)
			continue
		}
		s.states[deviceKey] = model.FirmwareStateAborted
		s.publishStatus(deviceKey, model.FirmwareStatusAborted, "")
		s.logger.Info("firmware installation aborted", "device", deviceKey)
	}
}

func (s *Service) publishStatus(deviceKey string, status model.FirmwareUpdateStatusType, errCode model.FirmwareUpdateError) {
	msg, err := s.protocol.MakeStatusMessage(model.FirmwareUpdateStatus{
		DeviceKey: deviceKey,
		Status:    status,
		Error:     errCode,
	})
	if err != nil {
		s.logger.Error("encoding firmware status", "device", deviceKey, "error", err)
		return
	}
	if err := s.publisher.Publish(msg); err != nil {
		s.logger.Warn("publishing firmware status", "channel", msg.Channel, "error", err)
	}
}

// fileReadable reports whether the named file exists and is non-empty.
func fileReadable(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

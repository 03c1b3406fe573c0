package gatewaymodule

import (
	"fmt"

	"github.com/nerrad567/gateway-module-core/internal/command"
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/config"
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/internal/router"
	"github.com/nerrad567/gateway-module-core/internal/service/data"
	"github.com/nerrad567/gateway-module-core/internal/service/firmware"
	"github.com/nerrad567/gateway-module-core/internal/service/platformstatus"
	"github.com/nerrad567/gateway-module-core/internal/service/registration"
	"github.com/nerrad567/gateway-module-core/internal/service/status"
	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

// ActuationHandler applies an actuator set command on the host.
type ActuationHandler func(deviceKey, reference, value string)

// ActuatorStatusProvider reads the current status of an actuator.
type ActuatorStatusProvider func(deviceKey, reference string) model.ActuatorStatus

// ConfigurationHandler applies a configuration set command on the host.
type ConfigurationHandler func(deviceKey string, items []model.ConfigurationItem)

// ConfigurationProvider reads the current configuration of a device.
type ConfigurationProvider func(deviceKey string) []model.ConfigurationItem

// DeviceStatusProvider reads the current connectivity state of a device.
type DeviceStatusProvider func(deviceKey string) model.DeviceStatus

// FirmwareVersionProvider reads the currently running firmware version.
type FirmwareVersionProvider func(deviceKey string) string

// PlatformStatusListener receives gateway-to-platform connectivity updates.
type PlatformStatusListener func(status model.PlatformStatus)

// FirmwareInstaller performs firmware installation on the host.
//
// Install must eventually invoke exactly one of onSuccess or onFail, from
// any goroutine. Abort returns whether a running installation was stopped.
type FirmwareInstaller interface {
	Install(deviceKey, fileName string, onSuccess func(), onFail func())
	Abort(deviceKey string) bool
}

// ReadingRecorder mirrors successfully published sensor readings to an
// external history sink. Implementations must not block.
type ReadingRecorder interface {
	RecordSensorReadings(deviceKey, reference string, readings []model.SensorReading)
}

// Logger is the logging surface the module uses. Satisfied by
// logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Builder assembles a Module.
//
// Broker host and port come from NewBuilder; Build rejects an empty host or
// a port outside 1..65535. TLS is off unless enabled. Required
// callbacks: actuation handler, actuator status provider, device status
// provider. Configuration handler and provider must be set together or not
// at all; the same holds for the firmware installer and version provider.
type Builder struct {
	cfg config.MQTTConfig

	actuationHandler        ActuationHandler
	actuatorStatusProvider  ActuatorStatusProvider
	configurationHandler    ConfigurationHandler
	configurationProvider   ConfigurationProvider
	deviceStatusProvider    DeviceStatusProvider
	firmwareInstaller       FirmwareInstaller
	firmwareVersionProvider FirmwareVersionProvider
	platformStatusListener  PlatformStatusListener

	store    persistence.Store
	recorder ReadingRecorder
	logger   Logger
}

// NewBuilder creates a builder targeting the given broker.
func NewBuilder(brokerHost string, brokerPort int) *Builder {
	b := &Builder{logger: noopLogger{}}
	b.cfg.Broker.Host = brokerHost
	b.cfg.Broker.Port = brokerPort
	return b
}

// TLS enables or disables a TLS broker session.
func (b *Builder) TLS(enabled bool) *Builder {
	b.cfg.Broker.TLS = enabled
	return b
}

// Credentials sets the broker username and password.
func (b *Builder) Credentials(username, password string) *Builder {
	b.cfg.Auth.Username = username
	b.cfg.Auth.Password = password
	return b
}

// ClientID sets a fixed broker client identifier. When unset a random
// identifier is generated per session.
func (b *Builder) ClientID(id string) *Builder {
	b.cfg.Broker.ClientID = id
	return b
}

// QoS sets the quality-of-service level for all publishes and subscriptions.
func (b *Builder) QoS(qos int) *Builder {
	b.cfg.QoS = qos
	return b
}

// ActuationHandler sets the callback applying actuator set commands.
func (b *Builder) ActuationHandler(handler ActuationHandler) *Builder {
	b.actuationHandler = handler
	return b
}

// ActuatorStatusProvider sets the callback reading actuator statuses.
func (b *Builder) ActuatorStatusProvider(provider ActuatorStatusProvider) *Builder {
	b.actuatorStatusProvider = provider
	return b
}

// ConfigurationHandling sets the configuration callback pair.
func (b *Builder) ConfigurationHandling(handler ConfigurationHandler, provider ConfigurationProvider) *Builder {
	b.configurationHandler = handler
	b.configurationProvider = provider
	return b
}

// DeviceStatusProvider sets the callback reading device statuses.
func (b *Builder) DeviceStatusProvider(provider DeviceStatusProvider) *Builder {
	b.deviceStatusProvider = provider
	return b
}

// FirmwareHandling sets the firmware installer and version provider pair.
// Without it the module publishes no firmware version and drops inbound
// firmware commands.
func (b *Builder) FirmwareHandling(installer FirmwareInstaller, provider FirmwareVersionProvider) *Builder {
	b.firmwareInstaller = installer
	b.firmwareVersionProvider = provider
	return b
}

// PlatformStatusListener sets the callback receiving platform connectivity
// updates.
func (b *Builder) PlatformStatusListener(listener PlatformStatusListener) *Builder {
	b.platformStatusListener = listener
	return b
}

// Persistence sets the store backing the publish queues. Defaults to the
// in-memory store.
func (b *Builder) Persistence(store persistence.Store) *Builder {
	b.store = store
	return b
}

// HistoryRecorder sets an optional mirror for published sensor readings.
func (b *Builder) HistoryRecorder(recorder ReadingRecorder) *Builder {
	b.recorder = recorder
	return b
}

// Logger sets the module logger.
func (b *Builder) Logger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// validate enforces the builder contract.
func (b *Builder) validate() error {
	if b.actuationHandler == nil {
		return fmt.Errorf("%w: actuation handler not set", ErrInvalidConfiguration)
	}
	if b.actuatorStatusProvider == nil {
		return fmt.Errorf("%w: actuator status provider not set", ErrInvalidConfiguration)
	}
	if b.deviceStatusProvider == nil {
		return fmt.Errorf("%w: device status provider not set", ErrInvalidConfiguration)
	}
	if (b.configurationHandler == nil) != (b.configurationProvider == nil) {
		return fmt.Errorf("%w: configuration handler and provider must be set together", ErrInvalidConfiguration)
	}
	if (b.firmwareInstaller == nil) != (b.firmwareVersionProvider == nil) {
		return fmt.Errorf("%w: firmware installer and version provider must be set together", ErrInvalidConfiguration)
	}
	if b.cfg.Broker.Host == "" {
		return fmt.Errorf("%w: broker host not set", ErrInvalidConfiguration)
	}
	if b.cfg.Broker.Port <= 0 || b.cfg.Broker.Port > 65535 {
		return fmt.Errorf("%w: broker port out of range", ErrInvalidConfiguration)
	}
	if b.cfg.QoS < 0 || b.cfg.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1, or 2", ErrInvalidConfiguration)
	}
	return nil
}

// Build assembles the module and starts its command worker.
//
// Returns:
//   - *Module: Ready to accept devices; call Connect to go online.
//   - error: ErrInvalidConfiguration when the builder contract is violated.
func (b *Builder) Build() (*Module, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = persistence.NewInMemory()
	}

	m := &Module{
		buffer:   command.New(),
		registry: newDeviceRegistry(),
		conn:     newConnectivity(b.cfg),
		logger:   b.logger,

		dataProtocol:         protocol.NewDataProtocol(),
		statusProtocol:       protocol.NewStatusProtocol(),
		registrationProtocol: protocol.NewRegistrationProtocol(),
		firmwareProtocol:     protocol.NewFirmwareProtocol(),
		platformProtocol:     protocol.NewPlatformStatusProtocol(),

		deviceStatusProvider: status.DeviceStatusProvider(b.deviceStatusProvider),
		hasConfiguration:     b.configurationProvider != nil,
	}

	m.dataService = data.New(m.dataProtocol, store, m.conn, m.registry)
	m.dataService.SetLogger(b.logger)
	m.dataService.SetActuationHandler(data.ActuationHandler(b.actuationHandler))
	m.dataService.SetActuatorStatusProvider(data.ActuatorStatusProvider(b.actuatorStatusProvider))
	if b.configurationHandler != nil {
		m.dataService.SetConfigurationHandler(data.ConfigurationHandler(b.configurationHandler))
		m.dataService.SetConfigurationProvider(data.ConfigurationProvider(b.configurationProvider))
	}
	if b.recorder != nil {
		m.dataService.SetRecorder(b.recorder)
	}

	m.statusService = status.New(m.statusProtocol, m.conn, m.conn, m.registry)
	m.statusService.SetLogger(b.logger)
	m.statusService.SetDeviceStatusProvider(m.deviceStatusProvider)

	m.registrationService = registration.New(m.registrationProtocol, m.conn)
	m.registrationService.SetLogger(b.logger)
	m.registrationService.SetResponseHandler(m.registrationResponse)

	m.firmwareService = firmware.New(m.firmwareProtocol, m.conn, m.buffer, m.registry)
	m.firmwareService.SetLogger(b.logger)
	if b.firmwareInstaller != nil {
		m.firmwareService.Configure(b.firmwareInstaller, firmware.VersionProvider(b.firmwareVersionProvider))
	}

	m.platformService = platformstatus.New(m.platformProtocol)
	m.platformService.SetLogger(b.logger)
	if b.platformStatusListener != nil {
		m.platformService.SetListener(platformstatus.Listener(b.platformStatusListener))
	}

	m.router = router.New()
	m.router.SetLogger(b.logger)
	m.router.Register(m.dataProtocol, m.dataService)
	m.router.Register(m.statusProtocol, m.statusService)
	m.router.Register(m.registrationProtocol, m.registrationService)
	m.router.Register(m.firmwareProtocol, m.firmwareService)
	m.router.Register(m.platformProtocol, m.platformService)

	m.conn.setLogger(b.logger)
	m.conn.setInboundHandler(func(channel string, payload []byte) {
		m.buffer.Push(func() { m.router.Route(channel, payload) })
	})
	m.conn.setOnConnectionLost(func(err error) {
		m.buffer.Push(func() { m.connectionLost(err) })
	})

	return m, nil
}

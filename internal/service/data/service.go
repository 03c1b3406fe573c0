package data

import (
	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

// batchSize is the maximum number of queued items drained per key per
// publish pass.
const batchSize = 50

// Registry is the device lookup surface the service needs.
type Registry interface {
	DeviceExists(deviceKey string) bool
	SensorDefinedForDevice(deviceKey, reference string) bool
	AlarmDefinedForDevice(deviceKey, reference string) bool
	ActuatorDefinedForDevice(deviceKey, reference string) bool
	ConfigurationItemDefinedForDevice(deviceKey, reference string) bool
}

// Publisher delivers an encoded message to the broker.
type Publisher interface {
	Publish(msg model.Message) error
}

// Recorder mirrors successfully published sensor readings to an external
// history sink. Implementations must not block.
type Recorder interface {
	RecordSensorReadings(deviceKey, reference string, readings []model.SensorReading)
}

// Logger is the logging surface the service needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ActuationHandler applies an actuator set command on the host.
type ActuationHandler func(deviceKey, reference, value string)

// ActuatorStatusProvider reads the current status of an actuator.
type ActuatorStatusProvider func(deviceKey, reference string) model.ActuatorStatus

// ConfigurationHandler applies a configuration set command on the host.
type ConfigurationHandler func(deviceKey string, items []model.ConfigurationItem)

// ConfigurationProvider reads the current configuration of a device.
type ConfigurationProvider func(deviceKey string) []model.ConfigurationItem

// Service owns the data pipeline between the host and the platform.
type Service struct {
	protocol  *protocol.DataProtocol
	store     persistence.Store
	publisher Publisher
	registry  Registry
	logger    Logger

	actuationHandler       ActuationHandler
	actuatorStatusProvider ActuatorStatusProvider
	configurationHandler   ConfigurationHandler
	configurationProvider  ConfigurationProvider

	recorder Recorder
}

// New creates a data service over the given codec, store, publisher and
// registry. Handlers, providers, the logger and the optional history
// recorder are attached with the Set methods before traffic flows.
func New(p *protocol.DataProtocol, store persistence.Store, publisher Publisher, registry Registry) *Service {
	return &Service{
		protocol:  p,
		store:     store,
		publisher: publisher,
		registry:  registry,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetRecorder sets the optional history recorder.
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// SetActuationHandler sets the handler invoked for actuator set commands.
func (s *Service) SetActuationHandler(handler ActuationHandler) {
	s.actuationHandler = handler
}

// SetActuatorStatusProvider sets the provider read for actuator statuses.
func (s *Service) SetActuatorStatusProvider(provider ActuatorStatusProvider) {
	s.actuatorStatusProvider = provider
}

// SetConfigurationHandler sets the handler invoked for configuration set
// commands.
func (s *Service) SetConfigurationHandler(handler ConfigurationHandler) {
	s.configurationHandler = handler
}

// SetConfigurationProvider sets the provider read for configuration
// snapshots.
func (s *Service) SetConfigurationProvider(provider ConfigurationProvider) {
	s.configurationProvider = provider
}

// AddSensorReading validates and persists one reading under the composite
// key of its device and sensor reference.
//
// An rtc of zero is substituted with the current wall clock in milliseconds.
// Empty value slices are dropped silently. Unknown devices or references are
// logged and dropped.
func (s *Service) AddSensorReading(deviceKey, reference string, values []string, rtc uint64) {
	if len(values) == 0 {
		return
	}
	if !s.registry.DeviceExists(deviceKey) {
		s.logger.Error("sensor reading for unknown device", "device", deviceKey)
		return
	}
	if !s.registry.SensorDefinedForDevice(deviceKey, reference) {
		s.logger.Error("sensor reading for unknown reference", "device", deviceKey, "reference", reference)
		return
	}
	if rtc == 0 {
		rtc = model.CurrentRTC()
	}

	key := persistence.MakeKey(deviceKey, reference)
	reading := model.SensorReading{Reference: reference, Values: values, RTC: rtc}
	if err := s.store.PutSensorReading(key, reading); err != nil {
		s.logger.Error("persisting sensor reading", "key", key, "error", err)
	}
}

// AddAlarm validates and persists one alarm event.
//
// An rtc of zero is substituted with the current wall clock in milliseconds.
func (s *Service) AddAlarm(deviceKey, reference string, active bool, rtc uint64) {
	if !s.registry.DeviceExists(deviceKey) {
		s.logger.Error("alarm for unknown device", "device", deviceKey)
		return
	}
	if !s.registry.AlarmDefinedForDevice(deviceKey, reference) {
		s.logger.Error("alarm for unknown reference", "device", deviceKey, "reference", reference)
		return
	}
	if rtc == 0 {
		rtc = model.CurrentRTC()
	}

	key := persistence.MakeKey(deviceKey, reference)
	alarm := model.Alarm{Reference: reference, Active: active, RTC: rtc}
	if err := s.store.PutAlarm(key, alarm); err != nil {
		s.logger.Error("persisting alarm", "key", key, "error", err)
	}
}

// PublishActuatorStatus reads the actuator's current status from the
// provider, persists it and drains the actuator status slots.
func (s *Service) PublishActuatorStatus(deviceKey, reference string) {
	s.publishActuatorStatus(deviceKey, reference, nil)
}

// PublishActuatorStatusValue behaves like PublishActuatorStatus but
// overrides the reported value while keeping the provider's state.
func (s *Service) PublishActuatorStatusValue(deviceKey, reference, value string) {
	s.publishActuatorStatus(deviceKey, reference, &value)
}

func (s *Service) publishActuatorStatus(deviceKey, reference string, value *string) {
	if !s.registry.ActuatorDefinedForDevice(deviceKey, reference) {
		s.logger.Error("actuator status for unknown reference", "device", deviceKey, "reference", reference)
		return
	}
	if s.actuatorStatusProvider == nil {
		s.logger.Error("actuator status requested without provider", "device", deviceKey)
		return
	}

	status := s.actuatorStatusProvider(deviceKey, reference)
	status.Reference = reference
	if value != nil {
		status.Value = *value
	}

	key := persistence.MakeKey(deviceKey, reference)
	if err := s.store.PutActuatorStatus(key, status); err != nil {
		s.logger.Error("persisting actuator status", "key", key, "error", err)
		return
	}
	s.PublishActuatorStatuses(deviceKey)
}

// PublishConfiguration persists the given configuration items as the
// device's snapshot and drains the configuration slots. When items is nil
// the snapshot is read from the configuration provider.
func (s *Service) PublishConfiguration(deviceKey string, items []model.ConfigurationItem) {
	if items == nil {
		if s.configurationProvider == nil {
			s.logger.Error("configuration requested without provider", "device", deviceKey)
			return
		}
		items = s.configurationProvider(deviceKey)
	}
	if len(items) == 0 {
		return
	}

	snapshot := model.ConfigurationSnapshot{Items: items}
	if err := s.store.PutConfiguration(deviceKey, snapshot); err != nil {
		s.logger.Error("persisting configuration", "device", deviceKey, "error", err)
		return
	}
	s.PublishConfigurations(deviceKey)
}

// PublishSensorReadings drains queued sensor readings, one batch per
// composite key. A non-empty deviceKey restricts the drain to that device.
//
// Items are removed from the store only after a successful publish; a failed
// publish leaves the batch queued and moves on to the next key.
func (s *Service) PublishSensorReadings(deviceKey string) {
	for _, key := range s.store.GetSensorReadingsKeys() {
		kd, reference, err := persistence.ParseKey(key)
		if err != nil {
			s.logger.Error("malformed persistence key", "key", key, "error", err)
			continue
		}
		if deviceKey != "" && kd != deviceKey {
			continue
		}

		readings, err := s.store.GetSensorReadings(key, batchSize)
		if err != nil {
			s.logger.Error("reading persisted sensor readings", "key", key, "error", err)
			continue
		}
		if len(readings) == 0 {
			continue
		}

		msg, err := s.protocol.MakeSensorReadingsMessage(kd, reference, readings)
		if err != nil {
			s.logger.Error("encoding sensor readings", "key", key, "error", err)
			continue
		}
		if err := s.publisher.Publish(msg); err != nil {
			s.logger.Warn("publishing sensor readings", "channel", msg.Channel, "error", err)
			continue
		}
		if err := s.store.RemoveSensorReadings(key, len(readings)); err != nil {
			s.logger.Error("removing published sensor readings", "key", key, "error", err)
		}
		if s.recorder != nil {
			s.recorder.RecordSensorReadings(kd, reference, readings)
		}
	}
}

// PublishAlarms drains queued alarms, one batch per composite key. A
// non-empty deviceKey restricts the drain to that device.
func (s *Service) PublishAlarms(deviceKey string) {
	for _, key := range s.store.GetAlarmsKeys() {
		kd, reference, err := persistence.ParseKey(key)
		if err != nil {
			s.logger.Error("malformed persistence key", "key", key, "error", err)
			continue
		}
		if deviceKey != "" && kd != deviceKey {
			continue
		}

		alarms, err := s.store.GetAlarms(key, batchSize)
		if err != nil {
			s.logger.Error("reading persisted alarms", "key", key, "error", err)
			continue
		}
		if len(alarms) == 0 {
			continue
		}

		msg, err := s.protocol.MakeAlarmsMessage(kd, reference, alarms)
		if err != nil {
			s.logger.Error("encoding alarms", "key", key, "error", err)
			continue
		}
		if err := s.publisher.Publish(msg); err != nil {
			s.logger.Warn("publishing alarms", "channel", msg.Channel, "error", err)
			continue
		}
		if err := s.store.RemoveAlarms(key, len(alarms)); err != nil {
			s.logger.Error("removing published alarms", "key", key, "error", err)
		}
	}
}

// PublishActuatorStatuses drains the persisted actuator status slots. A
// non-empty deviceKey restricts the drain to that device.
func (s *Service) PublishActuatorStatuses(deviceKey string) {
	for _, key := range s.store.GetActuatorStatusKeys() {
		kd, _, err := persistence.ParseKey(key)
		if err != nil {
			s.logger.Error("malformed persistence key", "key", key, "error", err)
			continue
		}
		if deviceKey != "" && kd != deviceKey {
			continue
		}

		status, ok, err := s.store.GetActuatorStatus(key)
		if err != nil {
			s.logger.Error("reading persisted actuator status", "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		msg, err := s.protocol.MakeActuatorStatusMessage(kd, status)
		if err != nil {
			s.logger.Error("encoding actuator status", "key", key, "error", err)
			continue
		}
		if err := s.publisher.Publish(msg); err != nil {
			s.logger.Warn("publishing actuator status", "channel", msg.Channel, "error", err)
			continue
		}
		if err := s.store.RemoveActuatorStatus(key); err != nil {
			s.logger.Error("removing published actuator status", "key", key, "error", err)
		}
	}
}

// PublishConfigurations drains the persisted configuration snapshots. A
// non-empty deviceKey restricts the drain to that device.
func (s *Service) PublishConfigurations(deviceKey string) {
	for _, key := range s.store.GetConfigurationKeys() {
		if deviceKey != "" && key != deviceKey {
			continue
		}

		snapshot, ok, err := s.store.GetConfiguration(key)
		if err != nil {
			s.logger.Error("reading persisted configuration", "device", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		msg, err := s.protocol.MakeConfigurationMessage(key, snapshot)
		if err != nil {
			s.logger.Error("encoding configuration", "device", key, "error", err)
			continue
		}
		if err := s.publisher.Publish(msg); err != nil {
			s.logger.Warn("publishing configuration", "channel", msg.Channel, "error", err)
			continue
		}
		if err := s.store.RemoveConfiguration(key); err != nil {
			s.logger.Error("removing published configuration", "device", key, "error", err)
		}
	}
}

// MessageReceived classifies and handles one inbound data message.
//
// Actuator set commands invoke the actuation handler before the status is
// re-read and queued; configuration set commands are rejected whole when any
// incoming reference is unknown for the device.
func (s *Service) MessageReceived(msg model.Message) {
	switch {
	case s.protocol.IsActuatorSet(msg.Channel):
		s.handleActuatorSet(msg)
	case s.protocol.IsActuatorGet(msg.Channel):
		s.handleActuatorGet(msg)
	case s.protocol.IsConfigurationSet(msg.Channel):
		s.handleConfigurationSet(msg)
	case s.protocol.IsConfigurationGet(msg.Channel):
		s.handleConfigurationGet(msg)
	default:
		s.logger.Warn("unhandled data channel", "channel", msg.Channel)
	}
}

func (s *Service) handleActuatorSet(msg model.Message) {
	deviceKey := s.protocol.ExtractDeviceKey(msg.Channel)
	reference, value, err := s.protocol.ParseActuatorSet(msg)
	if err != nil {
		s.logger.Warn("malformed actuator set", "channel", msg.Channel, "error", err)
		return
	}
	if !s.registry.ActuatorDefinedForDevice(deviceKey, reference) {
		s.logger.Error("actuator set for unknown reference", "device", deviceKey, "reference", reference)
		return
	}
	if s.actuationHandler == nil {
		s.logger.Error("actuator set without handler", "device", deviceKey)
		return
	}

	s.actuationHandler(deviceKey, reference, value)
	s.PublishActuatorStatus(deviceKey, reference)
}

func (s *Service) handleActuatorGet(msg model.Message) {
	deviceKey := s.protocol.ExtractDeviceKey(msg.Channel)
	reference, err := s.protocol.ParseActuatorGet(msg)
	if err != nil {
		s.logger.Warn("malformed actuator get", "channel", msg.Channel, "error", err)
		return
	}
	s.PublishActuatorStatus(deviceKey, reference)
}

func (s *Service) handleConfigurationSet(msg model.Message) {
	deviceKey := s.protocol.ExtractDeviceKey(msg.Channel)
	items, err := s.protocol.ParseConfigurationSet(msg)
	if err != nil {
		s.logger.Warn("malformed configuration set", "channel", msg.Channel, "error", err)
		return
	}

	for _, item := range items {
		if !s.registry.ConfigurationItemDefinedForDevice(deviceKey, item.Reference) {
			s.logger.Error("configuration set with unknown reference",
				"device", deviceKey, "reference", item.Reference)
			return
		}
	}
	if s.configurationHandler == nil {
		s.logger.Error("configuration set without handler", "device", deviceKey)
		return
	}

	s.configurationHandler(deviceKey, items)
	s.PublishConfiguration(deviceKey, nil)
}

func (s *Service) handleConfigurationGet(msg model.Message) {
	deviceKey := s.protocol.ExtractDeviceKey(msg.Channel)
	s.PublishConfiguration(deviceKey, nil)
}

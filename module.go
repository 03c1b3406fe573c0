package gatewaymodule

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nerrad567/gateway-module-core/internal/command"
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

// reconnectDelay is the constant back-off between broker connection attempts.
const reconnectDelay = 2000 * time.Millisecond

// Module proxies subdevices onto the gateway bus.
//
// Thread Safety:
//   - All public methods are safe from any goroutine; they enqueue work on
//     the command worker and return immediately.
//   - Registry, connection flag, and firmware state live on the worker only.
type Module struct {
	buffer   *command.Buffer
	registry *deviceRegistry
	conn     *connectivity
	router   *router.Router
	logger   Logger

	dataProtocol         *protocol.DataProtocol
	statusProtocol       *protocol.StatusProtocol
	registrationProtocol *protocol.RegistrationProtocol
	firmwareProtocol     *protocol.FirmwareProtocol
	platformProtocol     *protocol.PlatformStatusProtocol

	dataService         *data.Service
	statusService       *status.Service
	registrationService *registration.Service
	firmwareService     *firmware.Service
	platformService     *platformstatus.Service

	deviceStatusProvider status.DeviceStatusProvider
	hasConfiguration     bool

	// connected is the module's view of the session, distinct from the MQTT
	// client's: it goes false on Disconnect before the session closes.
	connected bool
}

// AddSensorReading queues one sensor sample for publishing.
//
// The value may be a bool, any integer, float, string, or a slice of those
// (multi-value reading). A zero rtc is replaced with the current time in
// milliseconds.
//
// Returns:
//   - error: ErrInvalidValue when the value type is unsupported; validation
//     against the device template happens asynchronously and is logged.
func (m *Module) AddSensorReading(deviceKey, reference string, value any, rtc uint64) error {
	values, err := model.FormatValue(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	m.buffer.Push(func() {
		m.dataService.AddSensorReading(deviceKey, reference, values, rtc)
	})
	return nil
}

// AddAlarm queues one alarm state change for publishing. A zero rtc is
// replaced with the current time in milliseconds.
func (m *Module) AddAlarm(deviceKey, reference string, active bool, rtc uint64) {
	m.buffer.Push(func() {
		m.dataService.AddAlarm(deviceKey, reference, active, rtc)
	})
}

// PublishActuatorStatus reads the actuator's status from the provider and
// publishes it. An optional value overrides the reported value while keeping
// the provider's state.
func (m *Module) PublishActuatorStatus(deviceKey, reference string, value ...string) {
	m.buffer.Push(func() {
		if len(value) > 0 {
			m.dataService.PublishActuatorStatusValue(deviceKey, reference, value[0])
			return
		}
		m.dataService.PublishActuatorStatus(deviceKey, reference)
	})
}

// PublishConfiguration publishes the device's configuration snapshot. With
// no items the snapshot is read from the configuration provider.
func (m *Module) PublishConfiguration(deviceKey string, items ...model.ConfigurationItem) {
	m.buffer.Push(func() {
		m.dataService.PublishConfiguration(deviceKey, items)
	})
}

// AddDeviceStatus publishes an explicit device status update.
func (m *Module) AddDeviceStatus(deviceKey string, deviceStatus model.DeviceStatus) {
	m.buffer.Push(func() {
		m.statusService.PublishDeviceStatusUpdate(deviceKey, deviceStatus)
	})
}

// PublishDeviceStatus reads the device's status from the provider and
// publishes an update.
func (m *Module) PublishDeviceStatus(deviceKey string) {
	m.buffer.Push(func() {
		m.statusService.PublishDeviceStatusUpdate(deviceKey, m.deviceStatusProvider(deviceKey))
	})
}

// Publish drains all persistent publish queues once. Safe to call
// opportunistically; items survive failed publishes.
func (m *Module) Publish() {
	m.buffer.Push(func() { m.publishAll("") })
}

// PublishDevice drains the persistent publish queues for one device.
func (m *Module) PublishDevice(deviceKey string) {
	m.buffer.Push(func() { m.publishAll(deviceKey) })
}

// Connect brings the module online: connect to the broker, subscribe, and
// run the bootstrap sequence for every registered device. Connection
// failures retry forever with a constant back-off.
//
// When publishRightAway is true the persistent queues are drained at the end
// of the bootstrap.
func (m *Module) Connect(publishRightAway bool) {
	m.buffer.Push(func() { m.connectAndBootstrap(publishRightAway) })
}

// Disconnect takes the module offline. Queued readings stay persisted and
// are drained after the next Connect.
func (m *Module) Disconnect() {
	m.buffer.Push(func() {
		m.connected = false
		m.conn.disconnect()
	})
}

// Close disconnects, drains the command queue to quiescence, and joins the
// worker. The module cannot be reused afterwards.
//
// Must not be called from a module callback.
func (m *Module) Close() {
	m.Disconnect()
	m.buffer.Stop()
}

// AddDevice registers a subdevice with the module. On a connected module the
// device's channels are subscribed and its registration request published
// immediately.
//
// Returns:
//   - error: ErrInvalidDevice for an empty key or name, or a key or
//     reference containing the reserved "+" separator. Duplicate keys are
//     detected asynchronously and logged.
func (m *Module) AddDevice(device model.Subdevice) error {
	if err := validateDevice(device); err != nil {
		return err
	}
	m.buffer.Push(func() {
		if !m.registry.add(device) {
			m.logger.Error("device key already registered", "device", device.Key)
			return
		}
		m.statusService.DevicesUpdated(m.registry.DeviceKeys())
		if !m.connected {
			return
		}
		if err := m.conn.subscribe(m.deviceChannels(device.Key)); err != nil {
			m.logger.Error("subscribing new device channels", "device", device.Key, "error", err)
		}
		m.bootstrapDevice(device)
	})
	return nil
}

// AddAssetsToDevice extends an already registered device with additional
// capability templates and publishes the corresponding update request.
//
// Assets whose reference already exists on the device must be structurally
// identical to the registered template; any mismatch drops the whole
// request. Already known assets are skipped, so repeating a request is
// harmless.
func (m *Module) AddAssetsToDevice(request model.SubdeviceUpdateRequest) error {
	if strings.Contains(request.DeviceKey, persistence.KeyDelimiter) || request.DeviceKey == "" {
		return ErrInvalidDevice
	}
	for _, s := range request.Sensors {
		if s.Reference == "" || strings.Contains(s.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, a := range request.Actuators {
		if a.Reference == "" || strings.Contains(a.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, a := range request.Alarms {
		if a.Reference == "" || strings.Contains(a.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, c := range request.Configurations {
		if c.Reference == "" || strings.Contains(c.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	m.buffer.Push(func() { m.addAssets(request) })
	return nil
}

// RemoveDevice deregisters a subdevice. On a connected module its channels
// are unsubscribed and the last will refreshed. Persisted readings for the
// device are left queued; they drain if the device is added again.
func (m *Module) RemoveDevice(deviceKey string) {
	m.buffer.Push(func() {
		if !m.registry.remove(deviceKey) {
			m.logger.Warn("removing unknown device", "device", deviceKey)
			return
		}
		m.statusService.DevicesUpdated(m.registry.DeviceKeys())
		if !m.connected {
			return
		}
		if err := m.conn.unsubscribe(m.deviceChannels(deviceKey)); err != nil {
			m.logger.Warn("unsubscribing removed device channels", "device", deviceKey, "error", err)
		}
	})
}

// connectAndBootstrap runs on the worker. On connection failure it
// re-enqueues itself after the back-off, so inbound commands queued in the
// meantime are still processed in order.
func (m *Module) connectAndBootstrap(publishRightAway bool) {
	if m.connected {
		return
	}

	m.statusService.DevicesUpdated(m.registry.DeviceKeys())

	channels := m.router.Channels(m.registry.DeviceKeys())
	if err := m.conn.connect(channels); err != nil {
		m.logger.Warn("broker connection failed",
			"error", err, "retry_in", reconnectDelay.String())
		m.buffer.Push(func() {
			time.Sleep(reconnectDelay)
			m.connectAndBootstrap(publishRightAway)
		})
		return
	}

	m.connected = true
	m.logger.Info("connected to broker", "devices", len(m.registry.DeviceKeys()))

	for _, device := range m.registry.all() {
		m.bootstrapDevice(device)
	}
	if publishRightAway {
		m.publishAll("")
	}
}

// bootstrapDevice publishes the full presence of one device: registration,
// firmware version, device status, actuator statuses, and configuration.
func (m *Module) bootstrapDevice(device model.Subdevice) {
	m.registrationService.PublishRegistrationRequest(device)
	m.firmwareService.PublishFirmwareVersion(device.Key)
	m.statusService.PublishDeviceStatusUpdate(device.Key, m.deviceStatusProvider(device.Key))

	for _, ref := range device.Template.ActuatorReferences() {
		m.dataService.PublishActuatorStatus(device.Key, ref)
	}
	if m.hasConfiguration && len(device.Template.Configurations) > 0 {
		m.dataService.PublishConfiguration(device.Key, nil)
	}
}

// connectionLost runs on the worker after the broker session drops.
func (m *Module) connectionLost(err error) {
	if !m.connected {
		return
	}
	m.connected = false
	m.logger.Warn("broker connection lost", "error", err)
	m.connectAndBootstrap(true)
}

// registrationResponse runs on the worker for every parsed registration or
// update response. A positive result re-announces the device's current
// state, since the platform may have just (re)created it.
func (m *Module) registrationResponse(response model.SubdeviceRegistrationResponse) {
	if response.Result != model.RegistrationOK {
		return
	}
	device, ok := m.registry.get(response.DeviceKey)
	if !ok {
		return
	}

	for _, ref := range device.Template.ActuatorReferences() {
		m.dataService.PublishActuatorStatus(device.Key, ref)
	}
	if m.hasConfiguration && len(device.Template.Configurations) > 0 {
		m.dataService.PublishConfiguration(device.Key, nil)
	}
	m.firmwareService.PublishFirmwareVersion(device.Key)
}

// publishAll drains the four persistent queues once. An empty deviceKey
// drains every device.
func (m *Module) publishAll(deviceKey string) {
	m.dataService.PublishSensorReadings(deviceKey)
	m.dataService.PublishAlarms(deviceKey)
	m.dataService.PublishActuatorStatuses(deviceKey)
	m.dataService.PublishConfigurations(deviceKey)
}

// addAssets runs on the worker: validate against the registered template,
// extend it with the new assets, and publish the update request.
func (m *Module) addAssets(request model.SubdeviceUpdateRequest) {
	device, ok := m.registry.get(request.DeviceKey)
	if !ok {
		m.logger.Error("asset update for unknown device", "device", request.DeviceKey)
		return
	}

	update := model.SubdeviceUpdateRequest{
		DeviceKey:              request.DeviceKey,
		UpdateDefaultSemantics: request.UpdateDefaultSemantics,
	}

	for _, s := range request.Sensors {
		existing, defined := device.Template.SensorByReference(s.Reference)
		if defined {
			if existing != s {
				m.logger.Error("sensor asset conflicts with registered template",
					"device", device.Key, "reference", s.Reference)
				return
			}
			continue
		}
		update.Sensors = append(update.Sensors, s)
	}
	for _, a := range request.Actuators {
		existing, defined := device.Template.ActuatorByReference(a.Reference)
		if defined {
			if !actuatorTemplatesEqual(existing, a) {
				m.logger.Error("actuator asset conflicts with registered template",
					"device", device.Key, "reference", a.Reference)
				return
			}
			continue
		}
		update.Actuators = append(update.Actuators, a)
	}
	for _, a := range request.Alarms {
		existing, defined := device.Template.AlarmByReference(a.Reference)
		if defined {
			if existing != a {
				m.logger.Error("alarm asset conflicts with registered template",
					"device", device.Key, "reference", a.Reference)
				return
			}
			continue
		}
		update.Alarms = append(update.Alarms, a)
	}
	for _, c := range request.Configurations {
		existing, defined := device.Template.ConfigurationByReference(c.Reference)
		if defined {
			if !configurationTemplatesEqual(existing, c) {
				m.logger.Error("configuration asset conflicts with registered template",
					"device", device.Key, "reference", c.Reference)
				return
			}
			continue
		}
		update.Configurations = append(update.Configurations, c)
	}

	noNewAssets := len(update.Sensors) == 0 && len(update.Actuators) == 0 &&
		len(update.Alarms) == 0 && len(update.Configurations) == 0
	if noNewAssets && !update.UpdateDefaultSemantics {
		m.logger.Debug("asset update carries nothing new", "device", device.Key)
		return
	}

	device.Template.Sensors = append(device.Template.Sensors, update.Sensors...)
	device.Template.Actuators = append(device.Template.Actuators, update.Actuators...)
	device.Template.Alarms = append(device.Template.Alarms, update.Alarms...)
	device.Template.Configurations = append(device.Template.Configurations, update.Configurations...)
	m.registry.replace(device)

	m.registrationService.PublishUpdateRequest(update)
}

// deviceChannels returns every protocol's inbound channels for one device.
func (m *Module) deviceChannels(deviceKey string) []string {
	var out []string
	for _, p := range []protocol.Protocol{
		m.dataProtocol,
		m.statusProtocol,
		m.registrationProtocol,
		m.firmwareProtocol,
		m.platformProtocol,
	} {
		out = append(out, p.InboundChannelsForDevice(deviceKey)...)
	}
	return out
}

func actuatorTemplatesEqual(a, b model.ActuatorTemplate) bool {
	return a.Name == b.Name &&
		a.Reference == b.Reference &&
		a.DataType == b.DataType &&
		a.Description == b.Description &&
		floatPtrEqual(a.Minimum, b.Minimum) &&
		floatPtrEqual(a.Maximum, b.Maximum)
}

func configurationTemplatesEqual(a, b model.ConfigurationTemplate) bool {
	return a.Name == b.Name &&
		a.Reference == b.Reference &&
		a.DataType == b.DataType &&
		a.Description == b.Description &&
		a.DefaultValue == b.DefaultValue &&
		slices.Equal(a.Labels, b.Labels) &&
		floatPtrEqual(a.Minimum, b.Minimum) &&
		floatPtrEqual(a.Maximum, b.Maximum)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

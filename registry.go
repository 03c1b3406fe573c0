package gatewaymodule

import (
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

// deviceRegistry holds the subdevices the module currently proxies.
//
// It is consumer-thread-only: every access happens on the command worker, so
// no locking is needed.
type deviceRegistry struct {
	// devices is keyed by device key; order preserves insertion so channel
	// lists and bootstrap sequences are deterministic.
	devices map[string]model.Subdevice
	order   []string
}

func newDeviceRegistry() *deviceRegistry {
	return &deviceRegistry{devices: make(map[string]model.Subdevice)}
}

// validateDevice checks that a subdevice description can be proxied. The
// persistence key delimiter is reserved and must not appear in the device key
// or any capability reference.
func validateDevice(device model.Subdevice) error {
	if device.Key == "" || device.Name == "" {
		return ErrInvalidDevice
	}
	if strings.Contains(device.Key, persistence.KeyDelimiter) {
		return ErrInvalidDevice
	}
	for _, s := range device.Template.Sensors {
		if s.Reference == "" || strings.Contains(s.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, a := range device.Template.Actuators {
		if a.Reference == "" || strings.Contains(a.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, a := range device.Template.Alarms {
		if a.Reference == "" || strings.Contains(a.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	for _, c := range device.Template.Configurations {
		if c.Reference == "" || strings.Contains(c.Reference, persistence.KeyDelimiter) {
			return ErrInvalidDevice
		}
	}
	return nil
}

// add stores the device. Returns false when the key is already registered.
func (r *deviceRegistry) add(device model.Subdevice) bool {
	if _, exists := r.devices[device.Key]; exists {
		return false
	}
	r.devices[device.Key] = device
	r.order = append(r.order, device.Key)
	return true
}

// remove drops the device. Returns false when the key is unknown.
func (r *deviceRegistry) remove(deviceKey string) bool {
	if _, exists := r.devices[deviceKey]; !exists {
		return false
	}
	delete(r.devices, deviceKey)
	for i, key := range r.order {
		if key == deviceKey {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// replace overwrites an existing device's description, keeping its position.
func (r *deviceRegistry) replace(device model.Subdevice) {
	if _, exists := r.devices[device.Key]; !exists {
		return
	}
	r.devices[device.Key] = device
}

func (r *deviceRegistry) get(deviceKey string) (model.Subdevice, bool) {
	device, ok := r.devices[deviceKey]
	return device, ok
}

// all returns the registered devices in insertion order.
func (r *deviceRegistry) all() []model.Subdevice {
	out := make([]model.Subdevice, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.devices[key])
	}
	return out
}

// DeviceKeys returns the registered device keys in insertion order.
func (r *deviceRegistry) DeviceKeys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DeviceExists reports whether the key is registered.
func (r *deviceRegistry) DeviceExists(deviceKey string) bool {
	_, ok := r.devices[deviceKey]
	return ok
}

// SensorDefinedForDevice reports whether the device's template defines the
// sensor reference.
func (r *deviceRegistry) SensorDefinedForDevice(deviceKey, reference string) bool {
	device, ok := r.devices[deviceKey]
	if !ok {
		return false
	}
	_, ok = device.Template.SensorByReference(reference)
	return ok
}

// AlarmDefinedForDevice reports whether the device's template defines the
// alarm reference.
func (r *deviceRegistry) AlarmDefinedForDevice(deviceKey, reference string) bool {
	device, ok := r.devices[deviceKey]
	if !ok {
		return false
	}
	_, ok = device.Template.AlarmByReference(reference)
	return ok
}

// ActuatorDefinedForDevice reports whether the device's template defines the
// actuator reference.
func (r *deviceRegistry) ActuatorDefinedForDevice(deviceKey, reference string) bool {
	device, ok := r.devices[deviceKey]
	if !ok {
		return false
	}
	_, ok = device.Template.ActuatorByReference(reference)
	return ok
}

// ConfigurationItemDefinedForDevice reports whether the device's template
// defines the configuration reference.
func (r *deviceRegistry) ConfigurationItemDefinedForDevice(deviceKey, reference string) bool {
	device, ok := r.devices[deviceKey]
	if !ok {
		return false
	}
	_, ok = device.Template.ConfigurationByReference(reference)
	return ok
}

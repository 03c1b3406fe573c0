package model

import "time"

// SensorReading is one timestamped sensor sample. Values holds one entry for
// a scalar reading and several for a multi-value reading (order preserved).
// RTC is milliseconds since the Unix epoch; zero at ingestion means "stamp
// with the current time".
type SensorReading struct {
	Reference string
	Values    []string
	RTC       uint64
}

// Alarm is one timestamped alarm state change.
type Alarm struct {
	Reference string
	Active    bool
	RTC       uint64
}

// ActuatorState is the reported condition of an actuator.
type ActuatorState string

const (
	ActuatorStateReady ActuatorState = "READY"
	ActuatorStateBusy  ActuatorState = "BUSY"
	ActuatorStateError ActuatorState = "ERROR"
)

// Valid reports whether s is one of the states the codec publishes.
func (s ActuatorState) Valid() bool {
	switch s {
	case ActuatorStateReady, ActuatorStateBusy, ActuatorStateError:
		return true
	}
	return false
}

// ActuatorStatus is the current value and state of one actuator. It is
// ephemeral: each new status replaces the previous one in persistence.
type ActuatorStatus struct {
	Reference string
	Value     string
	State     ActuatorState
}

// ConfigurationItem is one configuration reference with its current values
// (one entry for scalar items, several for multi-value items).
type ConfigurationItem struct {
	Reference string
	Values    []string
}

// ConfigurationSnapshot is the full current configuration of one subdevice.
// Ephemeral: one snapshot per device, replace-on-put.
type ConfigurationSnapshot struct {
	Items []ConfigurationItem
}

// CurrentRTC returns the current wall-clock time in milliseconds since the
// Unix epoch. All reading timestamps in the module come from here.
func CurrentRTC() uint64 {
	return uint64(time.Now().UnixMilli())
}

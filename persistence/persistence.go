package persistence

import (
	"errors"
	"strings"

	"github.com/nerrad567/gateway-module-core/model"
)

// KeyDelimiter separates the device key from the capability reference inside
// a composite persistence key. Device keys and references must not contain it.
const KeyDelimiter = "+"

// ErrInvalidKey is returned when a composite key cannot be split into a
// device key and a reference.
var ErrInvalidKey = errors.New("persistence: invalid composite key")

// MakeKey builds the composite persistence key for one (device, capability)
// pair.
func MakeKey(deviceKey, reference string) string {
	return deviceKey + KeyDelimiter + reference
}

// ParseKey splits a composite key into its device key and reference parts.
func ParseKey(key string) (deviceKey, reference string, err error) {
	i := strings.Index(key, KeyDelimiter)
	if i <= 0 || i == len(key)-1 {
		return "", "", ErrInvalidKey
	}
	return key[:i], key[i+1:], nil
}

// Store is the durable backing for the publish pipeline.
//
// Put operations are total: they never reject an item. Get operations peek at
// up to n items from the front of a key's queue without removing them; Remove
// operations pop up to n items. Keys methods return the keys that currently
// hold items, in insertion order.
//
// Thread Safety:
//   - Implementations must be safe for concurrent producers and a single
//     consumer.
type Store interface {
	PutSensorReading(key string, reading model.SensorReading) error
	GetSensorReadings(key string, n int) ([]model.SensorReading, error)
	RemoveSensorReadings(key string, n int) error
	GetSensorReadingsKeys() []string

	PutAlarm(key string, alarm model.Alarm) error
	GetAlarms(key string, n int) ([]model.Alarm, error)
	RemoveAlarms(key string, n int) error
	GetAlarmsKeys() []string

	PutActuatorStatus(key string, status model.ActuatorStatus) error
	GetActuatorStatus(key string) (model.ActuatorStatus, bool, error)
	RemoveActuatorStatus(key string) error
	GetActuatorStatusKeys() []string

	PutConfiguration(deviceKey string, configuration model.ConfigurationSnapshot) error
	GetConfiguration(deviceKey string) (model.ConfigurationSnapshot, bool, error)
	RemoveConfiguration(deviceKey string) error
	GetConfigurationKeys() []string

	// IsEmpty reports whether no items of any kind remain.
	IsEmpty() bool
}

package persistence

import (
	"sync"

	"github.com/nerrad567/gateway-module-core/model"
)

// InMemory is the default Store: FIFO queues and replace-on-put slots held in
// process memory. Contents do not survive a restart.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type InMemory struct {
	mu sync.Mutex

	readings     map[string][]model.SensorReading
	readingKeys  []string
	alarms       map[string][]model.Alarm
	alarmKeys    []string
	statuses     map[string]model.ActuatorStatus
	statusKeys   []string
	snapshots    map[string]model.ConfigurationSnapshot
	snapshotKeys []string
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		readings:  make(map[string][]model.SensorReading),
		alarms:    make(map[string][]model.Alarm),
		statuses:  make(map[string]model.ActuatorStatus),
		snapshots: make(map[string]model.ConfigurationSnapshot),
	}
}

// PutSensorReading appends a reading to the key's queue.
func (s *InMemory) PutSensorReading(key string, reading model.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.readings[key]; !ok {
		s.readingKeys = append(s.readingKeys, key)
	}
	s.readings[key] = append(s.readings[key], reading)
	return nil
}

// GetSensorReadings peeks at up to n readings from the front of the key's queue.
func (s *InMemory) GetSensorReadings(key string, n int) ([]model.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.readings[key]
	if n > len(queue) {
		n = len(queue)
	}
	out := make([]model.SensorReading, n)
	copy(out, queue[:n])
	return out, nil
}

// RemoveSensorReadings pops up to n readings from the front of the key's queue.
func (s *InMemory) RemoveSensorReadings(key string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.readings[key]
	if n >= len(queue) {
		delete(s.readings, key)
		s.readingKeys = removeKey(s.readingKeys, key)
		return nil
	}
	s.readings[key] = queue[n:]
	return nil
}

// GetSensorReadingsKeys returns the keys holding readings, in insertion order.
func (s *InMemory) GetSensorReadingsKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.readingKeys))
	copy(out, s.readingKeys)
	return out
}

// PutAlarm appends an alarm to the key's queue.
func (s *InMemory) PutAlarm(key string, alarm model.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alarms[key]; !ok {
		s.alarmKeys = append(s.alarmKeys, key)
	}
	s.alarms[key] = append(s.alarms[key], alarm)
	return nil
}

// GetAlarms peeks at up to n alarms from the front of the key's queue.
func (s *InMemory) GetAlarms(key string, n int) ([]model.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.alarms[key]
	if n > len(queue) {
		n = len(queue)
	}
	out := make([]model.Alarm, n)
	copy(out, queue[:n])
	return out, nil
}

// RemoveAlarms pops up to n alarms from the front of the key's queue.
func (s *InMemory) RemoveAlarms(key string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.alarms[key]
	if n >= len(queue) {
		delete(s.alarms, key)
		s.alarmKeys = removeKey(s.alarmKeys, key)
		return nil
	}
	s.alarms[key] = queue[n:]
	return nil
}

// GetAlarmsKeys returns the keys holding alarms, in insertion order.
func (s *InMemory) GetAlarmsKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.alarmKeys))
	copy(out, s.alarmKeys)
	return out
}

// PutActuatorStatus stores the status for the key, replacing any previous one.
func (s *InMemory) PutActuatorStatus(key string, status model.ActuatorStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[key]; !ok {
		s.statusKeys = append(s.statusKeys, key)
	}
	s.statuses[key] = status
	return nil
}

// GetActuatorStatus returns the stored status for the key, if any.
func (s *InMemory) GetActuatorStatus(key string) (model.ActuatorStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[key]
	return status, ok, nil
}

// RemoveActuatorStatus drops the stored status for the key.
func (s *InMemory) RemoveActuatorStatus(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[key]; ok {
		delete(s.statuses, key)
		s.statusKeys = removeKey(s.statusKeys, key)
	}
	return nil
}

// GetActuatorStatusKeys returns the keys holding statuses, in insertion order.
func (s *InMemory) GetActuatorStatusKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.statusKeys))
	copy(out, s.statusKeys)
	return out
}

// PutConfiguration stores the snapshot for the device, replacing any previous one.
func (s *InMemory) PutConfiguration(deviceKey string, configuration model.ConfigurationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[deviceKey]; !ok {
		s.snapshotKeys = append(s.snapshotKeys, deviceKey)
	}
	s.snapshots[deviceKey] = configuration
	return nil
}

// GetConfiguration returns the stored snapshot for the device, if any.
func (s *InMemory) GetConfiguration(deviceKey string) (model.ConfigurationSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[deviceKey]
	return snapshot, ok, nil
}

// RemoveConfiguration drops the stored snapshot for the device.
func (s *InMemory) RemoveConfiguration(deviceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[deviceKey]; ok {
		delete(s.snapshots, deviceKey)
		s.snapshotKeys = removeKey(s.snapshotKeys, deviceKey)
	}
	return nil
}

// GetConfigurationKeys returns the device keys holding snapshots, in insertion order.
func (s *InMemory) GetConfigurationKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.snapshotKeys))
	copy(out, s.snapshotKeys)
	return out
}

// IsEmpty reports whether no items of any kind remain.
func (s *InMemory) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.readings) == 0 && len(s.alarms) == 0 &&
		len(s.statuses) == 0 && len(s.snapshots) == 0
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

package persistence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
)

func TestMakeAndParseKey(t *testing.T) {
	key := MakeKey("DEVICE_KEY_1", "T")
	assert.Equal(t, "DEVICE_KEY_1+T", key)

	deviceKey, reference, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE_KEY_1", deviceKey)
	assert.Equal(t, "T", reference)
}

func TestParseKeyInvalid(t *testing.T) {
	for _, key := range []string{"", "nodelimiter", "+ref", "device+"} {
		_, _, err := ParseKey(key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestInMemoryReadingsFIFO(t *testing.T) {
	store := NewInMemory()
	key := MakeKey("D1", "T")

	for i := 0; i < 5; i++ {
		err := store.PutSensorReading(key, model.SensorReading{
			Reference: "T",
			Values:    []string{fmt.Sprintf("%d", i)},
			RTC:       uint64(i),
		})
		require.NoError(t, err)
	}

	readings, err := store.GetSensorReadings(key, 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, []string{"0"}, readings[0].Values)
	assert.Equal(t, []string{"2"}, readings[2].Values)

	// Peek does not consume.
	again, err := store.GetSensorReadings(key, 3)
	require.NoError(t, err)
	assert.Equal(t, readings, again)

	require.NoError(t, store.RemoveSensorReadings(key, 3))
	rest, err := store.GetSensorReadings(key, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, []string{"3"}, rest[0].Values)

	require.NoError(t, store.RemoveSensorReadings(key, 10))
	assert.Empty(t, store.GetSensorReadingsKeys())
	assert.True(t, store.IsEmpty())
}

func TestInMemoryKeysInsertionOrder(t *testing.T) {
	store := NewInMemory()

	keys := []string{"D1+T", "D2+P", "D1+H"}
	for _, key := range keys {
		require.NoError(t, store.PutSensorReading(key, model.SensorReading{Reference: "r"}))
	}
	assert.Equal(t, keys, store.GetSensorReadingsKeys())

	// Draining the middle key keeps the order of the rest.
	require.NoError(t, store.RemoveSensorReadings("D2+P", 1))
	assert.Equal(t, []string{"D1+T", "D1+H"}, store.GetSensorReadingsKeys())
}

func TestInMemoryActuatorStatusReplaceOnPut(t *testing.T) {
	store := NewInMemory()
	key := MakeKey("D1", "SW")

	require.NoError(t, store.PutActuatorStatus(key, model.ActuatorStatus{
		Reference: "SW", Value: "false", State: model.ActuatorStateReady,
	}))
	require.NoError(t, store.PutActuatorStatus(key, model.ActuatorStatus{
		Reference: "SW", Value: "true", State: model.ActuatorStateBusy,
	}))

	status, ok, err := store.GetActuatorStatus(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", status.Value)
	assert.Equal(t, model.ActuatorStateBusy, status.State)
	assert.Equal(t, []string{key}, store.GetActuatorStatusKeys())

	require.NoError(t, store.RemoveActuatorStatus(key))
	_, ok, err = store.GetActuatorStatus(key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, store.IsEmpty())
}

func TestInMemoryConfigurationSnapshot(t *testing.T) {
	store := NewInMemory()

	require.NoError(t, store.PutConfiguration("D1", model.ConfigurationSnapshot{
		Items: []model.ConfigurationItem{{Reference: "HB", Values: []string{"10"}}},
	}))
	require.NoError(t, store.PutConfiguration("D1", model.ConfigurationSnapshot{
		Items: []model.ConfigurationItem{{Reference: "HB", Values: []string{"20"}}},
	}))

	snapshot, ok, err := store.GetConfiguration("D1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, []string{"20"}, snapshot.Items[0].Values)

	require.NoError(t, store.RemoveConfiguration("D1"))
	assert.Empty(t, store.GetConfigurationKeys())
}

func TestInMemoryAlarms(t *testing.T) {
	store := NewInMemory()
	key := MakeKey("D1", "HH")

	require.NoError(t, store.PutAlarm(key, model.Alarm{Reference: "HH", Active: true, RTC: 1}))
	require.NoError(t, store.PutAlarm(key, model.Alarm{Reference: "HH", Active: false, RTC: 2}))

	alarms, err := store.GetAlarms(key, 10)
	require.NoError(t, err)
	require.Len(t, alarms, 2)
	assert.True(t, alarms[0].Active)
	assert.False(t, alarms[1].Active)

	require.NoError(t, store.RemoveAlarms(key, 1))
	alarms, err = store.GetAlarms(key, 10)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.False(t, alarms[0].Active)
}

func TestInMemoryConcurrentProducers(t *testing.T) {
	store := NewInMemory()
	key := MakeKey("D1", "T")

	var wg sync.WaitGroup
	const producers = 8
	const perProducer = 100

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = store.PutSensorReading(key, model.SensorReading{Reference: "T"})
			}
		}()
	}
	wg.Wait()

	readings, err := store.GetSensorReadings(key, producers*perProducer+1)
	require.NoError(t, err)
	assert.Len(t, readings, producers*perProducer)
}

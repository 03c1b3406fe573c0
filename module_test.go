package gatewaymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

// newTestModule builds a module with an in-memory store and no broker. The
// connectivity layer rejects publishes while disconnected, so queued items
// stay persisted, which is exactly what these tests assert on.
func newTestModule(t *testing.T) (*Module, *persistence.InMemory) {
	t.Helper()
	store := persistence.NewInMemory()
	module, err := completeBuilder().Persistence(store).Build()
	require.NoError(t, err)
	t.Cleanup(module.Close)
	return module, store
}

// drain blocks until every command queued before the call has executed.
func drain(m *Module) {
	done := make(chan struct{})
	m.buffer.Push(func() { close(done) })
	<-done
}

func TestAddSensorReadingPersists(t *testing.T) {
	module, store := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	require.NoError(t, module.AddSensorReading("D1", "T", 21.5, 10))
	drain(module)

	readings, err := store.GetSensorReadings(persistence.MakeKey("D1", "T"), 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, []string{"21.5"}, readings[0].Values)
	assert.Equal(t, uint64(10), readings[0].RTC)
}

func TestAddSensorReadingMultiValue(t *testing.T) {
	module, store := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	require.NoError(t, module.AddSensorReading("D1", "T", []float64{0.1, 0.2, 9.8}, 10))
	drain(module)

	readings, err := store.GetSensorReadings(persistence.MakeKey("D1", "T"), 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, []string{"0.1", "0.2", "9.8"}, readings[0].Values)
}

func TestAddSensorReadingUnsupportedValue(t *testing.T) {
	module, _ := newTestModule(t)

	err := module.AddSensorReading("D1", "T", struct{}{}, 0)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAddSensorReadingUnknownDeviceDropped(t *testing.T) {
	module, store := newTestModule(t)

	require.NoError(t, module.AddSensorReading("D1", "T", 1, 0))
	drain(module)

	assert.True(t, store.IsEmpty())
}

func TestAddAlarmPersists(t *testing.T) {
	module, store := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	module.AddAlarm("D1", "HH", true, 10)
	drain(module)

	alarms, err := store.GetAlarms(persistence.MakeKey("D1", "HH"), 10)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.True(t, alarms[0].Active)
}

func TestPublishWithoutConnectionKeepsItems(t *testing.T) {
	module, store := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	require.NoError(t, module.AddSensorReading("D1", "T", 1, 10))
	module.Publish()
	drain(module)

	readings, err := store.GetSensorReadings(persistence.MakeKey("D1", "T"), 10)
	require.NoError(t, err)
	assert.Len(t, readings, 1, "failed publish must leave the reading queued")
}

func TestAddDeviceValidation(t *testing.T) {
	module, _ := newTestModule(t)

	bad := switchDevice("D+1")
	assert.ErrorIs(t, module.AddDevice(bad), ErrInvalidDevice)

	bad = switchDevice("D1")
	bad.Key = ""
	assert.ErrorIs(t, module.AddDevice(bad), ErrInvalidDevice)
}

func TestAddDeviceDuplicateDropped(t *testing.T) {
	module, _ := newTestModule(t)

	require.NoError(t, module.AddDevice(switchDevice("D1")))
	require.NoError(t, module.AddDevice(switchDevice("D1")))
	drain(module)

	assert.Equal(t, []string{"D1"}, module.registry.DeviceKeys())
}

func TestRemoveDevice(t *testing.T) {
	module, _ := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))
	require.NoError(t, module.AddDevice(switchDevice("D2")))

	module.RemoveDevice("D1")
	module.RemoveDevice("D9")
	drain(module)

	assert.Equal(t, []string{"D2"}, module.registry.DeviceKeys())
}

func TestAddAssetsExtendsTemplate(t *testing.T) {
	module, _ := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	err := module.AddAssetsToDevice(model.SubdeviceUpdateRequest{
		DeviceKey: "D1",
		Sensors: []model.SensorTemplate{
			{Name: "Humidity", Reference: "H", ReadingType: "HUMIDITY"},
		},
	})
	require.NoError(t, err)
	drain(module)

	assert.True(t, module.registry.SensorDefinedForDevice("D1", "H"))
	assert.True(t, module.registry.SensorDefinedForDevice("D1", "T"))
}

func TestAddAssetsConflictDropsRequest(t *testing.T) {
	module, _ := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	err := module.AddAssetsToDevice(model.SubdeviceUpdateRequest{
		DeviceKey: "D1",
		Sensors: []model.SensorTemplate{
			{Name: "Temperature", Reference: "T", ReadingType: "PRESSURE"},
			{Name: "Humidity", Reference: "H", ReadingType: "HUMIDITY"},
		},
	})
	require.NoError(t, err)
	drain(module)

	assert.False(t, module.registry.SensorDefinedForDevice("D1", "H"),
		"a conflicting asset must drop the whole request")
}

func TestAddAssetsMatchingAssetSkipped(t *testing.T) {
	module, _ := newTestModule(t)
	device := switchDevice("D1")
	require.NoError(t, module.AddDevice(device))

	err := module.AddAssetsToDevice(model.SubdeviceUpdateRequest{
		DeviceKey: "D1",
		Sensors:   device.Template.Sensors,
	})
	require.NoError(t, err)
	drain(module)

	registered, ok := module.registry.get("D1")
	require.True(t, ok)
	assert.Len(t, registered.Template.Sensors, 1, "known assets must not be duplicated")
}

func TestAddAssetsValidation(t *testing.T) {
	module, _ := newTestModule(t)

	assert.ErrorIs(t, module.AddAssetsToDevice(model.SubdeviceUpdateRequest{DeviceKey: ""}), ErrInvalidDevice)
	assert.ErrorIs(t, module.AddAssetsToDevice(model.SubdeviceUpdateRequest{
		DeviceKey: "D1",
		Alarms:    []model.AlarmTemplate{{Name: "A", Reference: "a+b"}},
	}), ErrInvalidDevice)
}

func TestPublishActuatorStatusPersistsSlot(t *testing.T) {
	module, store := newTestModule(t)
	require.NoError(t, module.AddDevice(switchDevice("D1")))

	module.PublishActuatorStatus("D1", "SW", "true")
	drain(module)

	status, ok, err := store.GetActuatorStatus(persistence.MakeKey("D1", "SW"))
	require.NoError(t, err)
	require.True(t, ok, "status stays persisted while the publish fails")
	assert.Equal(t, "true", status.Value)
	assert.Equal(t, model.ActuatorStateReady, status.State)
}

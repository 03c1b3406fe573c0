package data

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/internal/protocol"
	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

// fakeRegistry accepts a fixed device with fixed references.
type fakeRegistry struct {
	device         string
	sensors        map[string]bool
	alarms         map[string]bool
	actuators      map[string]bool
	configurations map[string]bool
}

func (r *fakeRegistry) DeviceExists(key string) bool { return key == r.device }
func (r *fakeRegistry) SensorDefinedForDevice(key, ref string) bool {
	return key == r.device && r.sensors[ref]
}
func (r *fakeRegistry) AlarmDefinedForDevice(key, ref string) bool {
	return key == r.device && r.alarms[ref]
}
func (r *fakeRegistry) ActuatorDefinedForDevice(key, ref string) bool {
	return key == r.device && r.actuators[ref]
}
func (r *fakeRegistry) ConfigurationItemDefinedForDevice(key, ref string) bool {
	return key == r.device && r.configurations[ref]
}

// fakePublisher records published messages and can be told to fail.
type fakePublisher struct {
	published []model.Message
	fail      bool
}

func (p *fakePublisher) Publish(msg model.Message) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, msg)
	return nil
}

func newTestService() (*Service, *fakePublisher, persistence.Store) {
	registry := &fakeRegistry{
		device:         "D1",
		sensors:        map[string]bool{"T": true},
		alarms:         map[string]bool{"HH": true},
		actuators:      map[string]bool{"SW": true},
		configurations: map[string]bool{"interval": true},
	}
	publisher := &fakePublisher{}
	store := persistence.NewInMemory()
	svc := New(protocol.NewDataProtocol(), store, publisher, registry)
	return svc, publisher, store
}

func TestAddSensorReadingPersists(t *testing.T) {
	svc, _, store := newTestService()

	svc.AddSensorReading("D1", "T", []string{"23.4"}, 100)

	readings, err := store.GetSensorReadings("D1+T", 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, uint64(100), readings[0].RTC)
	assert.Equal(t, []string{"23.4"}, readings[0].Values)
}

func TestAddSensorReadingSubstitutesRTC(t *testing.T) {
	svc, _, store := newTestService()

	svc.AddSensorReading("D1", "T", []string{"1"}, 0)

	readings, err := store.GetSensorReadings("D1+T", 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.NotZero(t, readings[0].RTC)
}

func TestAddSensorReadingUnknownDeviceDropped(t *testing.T) {
	svc, _, store := newTestService()

	svc.AddSensorReading("NOPE", "T", []string{"1"}, 0)
	svc.AddSensorReading("D1", "NOPE", []string{"1"}, 0)
	svc.AddSensorReading("D1", "T", nil, 0)

	assert.True(t, store.IsEmpty())
}

func TestPublishSensorReadingsDrains(t *testing.T) {
	svc, publisher, store := newTestService()

	svc.AddSensorReading("D1", "T", []string{"1"}, 10)
	svc.AddSensorReading("D1", "T", []string{"2"}, 20)

	svc.PublishSensorReadings("")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "d2p/sensor_reading/d/D1/r/T", publisher.published[0].Channel)
	assert.JSONEq(t, `[{"utc":10,"data":"1"},{"utc":20,"data":"2"}]`, string(publisher.published[0].Payload))
	assert.True(t, store.IsEmpty())
}

func TestPublishSensorReadingsFailureKeepsItems(t *testing.T) {
	svc, publisher, store := newTestService()
	publisher.fail = true

	svc.AddSensorReading("D1", "T", []string{"1"}, 10)
	svc.PublishSensorReadings("")

	readings, err := store.GetSensorReadings("D1+T", 10)
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	// Next drain succeeds and empties the queue.
	publisher.fail = false
	svc.PublishSensorReadings("")
	assert.True(t, store.IsEmpty())
}

func TestPublishSensorReadingsDeviceFilter(t *testing.T) {
	svc, publisher, store := newTestService()

	svc.AddSensorReading("D1", "T", []string{"1"}, 10)
	require.NoError(t, store.PutSensorReading("OTHER+T", model.SensorReading{
		Reference: "T", Values: []string{"9"}, RTC: 5,
	}))

	svc.PublishSensorReadings("D1")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "d2p/sensor_reading/d/D1/r/T", publisher.published[0].Channel)

	other, err := store.GetSensorReadings("OTHER+T", 10)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestPublishAlarmsDrains(t *testing.T) {
	svc, publisher, store := newTestService()

	svc.AddAlarm("D1", "HH", true, 42)
	svc.PublishAlarms("")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "d2p/events/d/D1/r/HH", publisher.published[0].Channel)
	assert.JSONEq(t, `[{"utc":42,"data":"ON"}]`, string(publisher.published[0].Payload))
	assert.True(t, store.IsEmpty())
}

func TestActuatorSetInvokesHandlerThenStatus(t *testing.T) {
	svc, publisher, _ := newTestService()

	var order []string
	current := "false"
	svc.SetActuationHandler(func(deviceKey, reference, value string) {
		order = append(order, "handle")
		current = value
	})
	svc.SetActuatorStatusProvider(func(deviceKey, reference string) model.ActuatorStatus {
		order = append(order, "provide")
		return model.ActuatorStatus{Value: current, State: model.ActuatorStateReady}
	})

	svc.MessageReceived(model.Message{
		Channel: "p2d/actuator_set/d/D1/r/SW",
		Payload: []byte(`{"value":"true"}`),
	})

	assert.Equal(t, []string{"handle", "provide"}, order)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "d2p/actuator_status/d/D1/r/SW", publisher.published[0].Channel)
	assert.JSONEq(t, `{"status":"READY","value":"true"}`, string(publisher.published[0].Payload))
}

func TestActuatorSetUnknownReferenceDropped(t *testing.T) {
	svc, publisher, _ := newTestService()

	handled := false
	svc.SetActuationHandler(func(string, string, string) { handled = true })
	svc.SetActuatorStatusProvider(func(string, string) model.ActuatorStatus {
		return model.ActuatorStatus{State: model.ActuatorStateReady}
	})

	svc.MessageReceived(model.Message{
		Channel: "p2d/actuator_set/d/D1/r/NOPE",
		Payload: []byte(`{"value":"true"}`),
	})

	assert.False(t, handled)
	assert.Empty(t, publisher.published)
}

func TestActuatorGetPublishesProviderStatus(t *testing.T) {
	svc, publisher, _ := newTestService()

	svc.SetActuatorStatusProvider(func(string, string) model.ActuatorStatus {
		return model.ActuatorStatus{Value: "42", State: model.ActuatorStateBusy}
	})

	svc.MessageReceived(model.Message{
		Channel: "p2d/actuator_get/d/D1/r/SW",
		Payload: nil,
	})

	require.Len(t, publisher.published, 1)
	assert.JSONEq(t, `{"status":"BUSY","value":"42"}`, string(publisher.published[0].Payload))
}

func TestPublishActuatorStatusValueOverride(t *testing.T) {
	svc, publisher, _ := newTestService()

	svc.SetActuatorStatusProvider(func(string, string) model.ActuatorStatus {
		return model.ActuatorStatus{Value: "old", State: model.ActuatorStateReady}
	})

	svc.PublishActuatorStatusValue("D1", "SW", "new")

	require.Len(t, publisher.published, 1)
	assert.JSONEq(t, `{"status":"READY","value":"new"}`, string(publisher.published[0].Payload))
}

func TestConfigurationSetRejectsUnknownReference(t *testing.T) {
	svc, publisher, _ := newTestService()

	handled := false
	svc.SetConfigurationHandler(func(string, []model.ConfigurationItem) { handled = true })
	svc.SetConfigurationProvider(func(string) []model.ConfigurationItem { return nil })

	svc.MessageReceived(model.Message{
		Channel: "p2d/configuration_set/d/D1",
		Payload: []byte(`{"values":{"interval":"5","bogus":"1"}}`),
	})

	assert.False(t, handled)
	assert.Empty(t, publisher.published)
}

func TestConfigurationSetInvokesHandlerAndPublishes(t *testing.T) {
	svc, publisher, _ := newTestService()

	var got []model.ConfigurationItem
	svc.SetConfigurationHandler(func(deviceKey string, items []model.ConfigurationItem) {
		got = items
	})
	svc.SetConfigurationProvider(func(string) []model.ConfigurationItem {
		return []model.ConfigurationItem{{Reference: "interval", Values: []string{"5"}}}
	})

	svc.MessageReceived(model.Message{
		Channel: "p2d/configuration_set/d/D1",
		Payload: []byte(`{"values":{"interval":"5"}}`),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "interval", got[0].Reference)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "d2p/configuration_get/d/D1", publisher.published[0].Channel)
	assert.JSONEq(t, `{"values":{"interval":"5"}}`, string(publisher.published[0].Payload))
}

func TestConfigurationGetPublishesSnapshot(t *testing.T) {
	svc, publisher, _ := newTestService()

	svc.SetConfigurationProvider(func(string) []model.ConfigurationItem {
		return []model.ConfigurationItem{{Reference: "interval", Values: []string{"5", "6"}}}
	})

	svc.MessageReceived(model.Message{
		Channel: "p2d/configuration_get/d/D1",
		Payload: nil,
	})

	require.Len(t, publisher.published, 1)
	assert.JSONEq(t, `{"values":{"interval":"5,6"}}`, string(publisher.published[0].Payload))
}

// recordingSink captures mirrored readings.
type recordingSink struct {
	devices []string
	count   int
}

func (r *recordingSink) RecordSensorReadings(deviceKey, reference string, readings []model.SensorReading) {
	r.devices = append(r.devices, deviceKey)
	r.count += len(readings)
}

func TestRecorderMirrorsPublishedReadings(t *testing.T) {
	svc, publisher, _ := newTestService()
	sink := &recordingSink{}
	svc.SetRecorder(sink)

	svc.AddSensorReading("D1", "T", []string{"1"}, 10)
	svc.AddSensorReading("D1", "T", []string{"2"}, 20)

	svc.PublishSensorReadings("")
	require.Len(t, publisher.published, 1)
	assert.Equal(t, []string{"D1"}, sink.devices)
	assert.Equal(t, 2, sink.count)
}

func TestRecorderNotCalledOnFailure(t *testing.T) {
	svc, publisher, _ := newTestService()
	sink := &recordingSink{}
	svc.SetRecorder(sink)
	publisher.fail = true

	svc.AddSensorReading("D1", "T", []string{"1"}, 10)
	svc.PublishSensorReadings("")

	assert.Zero(t, sink.count)
}

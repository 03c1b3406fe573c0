package gatewaymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gateway-module-core/model"
)

func completeBuilder() *Builder {
	return NewBuilder("localhost", 1883).
		ActuationHandler(func(string, string, string) {}).
		ActuatorStatusProvider(func(string, string) model.ActuatorStatus {
			return model.ActuatorStatus{State: model.ActuatorStateReady}
		}).
		DeviceStatusProvider(func(string) model.DeviceStatus {
			return model.DeviceStatusConnected
		})
}

func TestBuildComplete(t *testing.T) {
	module, err := completeBuilder().Build()
	require.NoError(t, err)
	defer module.Close()
}

func TestBuildContract(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{
			"missing actuation handler",
			NewBuilder("localhost", 1883).
				ActuatorStatusProvider(func(string, string) model.ActuatorStatus { return model.ActuatorStatus{} }).
				DeviceStatusProvider(func(string) model.DeviceStatus { return model.DeviceStatusConnected }),
		},
		{
			"missing actuator status provider",
			NewBuilder("localhost", 1883).
				ActuationHandler(func(string, string, string) {}).
				DeviceStatusProvider(func(string) model.DeviceStatus { return model.DeviceStatusConnected }),
		},
		{
			"missing device status provider",
			NewBuilder("localhost", 1883).
				ActuationHandler(func(string, string, string) {}).
				ActuatorStatusProvider(func(string, string) model.ActuatorStatus { return model.ActuatorStatus{} }),
		},
		{
			"configuration handler without provider",
			completeBuilder().ConfigurationHandling(func(string, []model.ConfigurationItem) {}, nil),
		},
		{
			"firmware installer without version provider",
			completeBuilder().FirmwareHandling(&nopInstaller{}, nil),
		},
		{
			"empty broker host",
			func() *Builder {
				b := completeBuilder()
				b.cfg.Broker.Host = ""
				return b
			}(),
		},
		{
			"broker port out of range",
			func() *Builder {
				b := completeBuilder()
				b.cfg.Broker.Port = 70000
				return b
			}(),
		},
		{
			"invalid qos",
			completeBuilder().QoS(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

type nopInstaller struct{}

func (nopInstaller) Install(string, string, func(), func()) {}
func (nopInstaller) Abort(string) bool                      { return false }

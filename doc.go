// Package gatewaymodule proxies subdevices onto a gateway's local MQTT bus.
//
// A host application describes its subdevices, supplies callbacks for
// actuation, configuration, status, and firmware, and the module handles the
// rest: registration, persistent publish queues, inbound command routing,
// and reconnection.
//
// # Usage
//
//	module, err := gatewaymodule.NewBuilder("localhost", 1883).
//	    ActuationHandler(handleActuation).
//	    ActuatorStatusProvider(actuatorStatus).
//	    DeviceStatusProvider(deviceStatus).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	module.AddDevice(device)
//	module.Connect(true)
//	module.AddSensorReading("D1", "T", 21.5, 0)
//
// # Concurrency
//
// The module core is single-threaded: every operation runs on one internal
// command worker, in submission order. Public API methods enqueue work and
// return immediately; callbacks are invoked on the worker and must return
// promptly.
package gatewaymodule

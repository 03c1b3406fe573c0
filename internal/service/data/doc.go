// Package data implements the sensor, alarm, actuator and configuration
// pipeline of the gateway module.
//
// Outbound items (readings, alarms, actuator statuses, configuration
// snapshots) are written to the persistence store first and published by the
// drain methods; an item leaves the store only after the broker accepted it.
// Inbound actuator and configuration commands are classified, validated
// against the device registry and dispatched to the host's handlers.
//
// All methods are expected to run on the module's command worker; the
// persistence store provides the only cross-thread synchronisation.
package data

// Package persistence defines the durable store behind the module's publish
// pipeline and provides the default in-memory implementation.
//
// The store maps composite "<deviceKey>+<reference>" keys to FIFO queues of
// sensor readings and alarms, and to single replace-on-put slots for actuator
// statuses and configuration snapshots (snapshots are keyed by device key
// alone). Implementations must tolerate concurrent producers and a single
// consumer, and must preserve FIFO ordering within each key.
//
// A SQLite-backed implementation lives in the sqlite subpackage.
package persistence

// Package sqlite provides a durable persistence.Store backed by SQLite.
//
// Readings and alarms live in one queue table whose autoincrement id orders
// the items of each composite key, preserving FIFO order across restarts.
// Actuator statuses (keyed by composite key) and configuration snapshots
// (keyed by device key) are replace-on-put rows in one slot table. Items are
// stored as JSON.
package sqlite

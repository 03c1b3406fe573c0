// Package history mirrors published sensor readings into InfluxDB.
//
// The mirror is optional. When enabled, every reading that was successfully
// delivered to the platform is also written to a time-series bucket so hosts
// can query local reading history without going through the platform.
//
// Writes are non-blocking and batched by the underlying client; mirror
// failures never affect the publish pipeline.
package history

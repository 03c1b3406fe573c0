// Package firmware drives the per-device firmware update state machine.
//
// Install and abort commands arrive from the platform; the host-supplied
// installer performs the actual flashing and reports completion through
// callbacks. Installer callbacks may fire on any goroutine, so the service
// marshals them back onto the module's command worker before touching state.
//
// Firmware file transport is out of scope: the install command names a file
// that must already exist on the local filesystem.
package firmware

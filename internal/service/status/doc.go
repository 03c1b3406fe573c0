// Package status publishes subdevice connectivity states and keeps the
// broker's last will aligned with the known device set.
//
// Status updates and responses are fire-and-forget publishes; a failed
// publish is logged, never retried. The last will lists every known device
// key so an ungraceful disconnect marks all subdevices offline at once.
package status

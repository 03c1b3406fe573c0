package history

import "errors"

// Sentinel errors for the reading-history mirror.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, history.ErrDisabled) {
//	    // Mirror not configured; skip wiring
//	}
var (
	// ErrNotConnected indicates the recorder is not connected to InfluxDB.
	ErrNotConnected = errors.New("history: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("history: connection failed")

	// ErrDisabled indicates the history mirror is disabled in config.
	ErrDisabled = errors.New("history: disabled in configuration")
)

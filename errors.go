package gatewaymodule

import "errors"

// Sentinel errors for module construction and device management.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, gatewaymodule.ErrInvalidConfiguration) {
//	    // Builder contract violated
//	}
var (
	// ErrInvalidConfiguration indicates the builder contract was violated:
	// a required callback is missing or a callback pair is half-set.
	ErrInvalidConfiguration = errors.New("gatewaymodule: invalid configuration")

	// ErrInvalidDevice indicates a subdevice description that cannot be
	// proxied (empty key, or a key or reference containing the persistence
	// key delimiter).
	ErrInvalidDevice = errors.New("gatewaymodule: invalid device")

	// ErrInvalidValue indicates a reading value outside the supported types.
	ErrInvalidValue = errors.New("gatewaymodule: invalid value")
)

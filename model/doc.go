// Package model defines the domain types carried between the gateway module's
// public API, its persistence layer and its wire codecs.
//
// Everything here is a plain value type. Values that cross the wire are
// normalised to strings at the module boundary, so readings and configuration
// items carry only strings and string slices; the codecs in internal/protocol
// decide the final byte layout.
package model

// Package protocol implements the JSON protocol family spoken on the gateway
// message bus: channel classification, device-key extraction and
// (de)serialisation for the data, status, registration, firmware-update and
// platform-status message families.
//
// Channel strings are /-delimited. The direction prefix is d2p for traffic
// from the module to the platform side and p2d for inbound traffic. The
// device key always follows a "d" segment and a capability reference always
// follows an "r" segment, so extraction is purely lexical.
//
// Codecs are stateless; encoders fail with a non-fatal error and no message
// when the domain object is malformed, and parsers return an error for
// payloads that do not conform.
package protocol

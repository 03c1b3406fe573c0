// Package registration publishes subdevice registration and update requests
// and routes the platform's responses back to the module core.
//
// The service itself holds no registry state; the response handler decides
// what a given result means for the device in question.
package registration

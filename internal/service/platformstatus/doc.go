// Package platformstatus relays gateway-to-platform connectivity updates.
//
// The gateway pushes CONNECTED or OFFLINE tokens on a single shared channel.
// The service parses them and hands the result to a listener; the module core
// uses it to expose platform reachability to the host application.
package platformstatus

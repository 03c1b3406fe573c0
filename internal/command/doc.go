// Package command provides the single-consumer work queue that serialises all
// state mutation in the gateway module.
//
// Every public API call, every inbound wire event and every user callback is
// wrapped in a closure and pushed onto one Buffer; a dedicated worker
// goroutine drains it in FIFO order. Commands therefore never race each other
// and the rest of the module holds no locks across user-visible entry points.
package command

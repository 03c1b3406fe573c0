// Package router demultiplexes inbound bus messages to the protocol family
// that subscribed to them.
//
// Each protocol registers together with a listener. A received
// (channel, payload) pair is delivered to every registered listener whose
// protocol claims the channel, wildcard-aware. The router performs no
// deduplication; listeners must be idempotent to duplicate delivery.
package router

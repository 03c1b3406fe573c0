package model

// Message is a single unit of traffic on the message bus: a channel string
// plus an opaque payload. Codecs produce and consume Messages; the
// connectivity layer moves them.
type Message struct {
	Channel string
	Payload []byte
}

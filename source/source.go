package source

import "github.com/roskit/mcap2table/rosmsg"

// Entry is one recorded message drawn from a bag. When the payload could
// not be decoded, Message is nil and DecodeErr says why; the entry still
// carries its topic and timestamp so callers can count and report it.
type Entry struct {
	Topic     string
	LogTimeNs uint64
	Message   *rosmsg.Message
	DecodeErr error
}

// Source yields bag entries in recorded order. Next returns io.EOF after
// the last entry; any other error means the stream itself is unreadable
// and nothing further can be drawn.
type Source interface {
	Next() (*Entry, error)
	Close() error
}

package irc

import "strings"

// Message is one parsed IRC line. Values are never nil: absent fields are
// empty strings and Tags is an empty map.
type Message struct {
	Tags     map[string]string
	Hostmask string
	Command  Command
	Param    string
	Trailing string
}

// User returns the nick part of the hostmask (everything before the first
// '!'), or the whole hostmask if it contains no '!'.
func (m Message) User() string {
	if excl := strings.IndexByte(m.Hostmask, '!'); excl != -1 {
		return m.Hostmask[:excl]
	}
	return m.Hostmask
}

// Channel is the first positional parameter, which in chat usage carries the
// channel name.
func (m Message) Channel() string {
	return m.Param
}

func (m Message) Tag(key string) string {
	return m.Tags[key]
}

// SwapTrailingPrefix returns a copy of m with the first byte of the trailing
// parameter replaced by prefix. No-op when the trailing parameter is empty.
func (m Message) SwapTrailingPrefix(prefix byte) Message {
	if len(m.Trailing) < 1 {
		return m
	}
	out := m
	out.Trailing = string(prefix) + m.Trailing[1:]
	return out
}

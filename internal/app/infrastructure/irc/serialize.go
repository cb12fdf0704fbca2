package irc

import "strings"

// Serialize renders m back into wire form. The round trip through ParseLine
// is semantic, not byte-identical: tag order is unspecified, but command,
// parameters and hostmask survive.
func Serialize(m Message) string {
	var b strings.Builder

	if len(m.Tags) > 0 {
		b.WriteByte('@')
		first := true
		for k, v := range m.Tags {
			if !first {
				b.WriteByte(';')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			first = false
		}
		b.WriteByte(' ')
	}

	if m.Hostmask != "" {
		b.WriteByte(':')
		b.WriteString(m.Hostmask)
		b.WriteByte(' ')
	}

	b.WriteString(m.Command.String())

	if m.Param != "" {
		b.WriteByte(' ')
		b.WriteString(m.Param)
	}
	if m.Trailing != "" {
		b.WriteString(" :")
		b.WriteString(m.Trailing)
	}

	return b.String()
}

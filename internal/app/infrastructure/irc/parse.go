package irc

import "strings"

// ParseLine parses one raw protocol line into a Message. Parsing never
// fails: malformed input degrades to empty fields and CmdUnknown.
func ParseLine(raw string) Message {
	msg := Message{Tags: make(map[string]string)}
	line := strings.TrimRight(raw, "\r\n")

	if len(line) > 0 && line[0] == '@' {
		rawTags := line[1:]
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			rawTags = line[1:sp]
			line = line[sp+1:]
		} else {
			line = ""
		}
		parseTags(msg.Tags, rawTags)
	}

	if len(line) > 0 && line[0] == ':' {
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			msg.Hostmask = line[1:sp]
			line = line[sp+1:]
		} else {
			msg.Hostmask = line[1:]
			line = ""
		}
	}

	if sp := strings.IndexByte(line, ' '); sp != -1 {
		msg.Command = lookupCommand(line[:sp])
		line = line[sp+1:]
	} else {
		msg.Command = lookupCommand(line)
		line = ""
	}

	if len(line) > 0 && line[0] != ':' {
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			msg.Param = line[:sp]
			line = line[sp+1:]
		} else {
			msg.Param = line
			line = ""
		}
	}

	// Skip any remaining positional tokens up to the trailing marker.
	for len(line) > 0 && line[0] != ':' {
		sp := strings.IndexByte(line, ' ')
		if sp == -1 {
			line = ""
			break
		}
		line = line[sp+1:]
	}

	if len(line) > 0 && line[0] == ':' {
		msg.Trailing = line[1:]
	}

	return msg
}

// parseTags consumes "key[=value]" pairs separated by ';'. A key without '='
// is stored with the value "1".
func parseTags(tags map[string]string, rawTags string) {
	start := 0
	for i := 0; i <= len(rawTags); i++ {
		if i != len(rawTags) && rawTags[i] != ';' {
			continue
		}
		tag := rawTags[start:i]
		if tag != "" {
			if eq := strings.IndexByte(tag, '='); eq != -1 {
				tags[tag[:eq]] = tag[eq+1:]
			} else {
				tags[tag] = "1"
			}
		}
		start = i + 1
	}
}

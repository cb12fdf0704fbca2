package irc

// Named chat server clusters. Only consulted when no explicit address is
// configured.
var clusters = map[string]string{
	"main":  "irc.chat.twitch.tv",
	"aws":   "irc.chat.twitch.tv",
	"group": "group.tmi.twitch.tv",
	"ws":    "irc-ws.chat.twitch.tv",
}

const (
	DefaultHost = "irc.chat.twitch.tv"

	DefaultSecurePort = 6697
	DefaultPlainPort  = 6667
)

// ClusterHost resolves a symbolic cluster name to a hostname, falling back to
// the default cluster for unknown names.
func ClusterHost(name string) string {
	if host, ok := clusters[name]; ok {
		return host
	}
	return DefaultHost
}

// DefaultPort returns the conventional port for the given security mode.
func DefaultPort(secure bool) int {
	if secure {
		return DefaultSecurePort
	}
	return DefaultPlainPort
}

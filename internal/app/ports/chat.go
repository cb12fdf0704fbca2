package ports

import "twitchchat/internal/app/infrastructure/irc"

// ConnectedHandler receives the remote endpoint's textual address.
type ConnectedHandler func(addr string)

// MessageHandler receives each parsed inbound message.
type MessageHandler func(msg irc.Message)

// ReconnectingHandler fires on link loss, before a new connect attempt is
// made.
type ReconnectingHandler func()

type ChatPort interface {
	Connect() error
	Disconnect()

	Join(channel string)
	Part(channel string)
	Say(channel, text string)
	SaySafe(channel, text string)
	SendRaw(line string)

	Channels() []string

	OnConnected(fn ConnectedHandler)
	OnMessage(fn MessageHandler)
	OnReconnecting(fn ReconnectingHandler)
}

package ports

// LinkPort is one transport connection to one chat server endpoint. A link
// is single-use: once closed it cannot be reopened, a new link is created
// per connect cycle.
type LinkPort interface {
	// Open establishes the connection and starts the read/write workers.
	// Callbacks must be registered before Open is called.
	Open(address string, port int, secure bool) error

	// Send enqueues one line for transmission. Priority lines bypass pacing
	// and are always drained before normal ones. Never blocks.
	Send(line string, priority bool)

	// Close tears the connection down; idempotent. The disconnected
	// callback fires exactly once per open cycle.
	Close()

	OnConnected(fn ConnectedHandler)
	OnMessage(fn MessageHandler)
	OnDisconnected(fn func())
}

package chat

import (
	"sync"
	"testing"
	"time"

	"twitchchat/internal/app/ports"
)

type nopLogger struct{}

func (nopLogger) SetLogLevel(string)          {}
func (nopLogger) GetLogLevel() string         { return "info" }
func (nopLogger) Trace(string, ...any)        {}
func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, error, ...any) {}
func (nopLogger) Fatal(string, error, ...any) {}

// fakeLink records everything the session sends and lets tests drive the
// link callbacks by hand.
type fakeLink struct {
	mu      sync.Mutex
	sends   []fakeSend
	openErr error
	closed  bool

	// dropOnOpen makes Open succeed and then immediately report the link
	// lost, like a socket reset right after the dial.
	dropOnOpen bool

	onConnected    ports.ConnectedHandler
	onMessage      ports.MessageHandler
	onDisconnected func()
}

type fakeSend struct {
	line     string
	priority bool
}

func (f *fakeLink) Open(address string, port int, secure bool) error {
	if f.openErr != nil {
		if f.onDisconnected != nil {
			f.onDisconnected()
		}
		return f.openErr
	}
	if f.onConnected != nil {
		f.onConnected(address)
	}
	if f.dropOnOpen {
		f.Close()
	}
	return nil
}

func (f *fakeLink) Send(line string, priority bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, fakeSend{line: line, priority: priority})
}

func (f *fakeLink) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	if f.onDisconnected != nil {
		f.onDisconnected()
	}
}

func (f *fakeLink) OnConnected(fn ports.ConnectedHandler) { f.onConnected = fn }
func (f *fakeLink) OnMessage(fn ports.MessageHandler)     { f.onMessage = fn }
func (f *fakeLink) OnDisconnected(fn func())              { f.onDisconnected = fn }

func (f *fakeLink) lines() []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSend{}, f.sends...)
}

func waitFor(t *testing.T, cond func() bool, hint string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", hint)
}

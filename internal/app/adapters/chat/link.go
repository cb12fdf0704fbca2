package chat

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"twitchchat/internal/app/adapters/metrics"
	"twitchchat/internal/app/infrastructure/irc"
	"twitchchat/internal/app/ports"
	"twitchchat/pkg/logger"
)

type linkState int32

const (
	stateIdle linkState = iota
	stateConnecting
	stateOpen
	stateClosed
)

const (
	readBufferSize = 1024

	// Consecutive all-zero reads tolerated before the stream is treated as
	// dead. A chunk of pure NUL bytes signals a half-closed socket emitting
	// filler; two are tolerated, the third closes the link. A legitimate
	// payload of all NUL bytes would be miscounted the same way.
	maxNullChunks = 2

	keepaliveInterval = 30 * time.Second
)

var lineTerminator = []byte("\r\n")

// Link is one TCP (optionally TLS-wrapped) connection to a chat server.
type Link struct {
	log logger.Logger

	state     atomic.Int32
	conn      net.Conn
	out       *outbox
	limiter   *rate.Limiter
	proxyAddr string

	closeOnce sync.Once
	done      chan struct{}

	onConnected    ports.ConnectedHandler
	onMessage      ports.MessageHandler
	onDisconnected func()
}

func NewLink(log logger.Logger, sendInterval time.Duration, proxyAddr string) *Link {
	return &Link{
		log:       log,
		out:       newOutbox(),
		limiter:   rate.NewLimiter(rate.Every(sendInterval), 1),
		proxyAddr: proxyAddr,
		done:      make(chan struct{}),
	}
}

func (l *Link) OnConnected(fn ports.ConnectedHandler) { l.onConnected = fn }
func (l *Link) OnMessage(fn ports.MessageHandler)     { l.onMessage = fn }
func (l *Link) OnDisconnected(fn func())              { l.onDisconnected = fn }

func (l *Link) Open(address string, port int, secure bool) error {
	if !l.state.CompareAndSwap(int32(stateIdle), int32(stateConnecting)) {
		return errors.New("link already used")
	}

	endpoint := net.JoinHostPort(address, strconv.Itoa(port))
	conn, err := l.dial(endpoint, address, secure)
	if err != nil {
		l.log.Error("Failed to connect to chat server", err, slog.String("endpoint", endpoint))
		l.Close()
		return err
	}

	l.start(conn)
	return nil
}

func (l *Link) dial(endpoint, serverName string, secure bool) (net.Conn, error) {
	var dialer proxy.Dialer = &net.Dialer{}
	if l.proxyAddr != "" {
		socks, err := proxy.SOCKS5("tcp", l.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, err
		}
		dialer = socks
	}

	conn, err := dialer.Dial("tcp", endpoint)
	if err != nil {
		return nil, err
	}
	if !secure {
		return conn, nil
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12})
	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// start wires the socket in and launches the keepalive, read and write
// workers. Split from Open so tests can drive a link over net.Pipe.
func (l *Link) start(conn net.Conn) {
	l.conn = conn
	l.state.Store(int32(stateOpen))

	go l.keepalive()
	go l.readLoop()
	go l.writeLoop()

	if l.onConnected != nil {
		l.onConnected(conn.RemoteAddr().String())
	}
}

func (l *Link) Send(line string, priority bool) {
	l.out.Push(line, priority)
	metrics.OutboxDepth.Set(float64(l.out.Len()))
}

func (l *Link) Close() {
	l.closeOnce.Do(func() {
		l.state.Store(int32(stateClosed))
		close(l.done)
		l.out.Close()
		if l.conn != nil {
			_ = l.conn.Close()
		}
		if l.onDisconnected != nil {
			l.onDisconnected()
		}
	})
}

func (l *Link) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Send("PING :"+strconv.FormatInt(time.Now().Unix(), 10), true)
		}
	}
}

func (l *Link) readLoop() {
	buf := make([]byte, readBufferSize)
	var acc []byte
	nullChunks := 0

	for {
		n, err := l.conn.Read(buf)
		if err != nil {
			if linkState(l.state.Load()) == stateOpen {
				l.log.Warn("Chat server read failed", slog.String("error", err.Error()))
			}
			l.Close()
			return
		}
		chunk := buf[:n]

		if n > 0 && allZero(chunk) {
			nullChunks++
			if nullChunks > maxNullChunks {
				l.log.Warn("Stream stalled, closing link")
				l.Close()
				return
			}
			continue
		}
		nullChunks = 0

		acc = append(acc, chunk...)
		idx := bytes.LastIndex(acc, lineTerminator)
		if idx == -1 {
			continue
		}

		complete := acc[:idx+len(lineTerminator)]
		rest := acc[idx+len(lineTerminator):]
		for _, raw := range bytes.Split(complete, lineTerminator) {
			if len(raw) == 0 {
				continue
			}
			l.dispatch(string(raw))
		}
		acc = append(acc[:0:0], rest...)
	}
}

func (l *Link) dispatch(raw string) {
	msg := irc.ParseLine(raw)

	metrics.MessagesReceived.Inc()
	if msg.Command == irc.CmdUnknown {
		metrics.UnknownCommands.Inc()
	}

	if l.onMessage != nil {
		l.onMessage(msg)
	}

	switch msg.Command {
	case irc.CmdPing:
		pong := msg
		pong.Command = irc.CmdPong
		pong.Hostmask = ""
		l.Send(irc.Serialize(pong), true)
	case irc.CmdReconnect:
		l.log.Info("Server requested reconnect")
		l.Close()
	}
}

func (l *Link) writeLoop() {
	for {
		line, priority, ok := l.out.Pop()
		if !ok {
			return
		}

		if !priority {
			_ = l.limiter.Wait(context.Background())

			// priority traffic enqueued while pacing goes out first
			for {
				p, ok := l.out.TryPopPriority()
				if !ok {
					break
				}
				if !l.transmit(p) {
					return
				}
			}
		}

		if !l.transmit(line) {
			return
		}
	}
}

func (l *Link) transmit(line string) bool {
	line = neutralizeTerminators(line)

	if _, err := l.conn.Write([]byte(line + "\r\n")); err != nil {
		if linkState(l.state.Load()) == stateOpen {
			l.log.Warn("Chat server write failed", slog.String("error", err.Error()))
		}
		l.Close()
		return false
	}

	metrics.MessagesSent.Inc()
	metrics.OutboxDepth.Set(float64(l.out.Len()))
	return true
}

func neutralizeTerminators(line string) string {
	line = strings.ReplaceAll(line, "\r\n", " ")
	line = strings.ReplaceAll(line, "\r", " ")
	return strings.ReplaceAll(line, "\n", " ")
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

package chat

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"twitchchat/internal/app/adapters/metrics"
	"twitchchat/internal/app/infrastructure/irc"
	"twitchchat/internal/app/ports"
	"twitchchat/pkg/logger"
)

// WSLink speaks the same line protocol over a WebSocket connection
// (irc-ws endpoints). Frames may carry several CRLF-terminated lines.
type WSLink struct {
	log logger.Logger

	state   atomic.Int32
	conn    *websocket.Conn
	out     *outbox
	limiter *rate.Limiter
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}

	onConnected    ports.ConnectedHandler
	onMessage      ports.MessageHandler
	onDisconnected func()
}

func NewWSLink(log logger.Logger, sendInterval time.Duration) *WSLink {
	return &WSLink{
		log:     log,
		out:     newOutbox(),
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
		done:    make(chan struct{}),
	}
}

func (l *WSLink) OnConnected(fn ports.ConnectedHandler) { l.onConnected = fn }
func (l *WSLink) OnMessage(fn ports.MessageHandler)     { l.onMessage = fn }
func (l *WSLink) OnDisconnected(fn func())              { l.onDisconnected = fn }

func (l *WSLink) Open(address string, port int, secure bool) error {
	if !l.state.CompareAndSwap(int32(stateIdle), int32(stateConnecting)) {
		return errors.New("link already used")
	}

	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: net.JoinHostPort(address, strconv.Itoa(port))}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		l.log.Error("Failed to connect to chat websocket", err, slog.String("url", u.String()))
		l.Close()
		return err
	}

	l.conn = conn
	l.state.Store(int32(stateOpen))

	go l.keepalive()
	go l.readLoop()
	go l.writeLoop()

	if l.onConnected != nil {
		l.onConnected(conn.RemoteAddr().String())
	}
	return nil
}

func (l *WSLink) Send(line string, priority bool) {
	l.out.Push(line, priority)
	metrics.OutboxDepth.Set(float64(l.out.Len()))
}

func (l *WSLink) Close() {
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

func (l *WSLink) keepalive() {
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

func (l *WSLink) readLoop() {
	for {
		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			if linkState(l.state.Load()) == stateOpen {
				l.log.Warn("Chat websocket read failed", slog.String("error", err.Error()))
			}
			l.Close()
			return
		}

		for _, raw := range strings.Split(string(payload), "\r\n") {
			if raw == "" {
				continue
			}
			l.dispatch(raw)
		}
	}
}

func (l *WSLink) dispatch(raw string) {
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

func (l *WSLink) writeLoop() {
	for {
		line, priority, ok := l.out.Pop()
		if !ok {
			return
		}

		if !priority {
			_ = l.limiter.Wait(context.Background())

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

func (l *WSLink) transmit(line string) bool {
	line = neutralizeTerminators(line)

	l.writeMu.Lock()
	err := l.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
	l.writeMu.Unlock()
	if err != nil {
		if linkState(l.state.Load()) == stateOpen {
			l.log.Warn("Chat websocket write failed", slog.String("error", err.Error()))
		}
		l.Close()
		return false
	}

	metrics.MessagesSent.Inc()
	metrics.OutboxDepth.Set(float64(l.out.Len()))
	return true
}

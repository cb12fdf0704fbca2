package chat

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"twitchchat/internal/app/adapters/metrics"
	"twitchchat/internal/app/infrastructure/config"
	"twitchchat/internal/app/infrastructure/irc"
	"twitchchat/internal/app/infrastructure/storage"
	"twitchchat/internal/app/ports"
	"twitchchat/pkg/logger"
)

const (
	// Zero-width space prepended by SaySafe so the server does not treat the
	// text as a chat command.
	zwsp = "​"

	anonymousNickPrefix = "justinfan"
	anonymousToken      = "59301"

	stateCacheTTL = 24 * time.Hour
)

// Session is the long-lived chat session. It owns one Link per connect
// cycle, drives the handshake, tracks server-confirmed channel membership
// and replays joins after reconnection.
type Session struct {
	log logger.Logger

	address      string
	port         int
	secure       bool
	transport    string
	nick         string
	token        string
	caps         []string
	sendInterval time.Duration
	joinInterval time.Duration
	proxyAddr    string

	reconnectPause time.Duration

	chanMu   sync.Mutex
	channels []string // ordered, mutated only on server-confirmed JOIN/PART

	linkMu sync.RWMutex
	link   ports.LinkPort

	// newLink is swapped out in tests.
	newLink func() ports.LinkPort

	suppress atomic.Bool
	closed   atomic.Bool

	// lost carries link-loss signals to the reconnect worker. One slot is
	// enough: concurrent losses coalesce into a single reconnect cycle.
	lost chan struct{}

	membership *fifo

	cbMu            sync.RWMutex
	connectedFns    []ports.ConnectedHandler
	messageFns      []ports.MessageHandler
	reconnectingFns []ports.ReconnectingHandler

	states *storage.Cache[map[string]string]
}

func NewSession(log logger.Logger, cfg *config.Config) *Session {
	address := cfg.Server.Address
	if address == "" {
		address = irc.ClusterHost(cfg.Server.Cluster)
	}
	port := cfg.Server.Port
	if port == 0 {
		port = defaultPort(cfg.Server.Transport, cfg.Server.Secure)
	}

	nick := strings.ToLower(cfg.App.Username)
	token := strings.TrimPrefix(cfg.App.OAuth, "oauth:")
	if nick == "" {
		nick = fmt.Sprintf("%s%d", anonymousNickPrefix, rand.IntN(899999)+100000)
		token = anonymousToken
	}

	proxyAddr := ""
	if cfg.Proxy != nil && cfg.Proxy.Address != "" {
		proxyAddr = fmt.Sprintf("%s:%d", cfg.Proxy.Address, cfg.Proxy.Port)
	}

	s := &Session{
		log:            log,
		address:        address,
		port:           port,
		secure:         cfg.Server.Secure,
		transport:      cfg.Server.Transport,
		nick:           nick,
		token:          token,
		caps:           append([]string{}, cfg.Chat.Capabilities...),
		sendInterval:   time.Duration(cfg.Chat.SendIntervalMs) * time.Millisecond,
		joinInterval:   time.Duration(cfg.Chat.JoinIntervalMs) * time.Millisecond,
		proxyAddr:      proxyAddr,
		reconnectPause: 5 * time.Second,
		lost:           make(chan struct{}, 1),
		membership:     newFifo(),
		states:         storage.NewCache[map[string]string](64, stateCacheTTL),
	}
	s.newLink = s.buildLink
	s.suppress.Store(true)

	for _, ch := range cfg.Chat.Channels {
		s.Join(ch)
	}

	go s.membershipLoop()
	go s.reconnectLoop()
	return s
}

func defaultPort(transport string, secure bool) int {
	if transport == config.WSTransport {
		if secure {
			return 443
		}
		return 80
	}
	return irc.DefaultPort(secure)
}

func (s *Session) Nick() string { return s.nick }

func (s *Session) OnConnected(fn ports.ConnectedHandler) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.connectedFns = append(s.connectedFns, fn)
}

func (s *Session) OnMessage(fn ports.MessageHandler) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.messageFns = append(s.messageFns, fn)
}

func (s *Session) OnReconnecting(fn ports.ReconnectingHandler) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.reconnectingFns = append(s.reconnectingFns, fn)
}

// Connect opens the first link. Later reconnects are automatic; the only
// error surfaced to the caller is a socket that never opens at all.
func (s *Session) Connect() error {
	s.suppress.Store(true)

	link := s.newLink()
	s.setLink(link)
	return link.Open(s.address, s.port, s.secure)
}

func (s *Session) Disconnect() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.membership.Close()
	s.signalLost() // wakes the reconnect worker so it can observe closed
	if link := s.currentLink(); link != nil {
		link.Close()
	}
}

func (s *Session) buildLink() ports.LinkPort {
	var link ports.LinkPort
	if s.transport == config.WSTransport {
		link = NewWSLink(s.log, s.sendInterval)
	} else {
		link = NewLink(s.log, s.sendInterval, s.proxyAddr)
	}

	link.OnConnected(s.handleConnected)
	link.OnMessage(s.handleMessage)
	link.OnDisconnected(s.handleDisconnected)
	return link
}

func (s *Session) setLink(link ports.LinkPort) {
	s.linkMu.Lock()
	s.link = link
	s.linkMu.Unlock()
}

func (s *Session) currentLink() ports.LinkPort {
	s.linkMu.RLock()
	defer s.linkMu.RUnlock()
	return s.link
}

// handleConnected sends the handshake as priority traffic: capabilities,
// authentication, nick, then one JOIN per tracked channel so membership
// survives reconnects.
func (s *Session) handleConnected(addr string) {
	link := s.currentLink()

	link.Send("CAP REQ :"+strings.Join(s.caps, " "), true)
	link.Send("PASS oauth:"+s.token, true)
	link.Send("NICK "+s.nick, true)
	for _, ch := range s.Channels() {
		link.Send("JOIN "+ch, true)
	}

	s.log.Info("Connected to chat server", slog.String("addr", addr), slog.String("nick", s.nick))

	s.cbMu.RLock()
	fns := s.connectedFns
	s.cbMu.RUnlock()
	for _, fn := range fns {
		fn(addr)
	}
}

func (s *Session) handleMessage(msg irc.Message) {
	switch msg.Command {
	case irc.CmdJoin:
		if strings.EqualFold(msg.User(), s.nick) {
			if !s.trackJoin(msg.Channel()) {
				// duplicate confirmation, nothing new to report
				return
			}
		}
	case irc.CmdPart:
		if strings.EqualFold(msg.User(), s.nick) {
			s.trackPart(msg.Channel())
		}
	case irc.CmdRplEndOfMotd:
		s.suppress.Store(false)
		s.log.Debug("Chat handshake complete")
	case irc.CmdRoomState:
		s.states.Set("room:"+msg.Channel(), msg.Tags)
	case irc.CmdUserState:
		s.states.Set("user:"+msg.Channel(), msg.Tags)
	case irc.CmdGlobalUserState:
		s.states.Set("user:*", msg.Tags)
	case irc.CmdNotice:
		switch {
		case strings.Contains(msg.Trailing, "Login authentication failed"):
			s.log.Error("Login authentication failed", nil, slog.String("line", msg.Trailing))
		case strings.Contains(msg.Trailing, "Improperly formatted auth"):
			s.log.Error("Improperly formatted auth", nil, slog.String("line", msg.Trailing))
		}
	}

	if s.suppress.Load() {
		metrics.SuppressedMessages.Inc()
		return
	}

	s.cbMu.RLock()
	fns := s.messageFns
	s.cbMu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (s *Session) handleDisconnected() {
	if s.closed.Load() {
		return
	}

	metrics.Reconnects.Inc()
	s.cbMu.RLock()
	fns := s.reconnectingFns
	s.cbMu.RUnlock()
	for _, fn := range fns {
		fn()
	}

	s.signalLost()
}

func (s *Session) signalLost() {
	select {
	case s.lost <- struct{}{}:
	default:
	}
}

// reconnectLoop is the session-lifetime reconnect worker. Losses arrive over
// the one-slot lost channel, so a link that dies while a previous reconnect
// cycle is still winding down is picked up on the next iteration instead of
// being swallowed.
func (s *Session) reconnectLoop() {
	for range s.lost {
		if s.closed.Load() {
			return
		}

		for {
			time.Sleep(s.reconnectPause)
			if s.closed.Load() {
				return
			}
			s.suppress.Store(true)

			link := s.newLink()
			s.setLink(link)
			if err := link.Open(s.address, s.port, s.secure); err == nil {
				break
			}
			s.log.Warn("Chat reconnect failed, retrying...")
		}
	}
}

// Join requests channel membership. The channel only enters Channels() once
// the server echoes the JOIN back.
func (s *Session) Join(channel string) {
	s.membership.Push("JOIN " + normalizeChannel(channel))
}

func (s *Session) Part(channel string) {
	s.membership.Push("PART " + normalizeChannel(channel))
}

// membershipLoop is the session-lifetime pacing worker for join/part
// requests. It survives reconnects and talks to whichever link is active.
func (s *Session) membershipLoop() {
	for {
		op, ok := s.membership.Pop()
		if !ok {
			return
		}

		for {
			if s.closed.Load() {
				return
			}
			if link := s.currentLink(); link != nil {
				link.Send(op, false)
				break
			}
			time.Sleep(100 * time.Millisecond)
		}

		time.Sleep(s.joinInterval)
	}
}

func (s *Session) Say(channel, text string) {
	s.sendNormal(fmt.Sprintf("PRIVMSG %s :%s", normalizeChannel(channel), text))
}

// SaySafe guards outgoing text against being interpreted as a server-side
// command. "/me " is left alone.
func (s *Session) SaySafe(channel, text string) {
	if (strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "/me ")) || strings.HasPrefix(text, ".") {
		text = zwsp + text
	}
	s.Say(channel, text)
}

func (s *Session) SendRaw(line string) {
	s.sendNormal(line)
}

func (s *Session) sendNormal(line string) {
	link := s.currentLink()
	if link == nil {
		s.log.Warn("Dropping outbound line, not connected", slog.String("line", line))
		return
	}
	link.Send(line, false)
}

// Channels returns the server-confirmed memberships in tracking order.
func (s *Session) Channels() []string {
	s.chanMu.Lock()
	defer s.chanMu.Unlock()
	return append([]string{}, s.channels...)
}

// RoomState returns the last ROOMSTATE tags seen for the channel.
func (s *Session) RoomState(channel string) (map[string]string, bool) {
	return s.states.Get("room:" + normalizeChannel(channel))
}

// UserState returns the last USERSTATE tags seen for the channel, or the
// GLOBALUSERSTATE tags for "*".
func (s *Session) UserState(channel string) (map[string]string, bool) {
	if channel == "*" {
		return s.states.Get("user:*")
	}
	return s.states.Get("user:" + normalizeChannel(channel))
}

func (s *Session) trackJoin(channel string) bool {
	channel = normalizeChannel(channel)

	s.chanMu.Lock()
	defer s.chanMu.Unlock()
	for _, ch := range s.channels {
		if ch == channel {
			return false
		}
	}
	s.channels = append(s.channels, channel)
	metrics.JoinedChannels.Set(float64(len(s.channels)))
	return true
}

func (s *Session) trackPart(channel string) {
	channel = normalizeChannel(channel)

	s.chanMu.Lock()
	defer s.chanMu.Unlock()
	for i, ch := range s.channels {
		if ch == channel {
			s.channels = append(s.channels[:i], s.channels[i+1:]...)
			break
		}
	}
	metrics.JoinedChannels.Set(float64(len(s.channels)))
	s.states.Delete("room:" + channel)
	s.states.Delete("user:" + channel)
}

func normalizeChannel(channel string) string {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if !strings.HasPrefix(channel, "#") {
		channel = "#" + channel
	}
	return channel
}

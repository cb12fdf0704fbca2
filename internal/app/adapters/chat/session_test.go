package chat

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitchchat/internal/app/infrastructure/config"
	"twitchchat/internal/app/infrastructure/irc"
	"twitchchat/internal/app/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.App{
			Username: "botnick",
			OAuth:    "oauth:secrettoken",
		},
		Server: config.Server{
			Address: "irc.example.test",
			Port:    6697,
			Secure:  true,
		},
		Chat: config.Chat{
			Capabilities:   []string{"twitch.tv/tags", "twitch.tv/commands"},
			SendIntervalMs: 0,
			JoinIntervalMs: 0,
		},
	}
}

// newTestSession wires a Session to fakeLinks; every reconnect cycle gets a
// fresh fake from the returned slice pointer.
func newTestSession(t *testing.T) (*Session, *[]*fakeLink) {
	t.Helper()

	s := NewSession(nopLogger{}, testConfig())
	s.reconnectPause = time.Millisecond

	fakes := &[]*fakeLink{}
	var mu sync.Mutex
	s.newLink = func() ports.LinkPort {
		f := &fakeLink{}
		f.OnConnected(s.handleConnected)
		f.OnMessage(s.handleMessage)
		f.OnDisconnected(s.handleDisconnected)
		mu.Lock()
		*fakes = append(*fakes, f)
		mu.Unlock()
		return f
	}

	t.Cleanup(s.Disconnect)
	return s, fakes
}

func selfLine(nick, verb, channel string) irc.Message {
	return irc.ParseLine(":" + nick + "!" + nick + "@" + nick + ".tmi.twitch.tv " + verb + " " + channel)
}

func TestSession_HandshakeOrder(t *testing.T) {
	s, fakes := newTestSession(t)

	require.NoError(t, s.Connect())
	require.Len(t, *fakes, 1)

	sends := (*fakes)[0].lines()
	require.GreaterOrEqual(t, len(sends), 3)

	assert.Equal(t, fakeSend{"CAP REQ :twitch.tv/tags twitch.tv/commands", true}, sends[0])
	assert.Equal(t, fakeSend{"PASS oauth:secrettoken", true}, sends[1])
	assert.Equal(t, fakeSend{"NICK botnick", true}, sends[2])
}

func TestSession_MembershipConfirmedJoinOnly(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	s.Join("SomeChannel")
	waitFor(t, func() bool {
		for _, send := range link.lines() {
			if send.line == "JOIN #somechannel" && !send.priority {
				return true
			}
		}
		return false
	}, "paced JOIN on the wire")

	// requesting a join never mutates membership
	assert.Empty(t, s.Channels())

	link.onMessage(selfLine("botnick", "JOIN", "#somechannel"))
	assert.Equal(t, []string{"#somechannel"}, s.Channels())
}

func TestSession_DuplicateJoinIsIdempotent(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	var joinEvents atomic.Int32
	s.OnMessage(func(msg irc.Message) {
		if msg.Command == irc.CmdJoin {
			joinEvents.Add(1)
		}
	})

	link.onMessage(irc.ParseLine(":tmi.twitch.tv 376 botnick :>"))
	link.onMessage(selfLine("botnick", "JOIN", "#chan"))
	link.onMessage(selfLine("botnick", "JOIN", "#chan"))

	assert.Equal(t, []string{"#chan"}, s.Channels())
	assert.Equal(t, int32(1), joinEvents.Load(), "duplicate confirmation must not re-notify")
}

func TestSession_PartRemovesMembership(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	link.onMessage(selfLine("botnick", "JOIN", "#a"))
	link.onMessage(selfLine("botnick", "JOIN", "#b"))
	link.onMessage(selfLine("botnick", "PART", "#a"))

	assert.Equal(t, []string{"#b"}, s.Channels())

	// parting an untracked channel is a no-op
	link.onMessage(selfLine("botnick", "PART", "#nope"))
	assert.Equal(t, []string{"#b"}, s.Channels())
}

func TestSession_OtherUsersDoNotMutateMembership(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	link.onMessage(selfLine("stranger", "JOIN", "#chan"))
	assert.Empty(t, s.Channels())
}

func TestSession_InboundSuppressedUntilHandshakeComplete(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	var forwarded []irc.Command
	var mu sync.Mutex
	s.OnMessage(func(msg irc.Message) {
		mu.Lock()
		forwarded = append(forwarded, msg.Command)
		mu.Unlock()
	})

	link.onMessage(irc.ParseLine(":u!u@u.tmi.twitch.tv PRIVMSG #c :early"))
	mu.Lock()
	assert.Empty(t, forwarded, "traffic before end of MOTD must be withheld")
	mu.Unlock()

	link.onMessage(irc.ParseLine(":tmi.twitch.tv 376 botnick :>"))
	link.onMessage(irc.ParseLine(":u!u@u.tmi.twitch.tv PRIVMSG #c :late"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []irc.Command{irc.CmdRplEndOfMotd, irc.CmdPrivMsg}, forwarded)
}

func TestSession_ReconnectReplaysJoinsAsPriority(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	first := (*fakes)[0]

	var reconnecting atomic.Int32
	s.OnReconnecting(func() { reconnecting.Add(1) })

	first.onMessage(irc.ParseLine(":tmi.twitch.tv 376 botnick :>"))
	first.onMessage(selfLine("botnick", "JOIN", "#a"))
	first.onMessage(selfLine("botnick", "JOIN", "#b"))
	require.Equal(t, []string{"#a", "#b"}, s.Channels())

	first.Close()

	waitFor(t, func() bool { return len(*fakes) == 2 }, "replacement link")
	second := (*fakes)[1]
	waitFor(t, func() bool { return len(second.lines()) >= 5 }, "replayed handshake")

	assert.Equal(t, int32(1), reconnecting.Load())

	sends := second.lines()
	require.Len(t, sends, 5)
	assert.Equal(t, fakeSend{"CAP REQ :twitch.tv/tags twitch.tv/commands", true}, sends[0])
	assert.Equal(t, fakeSend{"PASS oauth:secrettoken", true}, sends[1])
	assert.Equal(t, fakeSend{"NICK botnick", true}, sends[2])
	assert.Equal(t, fakeSend{"JOIN #a", true}, sends[3])
	assert.Equal(t, fakeSend{"JOIN #b", true}, sends[4])

	// suppression is re-armed until the new handshake completes
	var forwarded atomic.Int32
	s.OnMessage(func(msg irc.Message) { forwarded.Add(1) })
	second.onMessage(irc.ParseLine(":u!u@u.tmi.twitch.tv PRIVMSG #a :early"))
	assert.Equal(t, int32(0), forwarded.Load())
}

func TestSession_ReconnectSurvivesImmediateLinkLoss(t *testing.T) {
	s := NewSession(nopLogger{}, testConfig())
	s.reconnectPause = time.Millisecond
	t.Cleanup(s.Disconnect)

	var mu sync.Mutex
	var links []*fakeLink
	s.newLink = func() ports.LinkPort {
		f := &fakeLink{}
		mu.Lock()
		// the first replacement link dies the instant it opens
		f.dropOnOpen = len(links) == 1
		links = append(links, f)
		mu.Unlock()
		f.OnConnected(s.handleConnected)
		f.OnMessage(s.handleMessage)
		f.OnDisconnected(s.handleDisconnected)
		return f
	}

	require.NoError(t, s.Connect())

	mu.Lock()
	first := links[0]
	mu.Unlock()
	first.Close()

	// the loss of link two must not be swallowed by the cycle that opened it
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(links) >= 3
	}, "reconnect after the replacement link is lost")
}

func TestSession_ConcurrentMembershipMutationAndQuery(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	const workers = 8
	const perWorker = 50

	done := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 2; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
					s.Channels()
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ch := fmt.Sprintf("#w%dc%d", w, i)
				link.onMessage(selfLine("botnick", "JOIN", ch))
				if i%2 == 0 {
					link.onMessage(selfLine("botnick", "PART", ch))
				}
			}
		}(w)
	}

	wg.Wait()
	close(done)
	readers.Wait()

	// even-numbered channels were parted again, odd-numbered ones remain
	got := s.Channels()
	assert.Len(t, got, workers*perWorker/2)
	assert.Contains(t, got, "#w0c1")
	assert.NotContains(t, got, "#w0c0")
}

func TestSession_SaySafe(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "slash_command_is_escaped",
			text: "/ban someuser",
			want: "PRIVMSG #c :​/ban someuser",
		},
		{
			name: "me_action_is_left_alone",
			text: "/me dances",
			want: "PRIVMSG #c :/me dances",
		},
		{
			name: "dot_command_is_escaped",
			text: ".mod",
			want: "PRIVMSG #c :​.mod",
		},
		{
			name: "plain_text_is_left_alone",
			text: "hello there",
			want: "PRIVMSG #c :hello there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fakes := newTestSession(t)
			require.NoError(t, s.Connect())
			link := (*fakes)[0]

			s.SaySafe("#c", tt.text)

			sends := link.lines()
			last := sends[len(sends)-1]
			assert.Equal(t, tt.want, last.line)
			assert.False(t, last.priority)
		})
	}
}

func TestSession_SendRawGoesOutVerbatim(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	s.SendRaw("CAP LS 302")

	sends := link.lines()
	assert.Equal(t, fakeSend{"CAP LS 302", false}, sends[len(sends)-1])
}

func TestSession_RoomAndUserStateTracking(t *testing.T) {
	s, fakes := newTestSession(t)
	require.NoError(t, s.Connect())
	link := (*fakes)[0]

	link.onMessage(irc.ParseLine("@emote-only=0;r9k=1 :tmi.twitch.tv ROOMSTATE #chan"))
	link.onMessage(irc.ParseLine("@mod=1;color=#FF0000 :tmi.twitch.tv USERSTATE #chan"))

	room, ok := s.RoomState("chan")
	require.True(t, ok)
	assert.Equal(t, "1", room["r9k"])

	user, ok := s.UserState("#chan")
	require.True(t, ok)
	assert.Equal(t, "1", user["mod"])

	_, ok = s.RoomState("#other")
	assert.False(t, ok)
}

func TestSession_AnonymousLoginByDefault(t *testing.T) {
	cfg := testConfig()
	cfg.App.Username = ""
	cfg.App.OAuth = ""

	s := NewSession(nopLogger{}, cfg)
	t.Cleanup(s.Disconnect)

	assert.True(t, strings.HasPrefix(s.Nick(), anonymousNickPrefix))
}

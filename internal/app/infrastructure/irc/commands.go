package irc

// Command identifies a known protocol verb. Tokens outside the known set
// resolve to CmdUnknown instead of failing.
type Command int

const (
	CmdUnknown Command = iota
	CmdPrivMsg
	CmdNotice
	CmdPing
	CmdPong
	CmdJoin
	CmdPart
	CmdHostTarget
	CmdClearChat
	CmdUserState
	CmdGlobalUserState
	CmdNick
	CmdPass
	CmdCap
	CmdRplWelcome    // 001
	CmdRplYourHost   // 002
	CmdRplCreated    // 003
	CmdRplMyInfo     // 004
	CmdRplNamReply   // 353
	CmdRplEndOfNames // 366
	CmdRplMotd       // 372
	CmdRplMotdStart  // 375
	CmdRplEndOfMotd  // 376
	CmdWhisper
	CmdRoomState
	CmdReconnect
	CmdServerChange
	CmdUserNotice
)

var commands = map[string]Command{
	"PRIVMSG":         CmdPrivMsg,
	"NOTICE":          CmdNotice,
	"PING":            CmdPing,
	"PONG":            CmdPong,
	"JOIN":            CmdJoin,
	"PART":            CmdPart,
	"HOSTTARGET":      CmdHostTarget,
	"CLEARCHAT":       CmdClearChat,
	"USERSTATE":       CmdUserState,
	"GLOBALUSERSTATE": CmdGlobalUserState,
	"NICK":            CmdNick,
	"PASS":            CmdPass,
	"CAP":             CmdCap,
	"001":             CmdRplWelcome,
	"002":             CmdRplYourHost,
	"003":             CmdRplCreated,
	"004":             CmdRplMyInfo,
	"353":             CmdRplNamReply,
	"366":             CmdRplEndOfNames,
	"372":             CmdRplMotd,
	"375":             CmdRplMotdStart,
	"376":             CmdRplEndOfMotd,
	"WHISPER":         CmdWhisper,
	"ROOMSTATE":       CmdRoomState,
	"RECONNECT":       CmdReconnect,
	"SERVERCHANGE":    CmdServerChange,
	"USERNOTICE":      CmdUserNotice,
}

var commandTokens = func() map[Command]string {
	m := make(map[Command]string, len(commands))
	for token, cmd := range commands {
		m[cmd] = token
	}
	return m
}()

func lookupCommand(token string) Command {
	if cmd, ok := commands[token]; ok {
		return cmd
	}
	return CmdUnknown
}

// String returns the wire token for the command; numeric replies render as
// their bare digits.
func (c Command) String() string {
	if token, ok := commandTokens[c]; ok {
		return token
	}
	return "UNKNOWN"
}

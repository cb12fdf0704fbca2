package config

const (
	TCPTransport = "tcp"
	WSTransport  = "ws"
)

func (m *Manager) GetDefault() *Config {
	return &Config{
		App: App{
			LogLevel: "info",
			GinMode:  "release",
		},
		Server: Server{
			Cluster:   "main",
			Secure:    true,
			Transport: TCPTransport,
		},
		Chat: Chat{
			Channels: []string{},
			Capabilities: []string{
				"twitch.tv/tags",
				"twitch.tv/commands",
			},
			SendIntervalMs: 1500,
			JoinIntervalMs: 1500,
		},
		HTTP: HTTP{
			Enabled: false,
			Address: ":8080",
		},
	}
}

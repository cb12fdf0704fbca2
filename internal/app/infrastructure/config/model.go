package config

type Config struct {
	App    App    `json:"app"`
	Server Server `json:"server"`
	Chat   Chat   `json:"chat"`
	HTTP   HTTP   `json:"http"`
	Proxy  *Proxy `json:"proxy"`
}

type App struct {
	LogLevel string `json:"log_level"`
	GinMode  string `json:"gin_mode"`
	OAuth    string `json:"oauth"`
	Username string `json:"username"`
}

type Server struct {
	// Cluster is consulted only when Address is empty.
	Cluster   string `json:"cluster"`
	Address   string `json:"address"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	Transport string `json:"transport"` // "tcp" or "ws"
}

type Chat struct {
	Channels       []string `json:"channels"`
	Capabilities   []string `json:"capabilities"`
	SendIntervalMs int      `json:"send_interval_ms"`
	JoinIntervalMs int      `json:"join_interval_ms"`
}

type HTTP struct {
	Enabled   bool   `json:"enabled"`
	Address   string `json:"address"`
	AuthToken string `json:"auth_token"`
}

type Proxy struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

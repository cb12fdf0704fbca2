package config

import (
	"errors"
	"fmt"
	"strings"
)

func (m *Manager) validate(cfg *Config) error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error; got %s", cfg.App.LogLevel)
	}

	// An empty username falls back to an anonymous login, so neither the
	// username nor the token is required.
	if cfg.App.Username != "" && cfg.App.OAuth == "" {
		return errors.New("app.oauth is required when app.username is set")
	}

	if cfg.Server.Transport != "" && cfg.Server.Transport != TCPTransport && cfg.Server.Transport != WSTransport {
		return fmt.Errorf("server.transport must be %q or %q; got %s", TCPTransport, WSTransport, cfg.Server.Transport)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.Chat.SendIntervalMs < 0 {
		return errors.New("chat.send_interval_ms must not be negative")
	}
	if cfg.Chat.JoinIntervalMs < 0 {
		return errors.New("chat.join_interval_ms must not be negative")
	}
	if cfg.Chat.Channels == nil {
		cfg.Chat.Channels = []string{}
	}
	for _, ch := range cfg.Chat.Channels {
		if strings.ContainsAny(ch, " \r\n") {
			return fmt.Errorf("chat.channels entry contains whitespace: %q", ch)
		}
	}
	if len(cfg.Chat.Capabilities) == 0 {
		cfg.Chat.Capabilities = m.GetDefault().Chat.Capabilities
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Address == "" {
		return errors.New("http.address is required when http.enabled is set")
	}

	if cfg.Proxy != nil && (cfg.Proxy.Address == "" || cfg.Proxy.Port == 0) {
		return errors.New("proxy.address and proxy.port must both be set")
	}

	return nil
}

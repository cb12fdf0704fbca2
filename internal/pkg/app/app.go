package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"twitchchat/internal/app/adapters/chat"
	router "twitchchat/internal/app/adapters/http"
	"twitchchat/internal/app/infrastructure/config"
	"twitchchat/internal/app/infrastructure/irc"
	"twitchchat/pkg/logger"
)

const configPath = "config.json"

func New() error {
	log := logger.New()

	manager, err := config.New(configPath)
	if err != nil {
		log.Fatal("Error loading config", err)
	}

	cfg := manager.Get()
	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	session := chat.NewSession(logger.NewPrefixedLogger(log, "chat"), cfg)

	session.OnConnected(func(addr string) {
		log.Info("Chat connected", slog.String("addr", addr))
	})
	session.OnReconnecting(func() {
		log.Warn("Chat connection lost, reconnecting...")
	})
	session.OnMessage(func(msg irc.Message) {
		if msg.Command == irc.CmdPrivMsg {
			log.Info("Message",
				slog.String("channel", msg.Channel()),
				slog.String("user", msg.User()),
				slog.String("text", msg.Trailing),
			)
		}
	})

	if cfg.HTTP.Enabled {
		r := router.NewRouter(logger.NewPrefixedLogger(log, "http"), manager, session)
		go func() {
			if err := r.Run(); err != nil {
				log.Error("Diagnostics server stopped", err)
			}
		}()
	}

	return session.Connect()
}

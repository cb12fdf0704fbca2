package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"twitchchat/internal/app/adapters/http/handlers"
	"twitchchat/internal/app/adapters/http/middlewares"
	"twitchchat/internal/app/infrastructure/config"
	"twitchchat/internal/app/ports"
	"twitchchat/pkg/logger"
)

// Router serves the diagnostics surface: health, process status, joined
// channels, prometheus metrics and pprof.
type Router struct {
	router   *gin.Engine
	handlers *handlers.Handlers

	log     logger.Logger
	manager *config.Manager
	addr    string
}

func NewRouter(log logger.Logger, manager *config.Manager, chat ports.ChatPort) *Router {
	r := &Router{
		router:   gin.New(),
		handlers: handlers.New(log, chat),
		log:      log,
		manager:  manager,
		addr:     manager.Get().HTTP.Address,
	}
	r.router.Use(gin.Recovery())

	auth := middlewares.Auth(manager.Get().HTTP.AuthToken)

	pprofGroup := r.router.Group("/", auth)
	pprof.Register(pprofGroup)

	r.router.GET("/metrics", auth, gin.WrapH(promhttp.Handler()))
	r.router.GET("/healthz", r.handlers.HealthHandler)
	r.router.GET("/status", auth, r.handlers.StatusHandler)
	r.router.GET("/channels", auth, r.handlers.ChannelsHandler)

	return r
}

func (r *Router) Run() error {
	return r.newServer(r.addr, r.router).ListenAndServe()
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

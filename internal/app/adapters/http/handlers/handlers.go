package handlers

import (
	"net/http"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"

	"twitchchat/internal/app/ports"
	"twitchchat/pkg/logger"
)

type Handlers struct {
	log  logger.Logger
	chat ports.ChatPort
}

func New(log logger.Logger, chat ports.ChatPort) *Handlers {
	return &Handlers{
		log:  log,
		chat: chat,
	}
}

func (h *Handlers) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) ChannelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.chat.Channels()})
}

func (h *Handlers) StatusHandler(c *gin.Context) {
	status := gin.H{
		"goroutines": runtime.NumGoroutine(),
		"channels":   len(h.chat.Channels()),
	}

	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		status["cpu_percent"] = percent[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_used_percent"] = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil {
			status["rss_bytes"] = rss.RSS
		}
	}

	c.JSON(http.StatusOK, status)
}

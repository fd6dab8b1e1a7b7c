package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var _ Fleet = (*fleet.Manager)(nil)

type Fleet interface {
	Servers() []*fleet.Server
	Server(name string) (*fleet.Server, error)
	LaunchComplete() bool
}

type BotView struct {
	Slot     int        `json:"slot"`
	Basename string     `json:"basename"`
	Nickname string     `json:"nickname"`
	Status   bot.Status `json:"status"`
}

type ServerView struct {
	Name        string      `json:"name"`
	TargetSlots int         `json:"targetSlots"`
	State       fleet.State `json:"state"`
	Bots        []BotView   `json:"bots"`
}

type FleetView struct {
	LaunchComplete bool         `json:"launchComplete"`
	Servers        []ServerView `json:"servers"`
}

// NewRouter wires the health check and the status endpoints.
func NewRouter(ctx context.Context, f Fleet) *gin.Engine {
	logger := logging.FromContext(ctx).Named("server.Router")

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", handleHealth)

	api := r.Group("/api")
	{
		api.GET("/servers", handleServers(f))
		api.GET("/servers/:name", handleServer(f))
	}

	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func handleServers(f Fleet) gin.HandlerFunc {
	return func(c *gin.Context) {
		servers := f.Servers()
		view := FleetView{
			LaunchComplete: f.LaunchComplete(),
			Servers:        make([]ServerView, 0, len(servers)),
		}
		for _, s := range servers {
			view.Servers = append(view.Servers, serverView(s))
		}

		c.JSON(http.StatusOK, view)
	}
}

func handleServer(f Fleet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := f.Server(c.Param("name"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, fleet.ErrServerNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, serverView(s))
	}
}

func serverView(s *fleet.Server) ServerView {
	st := s.Snapshot()
	bots := s.Bots()
	view := ServerView{
		Name:        s.Name(),
		TargetSlots: st.TargetSlots(),
		State:       st,
		Bots:        make([]BotView, 0, len(bots)),
	}
	for _, b := range bots {
		c := b.Config()
		view.Bots = append(view.Bots, BotView{
			Slot:     c.Slot,
			Basename: c.Basename,
			Nickname: c.Nickname,
			Status:   b.Status(),
		})
	}

	return view
}

func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

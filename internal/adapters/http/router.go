package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"tripsync/internal/adapters/ws"
	"tripsync/internal/app"
	"tripsync/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, reg *app.Registry, relay *app.Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rooms := &roomHandlers{reg: reg}
	api := r.Group("/api")
	api.POST("/rooms", rooms.create)
	api.GET("/rooms/:code", rooms.info)
	api.DELETE("/rooms/:code", rooms.remove)

	ctl := ws.NewController(reg, relay, cfg.ReadLimit, cfg.SendBuffer, cfg.ChatLimit, cfg.ChatWindow)
	r.GET("/ws/room/:code", func(c *gin.Context) {
		ctl.HandleRoom(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/LiveState/internal/adapters/native"
	"github.com/dkeye/LiveState/internal/adapters/signal"
	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/archive"
	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/config"
	"github.com/dkeye/LiveState/internal/logging"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SummaryReader lists archived summaries. Nil when archiving is disabled.
type SummaryReader interface {
	ListByLive(ctx context.Context, liveID string, limit int) ([]archive.Summary, error)
	Recent(ctx context.Context, limit int) ([]archive.Summary, error)
}

type Deps struct {
	Orch      *app.Orchestrator
	Bridge    *bridge.Client
	Native    *native.Transport
	Signal    *signal.SignalWSController
	Summaries SummaryReader
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LiveStateSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{Deps: d}
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.GET("/stores", h.listStores)
	api.GET("/stores/:store", h.snapshot)
	api.DELETE("/stores/:store", h.clear)
	api.POST("/stores/:store/actions/:action", h.action)
	api.GET("/summaries", h.summaries)

	api.GET("/ws/native", func(c *gin.Context) {
		d.Native.Handle(ctx, c)
	})
	api.GET("/ws/state", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("user", c.GetString("client_token")).Msg("ws state endpoint hit")
		d.Signal.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

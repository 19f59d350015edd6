package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/LiveState/internal/adapters/http"
	"github.com/dkeye/LiveState/internal/adapters/native"
	wsignal "github.com/dkeye/LiveState/internal/adapters/signal"
	"github.com/dkeye/LiveState/internal/app"
	"github.com/dkeye/LiveState/internal/archive"
	"github.com/dkeye/LiveState/internal/bridge"
	"github.com/dkeye/LiveState/internal/config"
	"github.com/dkeye/LiveState/internal/fanout"
	"github.com/dkeye/LiveState/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logging until the config says otherwise.
	logging.Init(logging.Config{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log)

	transport := native.New(native.Config{
		Token:      cfg.Native.Token,
		ReadLimit:  cfg.WS.ReadLimit,
		PingPeriod: cfg.WS.PingPeriod,
		SendBuffer: cfg.WS.SendBuffer,
	})
	client := bridge.NewClient(transport, bridge.CallOptions{
		Timeout:    cfg.Native.CallTimeout,
		Retry:      cfg.Native.Retry,
		RetryDelay: cfg.Native.RetryDelay,
	})
	transport.SetDispatcher(client)

	var pub fanout.Publisher = fanout.Nop{}
	if cfg.Fanout.Driver == "redis" {
		rp, err := fanout.NewRedisPublisher(ctx, cfg.Fanout.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect fanout")
		}
		pub = rp
	}
	defer pub.Close()
	async := fanout.NewAsync(pub, cfg.Fanout.Buffer)
	go async.Run(ctx)
	opts := app.Options{Publish: async.Submit}

	var (
		archiver  app.SummaryArchiver
		summaries router.SummaryReader
	)
	if cfg.Archive.Driver != "none" {
		db, err := archive.Open(cfg.Archive)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open archive")
		}
		repo := archive.NewRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate archive")
		}
		archiver, summaries = repo, repo
	}

	policy, err := app.PolicyFor(cfg.WS.SlowSubscriber)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid slow subscriber policy")
	}
	hub := app.NewHub(client, opts, archiver)
	orch := app.NewOrchestrator(app.NewRegistry(), hub, policy, app.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Interval))
	go orch.Run(ctx, time.Minute)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:   orch,
		Bridge: client,
		Native: transport,
		Signal: wsignal.NewSignalWSController(orch, wsignal.Config{
			SendBuffer:  cfg.WS.SendBuffer,
			MaxInflight: cfg.WS.MaxInflight,
			ReadLimit:   cfg.WS.ReadLimit,
			PingPeriod:  cfg.WS.PingPeriod,
		}),
		Summaries: summaries,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("LiveState server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	async.Wait()
	log.Info().Int64("sent", async.Sent()).Int64("dropped", async.Dropped()).Msg("fanout drained")
	log.Info().Msg("Server exited gracefully")
}

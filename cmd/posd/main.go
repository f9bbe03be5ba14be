// Command posd runs the point-of-sale client core on the device: it keeps the
// cached read models warm, rings up sales (queueing them while offline),
// replays the queue on reconnect, and exposes all of it to the POS UI over a
// loopback HTTP facade.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-pos-client/internal/apiclient"
	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/config"
	"github.com/tbourn/go-pos-client/internal/connectivity"
	"github.com/tbourn/go-pos-client/internal/domain"
	httpapi "github.com/tbourn/go-pos-client/internal/http"
	"github.com/tbourn/go-pos-client/internal/http/handlers"
	"github.com/tbourn/go-pos-client/internal/observability"
	"github.com/tbourn/go-pos-client/internal/offline"
	"github.com/tbourn/go-pos-client/internal/repo"
	"github.com/tbourn/go-pos-client/internal/services"
	"github.com/tbourn/go-pos-client/internal/syncer"
	"github.com/tbourn/go-pos-client/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("posd stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(version, os.Getenv("POSD_VERSION"), "dev")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	kv := repo.NewKVStore(db)
	store := cache.New(kv)
	queue := offline.New(kv)

	var tokens apiclient.TokenSource
	if cfg.API.Token != "" {
		tokens = apiclient.StaticToken(cfg.API.Token)
	}
	client := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		RPS:     cfg.API.RPS,
		Burst:   cfg.API.Burst,
		Tokens:  tokens,
	})

	monitor := connectivity.New(false,
		connectivity.WithProbe(client.Ping),
		connectivity.WithInterval(cfg.Sync.ConnectivityInterval),
	)
	monitor.Fetch(ctx)
	go monitor.Run(ctx)

	dashboard := services.NewDashboardService(client, store, cfg.Sync.CacheMaxAge)
	menu := services.NewMenuService(client, store, cfg.Sync.CacheMaxAge)
	sales := services.NewSalesService(client, store, cfg.Sync.CacheMaxAge)
	coord := services.NewCoordinator(store, dashboard, menu, sales)
	checkout := services.NewCheckoutService(client, queue, monitor, coord)
	checkout.TitleCaseNames = cfg.TitleCaseNames

	// SYNC_DELAY=0 means "no pause"; the orchestrator reads 0 as "default".
	delay := cfg.Sync.Delay
	if delay == 0 {
		delay = -1
	}
	orch := syncer.New(syncer.Options{
		Queue:        queue,
		Submitter:    checkout,
		Connectivity: monitor,
		Markers:      kv,
		Delay:        delay,
	})
	orch.OnSynced(func(ctx context.Context, _ domain.SyncResult) { coord.OnSaleCreated(ctx) })
	orch.Recover(ctx)
	// Drains right away when sales survived a restart and the device is online.
	stopSync := orch.Start(ctx)

	go purgeIdempotency(ctx, db, time.Hour)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, handlers.Deps{
		Dashboard:      dashboard,
		Menu:           menu,
		Sales:          sales,
		Checkout:       checkout,
		Queue:          queue,
		Sync:           orch,
		Connectivity:   monitor,
		Mutations:      coord,
		Cache:          store,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("api", cfg.API.BaseURL).
			Bool("online", monitor.IsOnline()).
			Int("queued", queue.Count(ctx)).
			Msg("posd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	// Waits for an in-flight drain; a replayed sale must finish its round trip.
	stopSync()
	checkout.Wait()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return serveErr
}

// purgeIdempotency drops expired checkout records every interval.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency records removed")
			}
		}
	}
}

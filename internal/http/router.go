// Package httpapi wires the loopback HTTP facade: middleware, the handlers
// of the point-of-sale core, health, metrics and API docs.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access log with query scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per device/IP, bypass on replay)
//  9. gzip, CORS and security headers
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-pos-client/docs"
	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/config"
	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/http/handlers"
	"github.com/tbourn/go-pos-client/internal/http/middleware"
	"github.com/tbourn/go-pos-client/internal/repo"
)

const maxBodyBytes = 256 << 10

// idemRepoShim adapts the repository free functions to
// handlers.IdempotencyStore.
type idemRepoShim struct{ db *gorm.DB }

// Get proxies repo.GetIdempotency.
func (s idemRepoShim) Get(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, key, now)
}

// Create proxies repo.CreateIdempotency.
func (s idemRepoShim) Create(ctx context.Context, rec domain.Idempotency, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, s.db, rec, ttl)
}

// RegisterRoutes attaches middleware and endpoints to r. deps carries the
// services built by the caller; db backs idempotency records unless
// deps.Idempotency is already set.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps handlers.Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Idempotency == nil && db != nil {
		deps.Idempotency = idemRepoShim{db: db}
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = cfg.IdempotencyTTL
	}
	var lookup middleware.IdempotencyLookup
	if deps.Idempotency != nil {
		store := deps.Idempotency
		lookup = func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := store.Get(ctx, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		}
	}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByDeviceOrIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if deps.Connectivity != nil {
			body["online"] = deps.Connectivity.IsOnline()
		}
		if db != nil {
			n, last, err := repo.PrefixStats(c.Request.Context(), db, cache.Namespace)
			if err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("health: cache stats")
			} else {
				body["cache_entries"] = n
				if last != nil {
					body["cache_written_at"] = last.UTC()
				}
			}
		}
		c.JSON(http.StatusOK, body)
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/menu", h.GetMenu)
		api.GET("/sales", h.GetSales)

		api.POST("/checkout", h.PostCheckout)

		api.GET("/queue", h.GetQueue)
		api.POST("/sync", h.PostSync)
		api.GET("/connectivity", h.GetConnectivity)
		api.POST("/connectivity", h.PostConnectivity)

		api.POST("/mutations/:kind", h.PostMutation)
		api.DELETE("/cache", h.DeleteCache)
	}
}

// corsConfig allows every origin when none is configured; the facade binds
// to loopback, so the browser's origin is whatever serves the POS UI.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"X-Request-ID", "X-Device-ID", middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"X-Request-ID", handlers.HeaderIdempotentReplay, "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// limitBody caps request bodies at maxBytes; larger bodies fail to decode.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

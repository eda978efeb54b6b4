package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/manzaspots/manza/internal/adapters/http"
	"github.com/manzaspots/manza/internal/adapters/memory"
	natsadapter "github.com/manzaspots/manza/internal/adapters/nats"
	"github.com/manzaspots/manza/internal/adapters/postgres"
	"github.com/manzaspots/manza/internal/adapters/valkey"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/core/usecases"
	"github.com/manzaspots/manza/internal/pkg/config"
	"github.com/manzaspots/manza/internal/pkg/logging"
	"github.com/manzaspots/manza/internal/pkg/metrics"
	"github.com/manzaspots/manza/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("manza-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{Version: version}

	// Store
	var (
		spotRepo  ports.SpotRepository
		routeRepo ports.RouteRepository
		favRepo   ports.FavoriteRepository
		gauges    func()
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()

		spotRepo = postgres.NewSpotRepo(db)
		routeRepo = postgres.NewRouteRepo(db)
		favRepo = postgres.NewFavoriteRepo(db)
		deps.DB = db
		gauges = func() { metrics.UpdateDBPoolMetrics(db.Pool.Stat()) }
	default:
		spots, routes := memory.NewSpotRepo(), memory.NewRouteRepo()
		spotRepo, routeRepo, favRepo = spots, routes, memory.NewFavoriteRepo()
		gauges = func() {
			metrics.IndexedGeometries.WithLabelValues("spot").Set(float64(spots.Indexed()))
			metrics.IndexedGeometries.WithLabelValues("route").Set(float64(routes.Indexed()))
		}
		slog.Warn("using in-memory store, data is lost on restart")
	}
	go reportGauges(ctx, gauges)

	// Cache
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix); err != nil {
		slog.Warn("valkey unavailable, search cache disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS
	opts := []usecases.Option{
		usecases.WithRadiusLimits(cfg.Search.DefaultRadiusKm, cfg.Search.MaxRadiusKm),
		usecases.WithCacheTTL(cfg.Search.CacheTTL),
	}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, change events disabled", "error", err)
	} else {
		defer pub.Close()
		opts = append(opts, usecases.WithEvents(pub))
	}

	// Raw NATS connection for WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	// Use cases
	spotSvc := usecases.NewSpotService(spotRepo, cache, opts...)
	deps.Search = usecases.NewSearchService(spotRepo, cache, opts...)
	deps.Spots = spotSvc
	deps.Routes = usecases.NewRouteService(routeRepo, spotRepo, opts...)
	deps.Favorites = usecases.NewFavoriteService(favRepo, spotRepo, routeRepo, opts...)

	// Spot changes from any writer evict cached spots and search results.
	if cache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, natsadapter.ReplicaDurable(cfg.NATS.Durable))
		if err == nil {
			err = sub.SubscribeChanges(ctx, spotSvc.HandleChange)
		}
		if err != nil {
			slog.Warn("change subscription unavailable", "error", err)
		}
		if sub != nil {
			defer sub.Close()
		}
	}

	// Auth
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		slog.Warn("auth.jwt_secret not set, using an ephemeral secret")
	}
	deps.Auth = http.NewAuthenticator(secret, cfg.Auth.Issuer)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "ManzaSpots API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "store", cfg.Store.Backend, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportGauges refreshes store gauges until ctx is done.
func reportGauges(ctx context.Context, update func()) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		update()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, no auth)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	app.Use(AuthMiddleware(deps.Auth))

	t := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }
	authed := RequireCaller()

	v1 := app.Group("/v1")
	v1.Get("/catalog", CatalogHandler())

	// Spots: discovery
	v1.Get("/spots", t(SearchSpotsHandler(deps)))
	v1.Get("/spots/nearby", t(NearbySpotsHandler(deps)))
	v1.Get("/spots/within", t(WithinSpotsHandler(deps)))
	v1.Get("/spots/mine", authed, t(MySpotsHandler(deps)))

	// Spots: lifecycle and review
	v1.Post("/spots", authed, t(CreateSpotHandler(deps)))
	v1.Get("/spots/:id", t(GetSpotHandler(deps)))
	v1.Patch("/spots/:id", authed, t(UpdateSpotHandler(deps)))
	v1.Delete("/spots/:id", authed, t(DeleteSpotHandler(deps)))
	v1.Post("/spots/:id/approve", authed, t(ApproveSpotHandler(deps)))
	v1.Post("/spots/:id/reject", authed, t(RejectSpotHandler(deps)))
	v1.Post("/spots/:id/favorite", authed, t(FavoriteSpotHandler(deps)))
	v1.Post("/spots/:id/unfavorite", authed, t(UnfavoriteSpotHandler(deps)))

	// Routes
	v1.Get("/routes", t(ListRoutesHandler(deps)))
	v1.Get("/routes/nearby", t(NearbyRoutesHandler(deps)))
	v1.Post("/routes", authed, t(CreateRouteHandler(deps)))
	v1.Get("/routes/:id", t(GetRouteHandler(deps)))
	v1.Patch("/routes/:id", authed, t(UpdateRouteHandler(deps)))
	v1.Delete("/routes/:id", authed, t(DeleteRouteHandler(deps)))
	v1.Put("/routes/:id/path", authed, t(ReplacePathHandler(deps)))
	v1.Post("/routes/:id/favorite", authed, t(FavoriteRouteHandler(deps)))
	v1.Delete("/routes/:id/favorite", authed, t(UnfavoriteRouteHandler(deps)))

	// Favorites
	v1.Get("/favorites/spots", authed, t(ListFavoritesHandler(deps, domain.FavoriteSpot)))
	v1.Get("/favorites/routes", authed, t(ListFavoritesHandler(deps, domain.FavoriteRoute)))

	app.Post("/graphql", t(GraphQLHandler(deps)))

	docsPath := deps.DocsPath
	if docsPath == "" {
		docsPath = "api/openapi.yaml"
	}
	SetupDocs(app, docsPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

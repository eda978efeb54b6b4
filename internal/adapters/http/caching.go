package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set
// their own. Spot data depends on who is asking, so anything fetched
// with credentials is private; anonymous discovery results may be
// shared briefly.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if c.Get(fiber.HeaderAuthorization) != "" {
			c.Set(fiber.HeaderCacheControl, "private, no-store")
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "no-cache"
		case path == "/metrics":
			ttl = "no-cache"
		case path == "/v1/catalog":
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/spots"):
			ttl = "public, max-age=30"
		case strings.HasPrefix(path, "/v1/routes"):
			ttl = "public, max-age=60"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=30"
		}
		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/manzaspots/manza/internal/core/domain"
)

// FavoriteSpotHandler adds a spot to the caller's favorites. Repeating
// the call is harmless: 201 when a relation was created, 200 otherwise.
func FavoriteSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome, err := deps.Favorites.AddFavoriteIdempotent(c.UserContext(), callerFrom(c), domain.FavoriteSpot, c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		status := fiber.StatusOK
		if outcome == domain.FavoriteAdded {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{"status": outcome})
	}
}

// UnfavoriteSpotHandler deactivates a spot favorite.
func UnfavoriteSpotHandler(deps *Dependencies) fiber.Handler {
	return removeFavorite(deps, domain.FavoriteSpot)
}

// FavoriteRouteHandler adds a route to the caller's favorites. Adding an
// already active favorite is a 400.
func FavoriteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome, err := deps.Favorites.AddFavoriteStrict(c.UserContext(), callerFrom(c), domain.FavoriteRoute, c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": outcome})
	}
}

// UnfavoriteRouteHandler deactivates a route favorite.
func UnfavoriteRouteHandler(deps *Dependencies) fiber.Handler {
	return removeFavorite(deps, domain.FavoriteRoute)
}

func removeFavorite(deps *Dependencies, kind domain.FavoriteKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Favorites.RemoveFavorite(c.UserContext(), callerFrom(c), kind, c.Params("id")); err != nil {
			return fromError(c, err)
		}
		return c.JSON(fiber.Map{"status": "removed"})
	}
}

// ListFavoritesHandler lists the caller's active favorites of one kind.
// The kind comes from the route path.
func ListFavoritesHandler(deps *Dependencies, kind domain.FavoriteKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		items, err := deps.Favorites.ListFavorites(c.UserContext(), caller, kind)
		if err != nil {
			return fromError(c, err)
		}
		out := make([]fiber.Map, len(items))
		for i, it := range items {
			m := fiber.Map{
				"kind":       it.Kind,
				"target_id":  it.TargetID,
				"created_at": it.CreatedAt,
			}
			if it.Spot != nil {
				m["spot"] = domain.ProjectSpot(it.Spot, domain.RoleFor(caller, it.Spot.OwnerID))
			}
			if it.Route != nil {
				m["route"] = domain.ProjectRoute(it.Route, domain.RoleFor(caller, it.Route.OwnerID))
			}
			out[i] = m
		}
		data, pg := page(c, out)
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

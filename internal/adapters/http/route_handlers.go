package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/usecases"
)

type createRouteRequest struct {
	SpotID      string          `json:"spot_id" validate:"required"`
	Difficulty  string          `json:"difficulty" validate:"required"`
	TravelMode  string          `json:"travel_mode" validate:"required"`
	Description string          `json:"description"`
	Path        *domain.GeoPath `json:"path" validate:"required"`
}

type updateRouteRequest struct {
	Difficulty  *string         `json:"difficulty"`
	TravelMode  *string         `json:"travel_mode"`
	Description *string         `json:"description"`
	Path        *domain.GeoPath `json:"path"`
}

type replacePathRequest struct {
	Path *domain.GeoPath `json:"path" validate:"required"`
}

func projectRoutes(caller domain.Caller, routes []domain.Route) []map[string]any {
	out := make([]map[string]any, len(routes))
	for i := range routes {
		out[i] = domain.ProjectRoute(&routes[i], domain.RoleFor(caller, routes[i].OwnerID))
	}
	return out
}

// ListRoutesHandler lists live routes filtered by user, spot, difficulty
// and travel_mode.
func ListRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routes, err := deps.Routes.List(c.UserContext(), domain.RouteFilter{
			OwnerID:    c.Query("user"),
			SpotID:     c.Query("spot"),
			Difficulty: c.Query("difficulty"),
			TravelMode: c.Query("travel_mode"),
		})
		if err != nil {
			return fromError(c, err)
		}
		data, pg := page(c, projectRoutes(callerFrom(c), routes))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// NearbyRoutesHandler returns routes passing within radius km of (lat, lng).
func NearbyRoutesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			return fromError(c, err)
		}
		lng, err := queryFloat(c, "lng")
		if err != nil {
			return fromError(c, err)
		}
		if lat == nil || lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}
		radius, err := queryFloat(c, "radius")
		if err != nil {
			return fromError(c, err)
		}
		routes, err := deps.Routes.Nearby(c.UserContext(), *lat, *lng, radius)
		if err != nil {
			return fromError(c, err)
		}
		data, pg := page(c, projectRoutes(callerFrom(c), routes))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

func CreateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		var req createRouteRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		route, err := deps.Routes.Create(c.UserContext(), caller, usecases.CreateRouteInput{
			SpotID:      req.SpotID,
			Difficulty:  req.Difficulty,
			TravelMode:  req.TravelMode,
			Description: req.Description,
			Path:        *req.Path,
		})
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(domain.ProjectRoute(route, domain.RoleFor(caller, route.OwnerID)))
	}
}

func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, err := deps.Routes.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectRoute(route, domain.RoleFor(callerFrom(c), route.OwnerID)))
	}
}

func UpdateRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		var req updateRouteRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		route, err := deps.Routes.Update(c.UserContext(), caller, c.Params("id"), usecases.UpdateRouteInput{
			Difficulty:  req.Difficulty,
			TravelMode:  req.TravelMode,
			Description: req.Description,
			Path:        req.Path,
		})
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectRoute(route, domain.RoleFor(caller, route.OwnerID)))
	}
}

// ReplacePathHandler swaps the geometry; distance_km is recomputed.
func ReplacePathHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		var req replacePathRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		route, err := deps.Routes.ReplacePath(c.UserContext(), caller, c.Params("id"), *req.Path)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectRoute(route, domain.RoleFor(caller, route.OwnerID)))
	}
}

func DeleteRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Routes.Delete(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
			return fromError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CatalogHandler returns the difficulty and travel mode catalogs.
func CatalogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"difficulties": domain.Difficulties,
			"travel_modes": domain.TravelModes,
		})
	}
}

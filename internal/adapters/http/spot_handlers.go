package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/usecases"
)

type createSpotRequest struct {
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	ThumbnailPath string   `json:"thumbnail_path"`
	Lat           *float64 `json:"lat" validate:"required"`
	Lng           *float64 `json:"lng" validate:"required"`
}

type updateSpotRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	ThumbnailPath *string  `json:"thumbnail_path"`
	Lat           *float64 `json:"lat" validate:"required_with=Lng"`
	Lng           *float64 `json:"lng" validate:"required_with=Lat"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// spotFilter reads the name/status/active filters shared by every search.
// Only privileged callers may filter on status and active; for anyone else
// those parameters are ignored without being parsed.
func spotFilter(c *fiber.Ctx, caller domain.Caller) (domain.SpotFilter, error) {
	f := domain.SpotFilter{NameContains: c.Query("name")}
	if !caller.Privileged {
		return f, nil
	}
	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseReviewStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	active, err := queryBool(c, "active")
	if err != nil {
		return f, err
	}
	f.Active = active
	return f, nil
}

func projectSpots(caller domain.Caller, spots []domain.Spot) []map[string]any {
	out := make([]map[string]any, len(spots))
	for i := range spots {
		out[i] = domain.ProjectSpot(&spots[i], domain.RoleFor(caller, spots[i].OwnerID))
	}
	return out
}

func projectHits(caller domain.Caller, hits []domain.SpotWithDistance) []map[string]any {
	out := make([]map[string]any, len(hits))
	for i := range hits {
		out[i] = domain.ProjectSpotHit(&hits[i], domain.RoleFor(caller, hits[i].OwnerID))
	}
	return out
}

// SearchSpotsHandler dispatches to radius, bounding-box or plain listing
// depending on which parameters are present.
func SearchSpotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q usecases.SearchQuery
		var err error
		for name, dst := range map[string]**float64{
			"lat": &q.Lat, "lng": &q.Lng, "radius": &q.RadiusKm,
			"sw_lat": &q.SWLat, "sw_lng": &q.SWLng, "ne_lat": &q.NELat, "ne_lng": &q.NELng,
		} {
			if *dst, err = queryFloat(c, name); err != nil {
				return fromError(c, err)
			}
		}
		caller := callerFrom(c)
		if q.Filter, err = spotFilter(c, caller); err != nil {
			return fromError(c, err)
		}

		res, err := deps.Search.Search(c.UserContext(), caller, q)
		if err != nil {
			return fromError(c, err)
		}
		if res.Kind == usecases.SearchRadius {
			data, pg := page(c, projectHits(caller, res.Ranked))
			return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
		}
		data, pg := page(c, projectSpots(caller, res.Spots))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// NearbySpotsHandler returns spots within radius km of (lat, lng), nearest first.
func NearbySpotsHandler(deps *Dependencies) fiber.Handler {
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
		caller := callerFrom(c)
		filter, err := spotFilter(c, caller)
		if err != nil {
			return fromError(c, err)
		}

		hits, err := deps.Search.SearchByRadius(c.UserContext(), caller, *lat, *lng, radius, filter)
		if err != nil {
			return fromError(c, err)
		}
		data, pg := page(c, projectHits(caller, hits))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// WithinSpotsHandler returns spots inside the viewport given by its
// south-west and north-east corners.
func WithinSpotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var corners [4]float64
		for i, name := range []string{"sw_lat", "sw_lng", "ne_lat", "ne_lng"} {
			v, err := queryFloat(c, name)
			if err != nil {
				return fromError(c, err)
			}
			if v == nil {
				return errBadRequest(c, fmt.Sprintf("%s is required", name))
			}
			corners[i] = *v
		}
		caller := callerFrom(c)
		filter, err := spotFilter(c, caller)
		if err != nil {
			return fromError(c, err)
		}

		spots, err := deps.Search.SearchByBoundingBox(c.UserContext(), caller,
			corners[0], corners[1], corners[2], corners[3], filter)
		if err != nil {
			return fromError(c, err)
		}
		data, pg := page(c, projectSpots(caller, spots))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

// MySpotsHandler lists the caller's own live spots.
func MySpotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		spots, err := deps.Spots.ListMine(c.UserContext(), caller)
		if err != nil {
			return fromError(c, err)
		}
		data, pg := page(c, projectSpots(caller, spots))
		return c.JSON(PaginatedResponse{Data: data, Pagination: pg})
	}
}

func CreateSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		var req createSpotRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		spot, err := deps.Spots.Create(c.UserContext(), caller, usecases.CreateSpotInput{
			Name:          req.Name,
			Description:   req.Description,
			ThumbnailPath: req.ThumbnailPath,
			Lat:           *req.Lat,
			Lon:           *req.Lng,
		})
		if err != nil {
			return fromError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(domain.ProjectSpot(spot, domain.RoleFor(caller, spot.OwnerID)))
	}
}

func GetSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		spot, err := deps.Spots.Get(c.UserContext(), caller, c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectSpot(spot, domain.RoleFor(caller, spot.OwnerID)))
	}
}

func UpdateSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		var req updateSpotRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		spot, err := deps.Spots.Update(c.UserContext(), caller, c.Params("id"), usecases.UpdateSpotInput{
			Name:          req.Name,
			Description:   req.Description,
			ThumbnailPath: req.ThumbnailPath,
			Lat:           req.Lat,
			Lon:           req.Lng,
		})
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectSpot(spot, domain.RoleFor(caller, spot.OwnerID)))
	}
}

func DeleteSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Spots.Delete(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
			return fromError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ApproveSpotHandler publishes a spot. Staff only.
func ApproveSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		spot, err := deps.Spots.Approve(c.UserContext(), callerFrom(c), c.Params("id"))
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectSpot(spot, domain.RoleStaff))
	}
}

// RejectSpotHandler rejects a spot with a mandatory reason. Staff only.
func RejectSpotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerFrom(c)
		if !caller.Privileged {
			return fromError(c, fmt.Errorf("%w: only staff may review spots", domain.ErrPermissionDenied))
		}
		var req rejectRequest
		if err := bindJSON(c, &req); err != nil {
			return fromError(c, err)
		}
		spot, err := deps.Spots.Reject(c.UserContext(), caller, c.Params("id"), req.Reason)
		if err != nil {
			return fromError(c, err)
		}
		return c.JSON(domain.ProjectSpot(spot, domain.RoleStaff))
	}
}

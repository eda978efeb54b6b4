package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/manzaspots/manza/internal/core/domain"
)

type gqlCallerKey struct{}

func gqlCaller(ctx context.Context) domain.Caller {
	if c, ok := ctx.Value(gqlCallerKey{}).(domain.Caller); ok {
		return c
	}
	return domain.Anonymous
}

// optFloat reads an optional Float argument.
func optFloat(args map[string]any, name string) *float64 {
	if v, ok := args[name].(float64); ok {
		return &v
	}
	return nil
}

// spotFilterArgs reads the shared name/status/active arguments. status and
// active are ignored for unprivileged callers.
func spotFilterArgs(args map[string]any, caller domain.Caller) (domain.SpotFilter, error) {
	var f domain.SpotFilter
	f.NameContains, _ = args["name"].(string)
	if !caller.Privileged {
		return f, nil
	}
	if raw, ok := args["status"].(string); ok && raw != "" {
		st, err := domain.ParseReviewStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if v, ok := args["active"].(bool); ok {
		f.Active = &v
	}
	return f, nil
}

// buildSchema creates the GraphQL schema wired to our services. Records
// are projected for the caller before resolution, so hidden fields
// resolve to null.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	spotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Spot",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"owner_id":       &graphql.Field{Type: graphql.String},
			"name":           &graphql.Field{Type: graphql.String},
			"description":    &graphql.Field{Type: graphql.String},
			"thumbnail_path": &graphql.Field{Type: graphql.String},
			"location":       &graphql.Field{Type: geoPointType},
			"status":         &graphql.Field{Type: graphql.String},
			"reject_reason":  &graphql.Field{Type: graphql.String},
			"is_active":      &graphql.Field{Type: graphql.Boolean},
			"distance_km":    &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"owner_id":    &graphql.Field{Type: graphql.String},
			"spot_id":     &graphql.Field{Type: graphql.String},
			"difficulty":  &graphql.Field{Type: graphql.String},
			"travel_mode": &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"distance_km": &graphql.Field{Type: graphql.Float},
			"points": &graphql.Field{
				Type: graphql.NewList(geoPointType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					src, _ := p.Source.(map[string]any)
					if path, ok := src["path"].(domain.GeoPath); ok {
						return path.Points(), nil
					}
					return nil, nil
				},
			},
		},
	})

	filterArgs := graphql.FieldConfigArgument{
		"name":   &graphql.ArgumentConfig{Type: graphql.String},
		"status": &graphql.ArgumentConfig{Type: graphql.String},
		"active": &graphql.ArgumentConfig{Type: graphql.Boolean},
	}
	withFilter := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		out := graphql.FieldConfigArgument{}
		for k, v := range filterArgs {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"spotsNearby": &graphql.Field{
				Type:        graphql.NewList(spotType),
				Description: "Spots within radius km of a point, nearest first",
				Args: withFilter(graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					caller := gqlCaller(p.Context)
					filter, err := spotFilterArgs(p.Args, caller)
					if err != nil {
						return nil, err
					}
					hits, err := deps.Search.SearchByRadius(p.Context, caller,
						p.Args["lat"].(float64), p.Args["lng"].(float64), optFloat(p.Args, "radius"), filter)
					if err != nil {
						return nil, err
					}
					return projectHits(caller, hits), nil
				},
			},
			"spotsWithin": &graphql.Field{
				Type:        graphql.NewList(spotType),
				Description: "Spots inside a south-west / north-east box",
				Args: withFilter(graphql.FieldConfigArgument{
					"sw_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"sw_lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"ne_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"ne_lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					caller := gqlCaller(p.Context)
					filter, err := spotFilterArgs(p.Args, caller)
					if err != nil {
						return nil, err
					}
					spots, err := deps.Search.SearchByBoundingBox(p.Context, caller,
						p.Args["sw_lat"].(float64), p.Args["sw_lng"].(float64),
						p.Args["ne_lat"].(float64), p.Args["ne_lng"].(float64), filter)
					if err != nil {
						return nil, err
					}
					return projectSpots(caller, spots), nil
				},
			},
			"spot": &graphql.Field{
				Type:        spotType,
				Description: "Get a spot by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					caller := gqlCaller(p.Context)
					spot, err := deps.Spots.Get(p.Context, caller, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return domain.ProjectSpot(spot, domain.RoleFor(caller, spot.OwnerID)), nil
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					route, err := deps.Routes.Get(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return domain.ProjectRoute(route, domain.RoleFor(gqlCaller(p.Context), route.OwnerID)), nil
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List routes by spot, difficulty or travel mode",
				Args: graphql.FieldConfigArgument{
					"spot":        &graphql.ArgumentConfig{Type: graphql.String},
					"user":        &graphql.ArgumentConfig{Type: graphql.String},
					"difficulty":  &graphql.ArgumentConfig{Type: graphql.String},
					"travel_mode": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var f domain.RouteFilter
					f.SpotID, _ = p.Args["spot"].(string)
					f.OwnerID, _ = p.Args["user"].(string)
					f.Difficulty, _ = p.Args["difficulty"].(string)
					f.TravelMode, _ = p.Args["travel_mode"].(string)
					routes, err := deps.Routes.List(p.Context, f)
					if err != nil {
						return nil, err
					}
					return projectRoutes(gqlCaller(p.Context), routes), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        context.WithValue(c.UserContext(), gqlCallerKey{}, callerFrom(c)),
		})

		return c.JSON(result)
	}
}

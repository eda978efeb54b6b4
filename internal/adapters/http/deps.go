package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/manzaspots/manza/internal/core/usecases"
)

// Pinger is a storage backend that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Search    *usecases.SearchService
	Spots     *usecases.SpotService
	Routes    *usecases.RouteService
	Favorites *usecases.FavoriteService
	Auth      *Authenticator
	NATS      *nats.Conn
	DB        Pinger // nil when running on the in-memory store
	Cache     Pinger
	Version   string
	DocsPath  string // OpenAPI document served at /docs/openapi.yaml
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/manzaspots/manza/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository. Paths are stored as
// geography LineStrings and exchanged with PostGIS as GeoJSON.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

const routeColumns = `
	id, owner_id, spot_id, difficulty, travel_mode, description,
	ST_AsGeoJSON(path::geometry), distance_km,
	is_active, reviewed_at, deleted_at, created_at, updated_at`

func (r *RouteRepo) Create(ctx context.Context, rt *domain.Route) error {
	path, err := json.Marshal(rt.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO routes (id, owner_id, spot_id, difficulty, travel_mode, description,
		                    path, distance_km, is_active, reviewed_at, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6,
		        ST_SetSRID(ST_GeomFromGeoJSON($7), 4326)::geography, $8, $9, $10, $11, $12, $13)
	`, rt.ID, rt.OwnerID, rt.SpotID, rt.Difficulty, rt.TravelMode, rt.Description,
		string(path), rt.DistanceKm, rt.Active, rt.ReviewedAt, rt.DeletedAt, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert route %s: %w", rt.ID, mapErr(err))
	}
	return nil
}

func (r *RouteRepo) Update(ctx context.Context, rt *domain.Route) error {
	path, err := json.Marshal(rt.Path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE routes
		SET difficulty = $2, travel_mode = $3, description = $4,
		    path = ST_SetSRID(ST_GeomFromGeoJSON($5), 4326)::geography, distance_km = $6,
		    is_active = $7, reviewed_at = $8, deleted_at = $9, updated_at = $10
		WHERE id = $1
	`, rt.ID, rt.Difficulty, rt.TravelMode, rt.Description, string(path), rt.DistanceKm,
		rt.Active, rt.ReviewedAt, rt.DeletedAt, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update route %s: %w", rt.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route %s: %w", rt.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id)
	rt, err := scanRoute(row)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", id, mapErr(err))
	}
	return rt, nil
}

func (r *RouteRepo) List(ctx context.Context, f domain.RouteFilter) ([]domain.Route, error) {
	where := []string{"deleted_at IS NULL", "is_active"}
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.SpotID != "" {
		add("spot_id = $%d", f.SpotID)
	}
	if f.Difficulty != "" {
		add("lower(difficulty) = lower($%d)", f.Difficulty)
	}
	if f.TravelMode != "" {
		add("lower(travel_mode) = lower($%d)", f.TravelMode)
	}
	return r.query(ctx, `SELECT `+routeColumns+` FROM routes WHERE `+
		strings.Join(where, " AND ")+` ORDER BY created_at DESC, id`, args...)
}

// WithinRadius returns routes whose line passes within radiusKm of center.
// This is a superset of the any-vertex rule; the caller refines.
func (r *RouteRepo) WithinRadius(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.Route, error) {
	q := &whereClause{where: []string{"deleted_at IS NULL", "is_active"}}
	q.withinRadius("path", center, radiusKm)
	return r.query(ctx, `SELECT `+routeColumns+` FROM routes WHERE `+strings.Join(q.where, " AND "), q.args...)
}

func (r *RouteRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		routes = append(routes, *rt)
	}
	return routes, mapErr(rows.Err())
}

func scanRoute(row pgx.Row) (*domain.Route, error) {
	var rt domain.Route
	var geojson string
	err := row.Scan(
		&rt.ID, &rt.OwnerID, &rt.SpotID, &rt.Difficulty, &rt.TravelMode, &rt.Description,
		&geojson, &rt.DistanceKm,
		&rt.Active, &rt.ReviewedAt, &rt.DeletedAt, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(geojson), &rt.Path); err != nil {
		return nil, fmt.Errorf("decode path of route %s: %w", rt.ID, err)
	}
	return &rt, nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/manzaspots/manza/internal/core/domain"
)

// SpotRepo implements ports.SpotRepository with PostGIS.
type SpotRepo struct {
	db *DB
}

// NewSpotRepo creates a new SpotRepo.
func NewSpotRepo(db *DB) *SpotRepo {
	return &SpotRepo{db: db}
}

const spotColumns = `
	id, owner_id, name, description, thumbnail_path,
	ST_Y(location::geometry) AS lat,
	ST_X(location::geometry) AS lon,
	status, reject_reason, COALESCE(reviewed_by, ''),
	is_active, reviewed_at, deleted_at, created_at, updated_at`

// Create inserts a spot.
func (r *SpotRepo) Create(ctx context.Context, s *domain.Spot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO spots (id, owner_id, name, description, thumbnail_path, location,
		                   status, reject_reason, reviewed_by, is_active, reviewed_at, deleted_at,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography,
		        $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15)
	`, s.ID, s.OwnerID, s.Name, s.Description, s.ThumbnailPath, s.Location.Lon, s.Location.Lat,
		string(s.Status), s.RejectReason, s.ReviewedBy, s.Active, s.ReviewedAt, s.DeletedAt,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert spot %s: %w", s.ID, mapErr(err))
	}
	return nil
}

// Update overwrites every mutable column of a spot.
func (r *SpotRepo) Update(ctx context.Context, s *domain.Spot) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE spots
		SET name = $2, description = $3, thumbnail_path = $4,
		    location = ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography,
		    status = $7, reject_reason = $8, reviewed_by = NULLIF($9, ''),
		    is_active = $10, reviewed_at = $11, deleted_at = $12, updated_at = $13
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.ThumbnailPath, s.Location.Lon, s.Location.Lat,
		string(s.Status), s.RejectReason, s.ReviewedBy, s.Active, s.ReviewedAt, s.DeletedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update spot %s: %w", s.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spot %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns a spot, including soft-deleted ones.
func (r *SpotRepo) GetByID(ctx context.Context, id string) (*domain.Spot, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = $1`, id)
	s, err := scanSpot(row)
	if err != nil {
		return nil, fmt.Errorf("spot %s: %w", id, mapErr(err))
	}
	return s, nil
}

// WithinRadius returns live spots within radiusKm of center. The result is
// a slight superset measured on the sphere; callers refine it with their
// own great-circle distance.
func (r *SpotRepo) WithinRadius(ctx context.Context, center domain.GeoPoint, radiusKm float64, filter domain.SpotFilter) ([]domain.Spot, error) {
	q := newSpotQuery(filter)
	q.withinRadius("location", center, radiusKm)
	return r.query(ctx, q, "")
}

// WithinBounds returns live spots covered by the box, edges inclusive.
func (r *SpotRepo) WithinBounds(ctx context.Context, b domain.Bounds, filter domain.SpotFilter) ([]domain.Spot, error) {
	q := newSpotQuery(filter)
	q.withinBounds(b)
	return r.query(ctx, q, "")
}

// List returns live spots matching filter, newest first.
func (r *SpotRepo) List(ctx context.Context, filter domain.SpotFilter) ([]domain.Spot, error) {
	return r.query(ctx, newSpotQuery(filter), "ORDER BY created_at DESC, id")
}

func (r *SpotRepo) query(ctx context.Context, q *whereClause, order string) ([]domain.Spot, error) {
	sql := `SELECT ` + spotColumns + ` FROM spots WHERE ` + strings.Join(q.where, " AND ") + " " + order
	rows, err := r.db.Pool.Query(ctx, sql, q.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	spots := make([]domain.Spot, 0)
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		spots = append(spots, *s)
	}
	return spots, mapErr(rows.Err())
}

// whereClause accumulates positional arguments and WHERE terms.
type whereClause struct {
	where []string
	args  []any
}

func (q *whereClause) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// radiusPad widens the SQL distance test so rows on the boundary survive
// the difference between the PostGIS sphere and ours.
const radiusPad = 1.001

// withinRadius adds a sphere (not spheroid) distance test on col, served
// by the geography GiST index.
func (q *whereClause) withinRadius(col string, center domain.GeoPoint, radiusKm float64) {
	lon, lat, meters := q.arg(center.Lon), q.arg(center.Lat), q.arg(radiusKm*1000*radiusPad)
	q.where = append(q.where, fmt.Sprintf(
		"ST_DWithin(%s, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography, %s, false)", col, lon, lat, meters))
}

// withinBounds adds an inclusive box test. The && term matches the
// idx_spots_location_geom expression index.
func (q *whereClause) withinBounds(b domain.Bounds) {
	env := fmt.Sprintf("ST_MakeEnvelope(%s, %s, %s, %s, 4326)",
		q.arg(b.MinLon), q.arg(b.MinLat), q.arg(b.MaxLon), q.arg(b.MaxLat))
	q.where = append(q.where,
		"location::geometry && "+env,
		"ST_Covers("+env+", location::geometry)")
}

func newSpotQuery(f domain.SpotFilter) *whereClause {
	q := &whereClause{where: []string{"deleted_at IS NULL"}}
	if f.NameContains != "" {
		q.where = append(q.where, "name ILIKE '%' || "+q.arg(escapeLike(f.NameContains))+" || '%'")
	}
	if f.Status != "" {
		q.where = append(q.where, "status = "+q.arg(string(f.Status)))
	}
	if f.Active != nil {
		q.where = append(q.where, "is_active = "+q.arg(*f.Active))
	}
	if f.OwnerID != "" {
		q.where = append(q.where, "owner_id = "+q.arg(f.OwnerID))
	}
	return q
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanSpot(row pgx.Row) (*domain.Spot, error) {
	var s domain.Spot
	var status string
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.ThumbnailPath,
		&s.Location.Lat, &s.Location.Lon,
		&status, &s.RejectReason, &s.ReviewedBy,
		&s.Active, &s.ReviewedAt, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.ReviewStatus(status)
	return &s, nil
}

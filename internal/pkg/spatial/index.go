// Package spatial keeps an in-memory R-tree of point and path geometries
// keyed by entity ID.
package spatial

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/geospatial"
	"github.com/tidwall/rtree"
)

// Geometry is anything the index can store: a point or a path.
type Geometry interface {
	Vertices() []domain.GeoPoint
}

type entry struct {
	vertices []domain.GeoPoint
	min, max [2]float64
}

// Index is an R-tree guarded by a reader/writer lock. Queries share the
// lock; Insert, Update and Remove are exclusive.
type Index struct {
	mu      sync.RWMutex
	tree    rtree.RTreeG[string]
	entries map[string]entry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Insert adds a new entity. Inserting an existing ID is an error.
func (ix *Index) Insert(id string, g Geometry) error {
	e, err := newEntry(g)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.entries[id]; ok {
		return fmt.Errorf("spatial: insert %s: already indexed", id)
	}
	ix.entries[id] = e
	ix.tree.Insert(e.min, e.max, id)
	return nil
}

// Update replaces the geometry of an indexed entity.
func (ix *Index) Update(id string, g Geometry) error {
	e, err := newEntry(g)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	old, ok := ix.entries[id]
	if !ok {
		return fmt.Errorf("spatial: update %s: %w", id, domain.ErrNotFound)
	}
	ix.tree.Delete(old.min, old.max, id)
	ix.tree.Insert(e.min, e.max, id)
	ix.entries[id] = e
	return nil
}

// Remove drops an entity from the index.
func (ix *Index) Remove(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	old, ok := ix.entries[id]
	if !ok {
		return fmt.Errorf("spatial: remove %s: %w", id, domain.ErrNotFound)
	}
	ix.tree.Delete(old.min, old.max, id)
	delete(ix.entries, id)
	return nil
}

// QueryRadius returns the IDs of every entity with a vertex whose
// great-circle distance to center is at most radiusKm, sorted by ID.
func (ix *Index) QueryRadius(center domain.GeoPoint, radiusKm float64) ([]string, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return nil, fmt.Errorf("%w: radius must be a positive number of kilometers, got %v", domain.ErrInvalidQuery, radiusKm)
	}
	radiusM := radiusKm * 1000

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range geospatial.SearchRects(center.Lat, center.Lon, radiusM) {
		ix.tree.Search(
			[2]float64{r.MinLon, r.MinLat},
			[2]float64{r.MaxLon, r.MaxLat},
			func(_, _ [2]float64, id string) bool {
				if _, dup := seen[id]; dup {
					return true
				}
				for _, v := range ix.entries[id].vertices {
					if center.DistanceMeters(v) <= radiusM {
						seen[id] = struct{}{}
						break
					}
				}
				return true
			},
		)
	}
	return sortedIDs(seen), nil
}

// QueryBoundingBox returns the IDs of every entity with a vertex inside
// the box spanned by sw and ne, boundary included, sorted by ID.
func (ix *Index) QueryBoundingBox(sw, ne domain.GeoPoint) ([]string, error) {
	b, err := domain.NewBounds(sw, ne)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[string]struct{})
	ix.tree.Search(
		[2]float64{b.MinLon, b.MinLat},
		[2]float64{b.MaxLon, b.MaxLat},
		func(_, _ [2]float64, id string) bool {
			for _, v := range ix.entries[id].vertices {
				if b.Contains(v) {
					seen[id] = struct{}{}
					break
				}
			}
			return true
		},
	)
	return sortedIDs(seen), nil
}

func newEntry(g Geometry) (entry, error) {
	verts := g.Vertices()
	if len(verts) == 0 {
		return entry{}, fmt.Errorf("%w: empty geometry", domain.ErrInvalidGeometry)
	}
	e := entry{
		vertices: append([]domain.GeoPoint(nil), verts...),
		min:      [2]float64{verts[0].Lon, verts[0].Lat},
		max:      [2]float64{verts[0].Lon, verts[0].Lat},
	}
	for _, v := range verts {
		if err := v.Validate(); err != nil {
			return entry{}, err
		}
		e.min[0] = math.Min(e.min[0], v.Lon)
		e.min[1] = math.Min(e.min[1], v.Lat)
		e.max[0] = math.Max(e.max[0], v.Lon)
		e.max[1] = math.Max(e.max[1], v.Lat)
	}
	return e, nil
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

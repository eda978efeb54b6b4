package spatial_test

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/pkg/geospatial"
	"github.com/manzaspots/manza/internal/pkg/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var center = domain.GeoPoint{Lat: 19.0519, Lon: -104.3186}

// northOf returns the point km kilometers due north of p.
func northOf(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + km*1000/geospatial.EarthRadiusMeters*180/math.Pi, Lon: p.Lon}
}

func seeded(t *testing.T) *spatial.Index {
	t.Helper()
	ix := spatial.NewIndex()
	for _, km := range []float64{0.5, 3.2, 4.9, 7.0} {
		require.NoError(t, ix.Insert(fmt.Sprintf("d%.1f", km), northOf(center, km)))
	}
	return ix
}

func TestQueryRadius_Scenario(t *testing.T) {
	ix := seeded(t)

	ids, err := ix.QueryRadius(center, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"d0.5", "d3.2", "d4.9"}, ids)
}

func TestQueryRadius_Monotonic(t *testing.T) {
	ix := seeded(t)
	for i := 0; i < 50; i++ {
		require.NoError(t, ix.Insert(fmt.Sprintf("g%d", i), domain.GeoPoint{
			Lat: center.Lat + float64(i%7-3)*0.01,
			Lon: center.Lon + float64(i%11-5)*0.01,
		}))
	}

	radii := []float64{0.1, 0.5, 1, 2, 3.5, 5, 8, 20}
	var prev []string
	for _, r := range radii {
		ids, err := ix.QueryRadius(center, r)
		require.NoError(t, err)
		assert.Subset(t, ids, prev, "radius %v lost results from a smaller radius", r)
		prev = ids
	}
}

func TestQueryRadius_InvalidRadius(t *testing.T) {
	ix := seeded(t)
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ix.QueryRadius(center, r)
		require.ErrorIs(t, err, domain.ErrInvalidQuery)
	}

	_, err := ix.QueryRadius(domain.GeoPoint{Lat: 91}, 1)
	require.ErrorIs(t, err, domain.ErrInvalidGeometry)
}

func TestQueryRadius_EmptyIsNotAnError(t *testing.T) {
	ix := spatial.NewIndex()
	ids, err := ix.QueryRadius(center, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestQueryRadius_Antimeridian(t *testing.T) {
	ix := spatial.NewIndex()
	require.NoError(t, ix.Insert("east", domain.GeoPoint{Lat: 0, Lon: 179.995}))
	require.NoError(t, ix.Insert("west", domain.GeoPoint{Lat: 0, Lon: -179.995}))

	ids, err := ix.QueryRadius(domain.GeoPoint{Lat: 0, Lon: 180}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "west"}, ids)
}

func TestQueryRadius_PathMatchesAnyVertex(t *testing.T) {
	ix := spatial.NewIndex()
	path, err := domain.NewGeoPath([]domain.GeoPoint{northOf(center, 10), northOf(center, 2)})
	require.NoError(t, err)
	require.NoError(t, ix.Insert("route", path))

	ids, err := ix.QueryRadius(center, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"route"}, ids)

	ids, err = ix.QueryRadius(center, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestQueryBoundingBox_Degenerate(t *testing.T) {
	ix := seeded(t)
	require.NoError(t, ix.Insert("exact", center))
	require.NoError(t, ix.Insert("near", domain.GeoPoint{Lat: center.Lat, Lon: center.Lon + 1e-7}))

	ids, err := ix.QueryBoundingBox(center, center)
	require.NoError(t, err)
	assert.Equal(t, []string{"exact"}, ids)
}

func TestQueryBoundingBox_InclusiveAndMalformed(t *testing.T) {
	ix := seeded(t)
	ne := northOf(center, 3.2)

	ids, err := ix.QueryBoundingBox(center, ne)
	require.NoError(t, err)
	assert.Equal(t, []string{"d0.5", "d3.2"}, ids)

	_, err = ix.QueryBoundingBox(ne, center)
	require.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestIndex_UpdateAndRemove(t *testing.T) {
	ix := seeded(t)

	require.NoError(t, ix.Update("d7.0", northOf(center, 1)))
	ids, err := ix.QueryRadius(center, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d0.5", "d7.0"}, ids)

	require.NoError(t, ix.Remove("d0.5"))
	ids, err = ix.QueryRadius(center, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d7.0"}, ids)
	assert.Equal(t, 3, ix.Len())

	require.ErrorIs(t, ix.Remove("missing"), domain.ErrNotFound)
	require.ErrorIs(t, ix.Update("missing", center), domain.ErrNotFound)
	require.Error(t, ix.Insert("d3.2", center))
}

func TestIndex_StoresCopies(t *testing.T) {
	ix := spatial.NewIndex()
	pts := []domain.GeoPoint{center, northOf(center, 1)}
	path, err := domain.NewGeoPath(pts)
	require.NoError(t, err)
	require.NoError(t, ix.Insert("r", path))

	pts[0].Lat = 0

	ids, err := ix.QueryRadius(center, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, ids)
}

func TestIndex_ConcurrentReadersAndWriters(t *testing.T) {
	ix := seeded(t)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_ = ix.Insert(id, northOf(center, float64(i%10)))
				if i%3 == 0 {
					_ = ix.Remove(id)
				}
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := ix.QueryRadius(center, 5); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	ids, err := ix.QueryRadius(center, 0.6)
	require.NoError(t, err)
	assert.Contains(t, ids, "d0.5")
}

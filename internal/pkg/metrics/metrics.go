package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manza",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manza",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Discovery metrics
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Spot searches by kind (radius, bbox, list) and outcome",
	}, []string{"kind", "outcome"})

	SearchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "manza",
		Subsystem: "search",
		Name:      "results",
		Help:      "Number of spots returned per search",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"kind"})

	IndexedGeometries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "spatial",
		Name:      "indexed_geometries",
		Help:      "Geometries held by the in-memory R-tree",
	}, []string{"entity"})

	ReviewDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "spots",
		Name:      "review_decisions_total",
		Help:      "Spot review decisions by resulting status",
	}, []string{"status"})

	FavoriteChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "favorites",
		Name:      "changes_total",
		Help:      "Favorite relation changes by kind and outcome",
	}, []string{"kind", "outcome"})

	RouteDistanceKm = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "manza",
		Subsystem: "routes",
		Name:      "distance_km",
		Help:      "Computed route distances",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 50, 100},
	})

	AccountsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "sweep",
		Name:      "accounts_deleted_total",
		Help:      "Stale unverified accounts removed by the sweep",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manza",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manza",
		Subsystem: "db",
		Name:      "pool_empty_acquires",
		Help:      "Cumulative acquires that had to wait for a new connection",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges. It takes
// an interface so this package does not import pgxpool.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
		EmptyAcquireCount() int64
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
		DBPoolEmptyAcquires.Set(float64(s.EmptyAcquireCount()))
	}
}

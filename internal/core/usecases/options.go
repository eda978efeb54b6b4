package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
	"github.com/manzaspots/manza/internal/pkg/logging"
)

// DefaultRadiusKm is used when a radius search names no radius.
const DefaultRadiusKm = 5.0

// Option configures a service.
type Option func(*settings)

type settings struct {
	now             func() time.Time
	newID           func() string
	events          ports.EventPublisher
	defaultRadiusKm float64
	maxRadiusKm     float64
	cacheTTL        int
}

func newSettings(opts []Option) settings {
	s := settings{
		now:             time.Now,
		newID:           uuid.NewString,
		defaultRadiusKm: DefaultRadiusKm,
		cacheTTL:        30,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator overrides how new record IDs are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

// WithEvents publishes change events after successful writes.
func WithEvents(p ports.EventPublisher) Option {
	return func(s *settings) { s.events = p }
}

// WithRadiusLimits sets the default radius and the largest radius a
// search may ask for. A max of 0 means unbounded.
func WithRadiusLimits(defaultKm, maxKm float64) Option {
	return func(s *settings) {
		if defaultKm > 0 {
			s.defaultRadiusKm = defaultKm
		}
		s.maxRadiusKm = maxKm
	}
}

// WithCacheTTL sets how long public search results are cached, in seconds.
// Zero disables search caching.
func WithCacheTTL(seconds int) Option {
	return func(s *settings) { s.cacheTTL = seconds }
}

func (s settings) clock() time.Time {
	return s.now().UTC()
}

// publish is best effort: a failed publish is logged and never fails
// the write that triggered it.
func (s settings) publish(ctx context.Context, ev domain.ChangeEvent) {
	if s.events == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.clock()
	}
	if err := s.events.PublishChange(ctx, ev); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "publish change event failed",
			"type", ev.Type, "id", ev.ID, "error", err)
	}
}

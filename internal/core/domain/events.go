package domain

import "time"

// EventType names a change published to the event bus.
type EventType string

const (
	EventSpotCreated  EventType = "spot.created"
	EventSpotUpdated  EventType = "spot.updated"
	EventSpotApproved EventType = "spot.approved"
	EventSpotRejected EventType = "spot.rejected"
	EventSpotDeleted  EventType = "spot.deleted"

	EventRouteCreated EventType = "route.created"
	EventRouteUpdated EventType = "route.updated"
	EventRouteDeleted EventType = "route.deleted"
)

// ChangeEvent describes a mutation of a spot or route.
type ChangeEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Location  *GeoPoint `json:"location,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Public reports whether the event may be relayed to anonymous clients.
func (e ChangeEvent) Public() bool {
	switch e.Type {
	case EventSpotApproved, EventRouteCreated, EventRouteUpdated, EventRouteDeleted:
		return true
	case EventSpotUpdated, EventSpotDeleted:
		return e.Status == string(StatusApproved)
	}
	return false
}

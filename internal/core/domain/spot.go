package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ReviewStatus is the moderation state of a spot.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "PENDING"
	StatusApproved ReviewStatus = "APPROVED"
	StatusRejected ReviewStatus = "REJECTED"
)

// Valid reports whether s is a known review status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseReviewStatus accepts a status key in any case.
func ParseReviewStatus(v string) (ReviewStatus, error) {
	s := ReviewStatus(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, v)
	}
	return s, nil
}

// MaxSpotNameLength bounds spot names.
const MaxSpotNameLength = 50

// Spot is a user-submitted point of interest subject to review.
type Spot struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	ThumbnailPath string       `json:"thumbnail_path,omitempty"`
	Location      GeoPoint     `json:"location"`
	Status        ReviewStatus `json:"status"`
	RejectReason  string       `json:"reject_reason,omitempty"`
	ReviewedBy    string       `json:"reviewed_by,omitempty"`
	Lifecycle
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpotWithDistance is a radius search hit.
type SpotWithDistance struct {
	Spot
	DistanceKm float64 `json:"distance_km"`
}

// ValidateSpotName checks a spot name is present and short enough.
func ValidateSpotName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxSpotNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrValidation, MaxSpotNameLength)
	}
	return nil
}

// NewSpot builds a spot in its initial PENDING, inactive state.
func NewSpot(id, ownerID, name, description string, loc GeoPoint, now time.Time) (*Spot, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	if err := ValidateSpotName(name); err != nil {
		return nil, err
	}
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return &Spot{
		ID:          id,
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Description: description,
		Location:    loc,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Approve publishes the spot. Any prior state may be approved.
func (s *Spot) Approve(reviewer Caller, now time.Time) error {
	if !reviewer.Privileged {
		return fmt.Errorf("%w: only staff may approve spots", ErrPermissionDenied)
	}
	s.Status = StatusApproved
	s.RejectReason = ""
	s.ReviewedBy = reviewer.UserID
	s.MarkReviewed(true, now)
	s.UpdatedAt = now
	return nil
}

// Reject hides the spot and stores the reviewer's reason.
func (s *Spot) Reject(reviewer Caller, reason string, now time.Time) error {
	if !reviewer.Privileged {
		return fmt.Errorf("%w: only staff may reject spots", ErrPermissionDenied)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: reject reason is required", ErrValidation)
	}
	s.Status = StatusRejected
	s.RejectReason = reason
	s.ReviewedBy = reviewer.UserID
	s.MarkReviewed(false, now)
	s.UpdatedAt = now
	return nil
}

// CanEdit reports whether c may modify the spot.
func (s *Spot) CanEdit(c Caller) bool {
	return c.Privileged || c.Owns(s.OwnerID)
}

// VisibleToPublic reports whether unprivileged callers may see the spot.
func (s *Spot) VisibleToPublic() bool {
	return !s.Deleted() && s.Active && s.Status == StatusApproved
}

// SpotFilter holds the non-spatial predicates of a spot query. All set
// fields are ANDed. Soft-deleted spots never match.
type SpotFilter struct {
	NameContains string
	Status       ReviewStatus
	Active       *bool
	OwnerID      string
}

// Matches applies the filter to one spot.
func (f SpotFilter) Matches(s *Spot) bool {
	if s.Deleted() {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Active != nil && s.Active != *f.Active {
		return false
	}
	if f.OwnerID != "" && s.OwnerID != f.OwnerID {
		return false
	}
	return true
}

// ForCaller applies the visibility rule: unprivileged callers only ever
// see approved, active spots whatever they asked for.
func (f SpotFilter) ForCaller(c Caller) SpotFilter {
	if c.Privileged {
		return f
	}
	active := true
	f.Status = StatusApproved
	f.Active = &active
	return f
}

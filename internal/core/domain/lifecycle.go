package domain

import "time"

// Lifecycle is the shared active/review/soft-delete state carried by
// spots and routes.
type Lifecycle struct {
	Active     bool       `json:"is_active"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the record has been soft-deleted.
func (l Lifecycle) Deleted() bool { return l.DeletedAt != nil }

// SoftDelete deactivates the record and stamps the deletion time.
func (l *Lifecycle) SoftDelete(now time.Time) {
	l.Active = false
	l.DeletedAt = &now
}

// MarkReviewed records the review time and resulting active flag.
func (l *Lifecycle) MarkReviewed(active bool, now time.Time) {
	l.Active = active
	l.ReviewedAt = &now
}

package domain

import (
	"fmt"
	"time"
)

// FavoriteKind discriminates what a favorite points at.
type FavoriteKind string

const (
	FavoriteSpot  FavoriteKind = "spot"
	FavoriteRoute FavoriteKind = "route"
)

// ParseFavoriteKind validates a kind string.
func ParseFavoriteKind(v string) (FavoriteKind, error) {
	switch FavoriteKind(v) {
	case FavoriteSpot, FavoriteRoute:
		return FavoriteKind(v), nil
	}
	return "", fmt.Errorf("%w: unknown favorite kind %q", ErrValidation, v)
}

// Favorite is the single relation row for a (kind, user, target) triple.
// Removing a favorite deactivates the row instead of deleting it.
type Favorite struct {
	Kind      FavoriteKind `json:"kind"`
	UserID    string       `json:"user_id"`
	TargetID  string       `json:"target_id"`
	Active    bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}

// FavoriteKey identifies a favorite relation.
type FavoriteKey struct {
	Kind     FavoriteKind
	UserID   string
	TargetID string
}

func (k FavoriteKey) String() string {
	return string(k.Kind) + ":" + k.UserID + ":" + k.TargetID
}

// FavoriteOutcome reports what an add did to the relation.
type FavoriteOutcome string

const (
	FavoriteAdded            FavoriteOutcome = "added"
	FavoriteReactivated      FavoriteOutcome = "reactivated"
	FavoriteAlreadyFavorited FavoriteOutcome = "already_favorited"
)

// Created reports whether the outcome changed the relation state.
func (o FavoriteOutcome) Created() bool {
	return o == FavoriteAdded || o == FavoriteReactivated
}

package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the core. Callers match them with errors.Is;
// the wrapped message carries the detail needed to fix the request.
var (
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	// ErrDuplicate is returned by strict favorite adds on an active relation.
	ErrDuplicate = fmt.Errorf("%w: already favorited", ErrValidation)
	// ErrUnauthenticated is returned when an operation requires a known user.
	ErrUnauthenticated = fmt.Errorf("%w: authentication required", ErrPermissionDenied)
)

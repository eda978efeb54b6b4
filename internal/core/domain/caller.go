package domain

// Caller identifies who is invoking an operation. The identity is
// resolved outside the core; an empty UserID is an anonymous caller.
type Caller struct {
	UserID     string
	Privileged bool
}

// Anonymous is the caller used when no credentials were presented.
var Anonymous = Caller{}

// Authenticated reports whether the caller carries a user identity.
func (c Caller) Authenticated() bool { return c.UserID != "" }

// Owns reports whether the caller created the record owned by ownerID.
func (c Caller) Owns(ownerID string) bool {
	return c.Authenticated() && c.UserID == ownerID
}

// Role is the view a caller gets of a record.
type Role string

const (
	RolePublic Role = "public"
	RoleOwner  Role = "owner"
	RoleStaff  Role = "staff"
)

// RoleFor resolves the caller's role against a record owner.
func RoleFor(c Caller, ownerID string) Role {
	switch {
	case c.Privileged:
		return RoleStaff
	case c.Owns(ownerID):
		return RoleOwner
	default:
		return RolePublic
	}
}

package models

import "fmt"

// Role is the closed set of roles the marketplace issues.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a stored or remote role string against the closed
// enumeration. Unknown values are a validation error, never a silent
// default.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Identity describes the authenticated principal.
type Identity struct {
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// SessionState is the reconciled view of the two independently persisted
// session keys. Identity and Credential are both present or both absent;
// any other combination is corruption and is repaired on load.
type SessionState struct {
	Identity   *Identity
	Credential string
	Ready      bool
}

// Authenticated reports whether the state carries a usable identity.
func (s SessionState) Authenticated() bool {
	return s.Identity != nil && s.Credential != ""
}

// Equal compares the fields the value-equality gate cares about: role and
// credential. Ready is a local lifecycle flag and does not participate.
func (s SessionState) Equal(other SessionState) bool {
	if (s.Identity == nil) != (other.Identity == nil) {
		return false
	}
	if s.Identity != nil && s.Identity.Role != other.Identity.Role {
		return false
	}
	return s.Credential == other.Credential
}

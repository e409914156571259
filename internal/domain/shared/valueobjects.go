package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// PersonID is the opaque identifier of a student or teacher, owned by the
// external directory.
type PersonID string

// String returns the string representation.
func (p PersonID) String() string {
	return string(p)
}

// IsEmpty checks if the ID is empty.
func (p PersonID) IsEmpty() bool {
	return strings.TrimSpace(string(p)) == ""
}

// NewPersonID creates a PersonID, rejecting blank input.
func NewPersonID(id string) (PersonID, error) {
	pid := PersonID(strings.TrimSpace(id))
	if pid.IsEmpty() {
		return "", NewDomainError("shared", "NewPersonID", ErrInvalidID, "person ID is required")
	}
	return pid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Role Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Role distinguishes the two kinds of people the ledger tracks.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

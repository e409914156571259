// Package directory is the read-only view of the people the ledger tracks.
package directory

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// Person is a student or a teacher as known to the external directory.
type Person struct {
	ID           shared.PersonID
	Role         shared.Role
	Name         string
	Login        string
	PasswordHash string
	Timezone     string
}

// Location resolves the person's IANA timezone, or fallback when unset or unknown.
func (p *Person) Location(fallback *time.Location) *time.Location {
	return timeutil.LoadLocation(p.Timezone, fallback)
}

// Directory looks people up. Missing people yield shared.ErrPersonNotFound.
type Directory interface {
	Find(ctx context.Context, id shared.PersonID, role shared.Role) (*Person, error)
	FindTeacherByLogin(ctx context.Context, login string) (*Person, error)
}

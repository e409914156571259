package postgres

import (
	"context"
	"fmt"

	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// PeopleRepository implements directory.Directory for PostgreSQL.
type PeopleRepository struct {
	conn *Connection
}

// NewPeopleRepository creates a new PeopleRepository.
func NewPeopleRepository(conn *Connection) *PeopleRepository {
	return &PeopleRepository{conn: conn}
}

var _ directory.Directory = (*PeopleRepository)(nil)

const personColumns = `id, role, name, COALESCE(login, ''), COALESCE(password_hash, ''), timezone`

// Find implements directory.Directory.
func (r *PeopleRepository) Find(ctx context.Context, id shared.PersonID, role shared.Role) (*directory.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1 AND role = $2`
	return r.findOne(ctx, query, string(id), string(role))
}

// FindTeacherByLogin implements directory.Directory. Logins match case-insensitively.
func (r *PeopleRepository) FindTeacherByLogin(ctx context.Context, login string) (*directory.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE role = 'teacher' AND lower(login) = lower($1)`
	return r.findOne(ctx, query, login)
}

func (r *PeopleRepository) findOne(ctx context.Context, query string, args ...interface{}) (*directory.Person, error) {
	p, err := scanPerson(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to find person: %w", err)
	}
	return p, nil
}

func scanPerson(row pgx.Row) (*directory.Person, error) {
	var id, role string
	p := &directory.Person{}
	if err := row.Scan(&id, &role, &p.Name, &p.Login, &p.PasswordHash, &p.Timezone); err != nil {
		return nil, err
	}
	p.ID = shared.PersonID(id)
	p.Role = shared.Role(role)
	return p, nil
}

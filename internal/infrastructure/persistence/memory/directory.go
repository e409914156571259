package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

// People is an in-memory person directory.
type People struct {
	mu     sync.RWMutex
	people map[string]*directory.Person
}

// NewPeople creates a directory holding people.
func NewPeople(people ...*directory.Person) *People {
	p := &People{people: make(map[string]*directory.Person)}
	for _, person := range people {
		p.Put(person)
	}
	return p
}

var _ directory.Directory = (*People)(nil)

func personKey(id shared.PersonID, role shared.Role) string {
	return role.String() + ":" + id.String()
}

// Put adds or replaces a person.
func (p *People) Put(person *directory.Person) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := *person
	p.people[personKey(person.ID, person.Role)] = &c
}

// Find implements directory.Directory.
func (p *People) Find(_ context.Context, id shared.PersonID, role shared.Role) (*directory.Person, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	person, ok := p.people[personKey(id, role)]
	if !ok {
		return nil, shared.ErrPersonNotFound
	}
	c := *person
	return &c, nil
}

// FindTeacherByLogin implements directory.Directory.
func (p *People) FindTeacherByLogin(_ context.Context, login string) (*directory.Person, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, person := range p.people {
		if person.Role == shared.RoleTeacher && strings.EqualFold(person.Login, login) {
			c := *person
			return &c, nil
		}
	}
	return nil, shared.ErrPersonNotFound
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

// Schedule is an in-memory schedule directory.
type Schedule struct {
	mu    sync.RWMutex
	slots map[schedule.SlotID]*schedule.Slot
}

// NewSchedule creates a directory holding slots.
func NewSchedule(slots ...*schedule.Slot) *Schedule {
	s := &Schedule{slots: make(map[schedule.SlotID]*schedule.Slot)}
	for _, slot := range slots {
		s.Put(slot)
	}
	return s
}

var _ schedule.Directory = (*Schedule)(nil)

// Put adds or replaces a slot.
func (s *Schedule) Put(slot *schedule.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *slot
	s.slots[slot.ID] = &c
}

// FindByID implements schedule.Directory.
func (s *Schedule) FindByID(_ context.Context, id schedule.SlotID) (*schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, shared.ErrScheduleNotFound
	}
	c := *slot
	return &c, nil
}

// FindForPerson implements schedule.Directory.
func (s *Schedule) FindForPerson(_ context.Context, personID shared.PersonID, role shared.Role, day time.Weekday) ([]*schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*schedule.Slot
	for _, slot := range s.slots {
		if slot.IsOn(day) && slot.Involves(personID, role) {
			c := *slot
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindForTeacher implements schedule.Directory.
func (s *Schedule) FindForTeacher(ctx context.Context, teacherID shared.PersonID, day time.Weekday) ([]*schedule.Slot, error) {
	return s.FindForPerson(ctx, teacherID, shared.RoleTeacher, day)
}

// UpdateStatus implements schedule.Directory.
func (s *Schedule) UpdateStatus(_ context.Context, id schedule.SlotID, status schedule.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return shared.ErrScheduleNotFound
	}
	slot.Status = status
	return nil
}

package attendance

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

// MutateFunc receives the existing canonical record for a key (nil when there
// is none) and returns the record to persist and whether it changed. A new
// record returned for a nil input is inserted.
type MutateFunc func(existing *Record) (*Record, bool, error)

// Filter narrows List. Zero values mean "any".
type Filter struct {
	PersonID shared.PersonID
	Role     shared.Role
	Date     *time.Time
	Status   Status
}

// DayCounts is a best-effort snapshot of a day's ledger.
type DayCounts struct {
	Date       time.Time
	ByStatus   map[Status]int
	Total      int
	CheckedIn  int
	CheckedOut int
}

// Ledger defines the interface for attendance persistence.
// This interface is implemented by the infrastructure layer.
type Ledger interface {
	// Upsert atomically applies fn to the canonical record of key: the
	// earliest record for the key when one exists, otherwise nothing. Two
	// concurrent calls for the same key are serialized, so at most one of
	// them can insert.
	Upsert(ctx context.Context, key Key, fn MutateFunc) (*Record, error)

	// FindByKey returns the canonical record for key, or shared.ErrAttendanceNotFound.
	FindByKey(ctx context.Context, key Key) (*Record, error)

	// Update persists changes to an existing record.
	Update(ctx context.Context, rec *Record) error

	// List returns matching records in insertion order.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids ...string) (int, error)

	// ListOpen returns records of role on date that are checked in and not out.
	ListOpen(ctx context.Context, role shared.Role, date time.Time) ([]*Record, error)

	// CountDay aggregates a day's records.
	CountDay(ctx context.Context, date time.Time) (*DayCounts, error)
}

// NewDayCounts returns zeroed counts with every status present.
func NewDayCounts(date time.Time) *DayCounts {
	c := &DayCounts{Date: date, ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, s := range AllStatuses {
		c.ByStatus[s] = 0
	}
	return c
}

// Add folds one record into the counts.
func (c *DayCounts) Add(r *Record) {
	c.Total++
	c.ByStatus[r.Status]++
	if r.CheckedIn() {
		c.CheckedIn++
	}
	if r.CheckedOut() {
		c.CheckedOut++
	}
}

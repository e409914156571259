// Package memory provides in-process implementations of the ledger, the
// schedule directory and the person directory. They back the API in
// development mode and the application tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

// Ledger is a mutex-guarded attendance ledger.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*attendance.Record
	seq     int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]*attendance.Record)}
}

// Compile-time check.
var _ attendance.Ledger = (*Ledger)(nil)

// Seed inserts records as-is, bypassing the one-per-day rule. Used to
// reproduce legacy duplicates.
func (l *Ledger) Seed(records ...*attendance.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.insertLocked(r.Clone())
	}
}

func (l *Ledger) insertLocked(r *attendance.Record) {
	l.seq++
	r.Seq = l.seq
	l.records[r.ID] = r
}

// Upsert implements attendance.Ledger.
func (l *Ledger) Upsert(ctx context.Context, key attendance.Key, fn attendance.MutateFunc) (*attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.canonicalLocked(key)
	var existing *attendance.Record
	if current != nil {
		existing = current.Clone()
	}

	rec, changed, err := fn(existing)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	switch {
	case current == nil:
		stored := rec.Clone()
		l.insertLocked(stored)
		rec.Seq = stored.Seq
	case changed:
		rec.Seq = current.Seq
		l.records[rec.ID] = rec.Clone()
	}
	return rec, nil
}

// canonicalLocked returns the earliest-inserted record for key.
func (l *Ledger) canonicalLocked(key attendance.Key) *attendance.Record {
	var found *attendance.Record
	for _, r := range l.records {
		if r.PersonID != key.PersonID || r.Role != key.Role || !r.Date.Equal(key.Date) {
			continue
		}
		if found == nil || r.Seq < found.Seq {
			found = r
		}
	}
	return found
}

// FindByKey implements attendance.Ledger.
func (l *Ledger) FindByKey(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.canonicalLocked(key)
	if r == nil {
		return nil, shared.ErrAttendanceNotFound
	}
	return r.Clone(), nil
}

// Update implements attendance.Ledger.
func (l *Ledger) Update(ctx context.Context, rec *attendance.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.records[rec.ID]
	if !ok {
		return shared.ErrAttendanceNotFound
	}
	stored := rec.Clone()
	stored.Seq = current.Seq
	l.records[rec.ID] = stored
	return nil
}

// List implements attendance.Ledger.
func (l *Ledger) List(ctx context.Context, filter attendance.Filter) ([]*attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*attendance.Record, 0, len(l.records))
	for _, r := range l.records {
		if matches(r, filter) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func matches(r *attendance.Record, f attendance.Filter) bool {
	if f.PersonID != "" && r.PersonID != f.PersonID {
		return false
	}
	if f.Role != "" && r.Role != f.Role {
		return false
	}
	if f.Date != nil && !r.Date.Equal(*f.Date) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Delete implements attendance.Ledger.
func (l *Ledger) Delete(ctx context.Context, ids ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := l.records[id]; ok {
			delete(l.records, id)
			n++
		}
	}
	return n, nil
}

// ListOpen implements attendance.Ledger.
func (l *Ledger) ListOpen(ctx context.Context, role shared.Role, date time.Time) ([]*attendance.Record, error) {
	all, err := l.List(ctx, attendance.Filter{Role: role, Date: &date})
	if err != nil {
		return nil, err
	}
	open := all[:0]
	for _, r := range all {
		if r.CheckedIn() && !r.CheckedOut() {
			open = append(open, r)
		}
	}
	return open, nil
}

// CountDay implements attendance.Ledger.
func (l *Ledger) CountDay(ctx context.Context, date time.Time) (*attendance.DayCounts, error) {
	all, err := l.List(ctx, attendance.Filter{Date: &date})
	if err != nil {
		return nil, err
	}
	counts := attendance.NewDayCounts(date)
	for _, r := range all {
		counts.Add(r)
	}
	return counts, nil
}

// Len returns the number of stored records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

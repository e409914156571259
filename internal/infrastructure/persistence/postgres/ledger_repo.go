package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE LEDGER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements attendance.Ledger for PostgreSQL.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

var _ attendance.Ledger = (*LedgerRepository)(nil)

const recordColumns = `
	seq, id, person_id, role, date,
	schedule_ref, scheduled_minute, scheduled_day, duration_minutes,
	status, arrival, late_by_seconds,
	check_in_time, check_out_time, check_in_at, check_out_at,
	created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// Upsert implements attendance.Ledger. Callers for the same key queue on a
// transaction-scoped advisory lock, then fn sees the earliest record.
func (r *LedgerRepository) Upsert(ctx context.Context, key attendance.Key, fn attendance.MutateFunc) (*attendance.Record, error) {
	var out *attendance.Record

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
			return fmt.Errorf("failed to lock attendance key: %w", err)
		}

		existing, err := r.findByKey(ctx, tx, key)
		if err != nil && !errors.Is(err, shared.ErrAttendanceNotFound) {
			return err
		}

		rec, changed, err := fn(existing)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}

		switch {
		case existing == nil:
			seq, err := r.insert(ctx, tx, rec)
			if err != nil {
				return err
			}
			rec.Seq = seq
		case changed:
			rec.Seq = existing.Seq
			if err := r.update(ctx, tx, rec); err != nil {
				return err
			}
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *LedgerRepository) insert(ctx context.Context, q Querier, rec *attendance.Record) (int64, error) {
	query := `
		INSERT INTO attendance_records (
			id, person_id, role, date,
			schedule_ref, scheduled_minute, scheduled_day, duration_minutes,
			status, arrival, late_by_seconds,
			check_in_time, check_out_time, check_in_at, check_out_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING seq
	`

	row := toRow(rec)
	var seq int64
	err := q.QueryRow(ctx, query,
		row.ID, row.PersonID, row.Role, row.Date,
		row.ScheduleRef, row.ScheduledMinute, row.ScheduledDay, row.DurationMinutes,
		row.Status, row.Arrival, row.LateBySeconds,
		row.CheckInTime, row.CheckOutTime, row.CheckInAt, row.CheckOutAt,
		row.CreatedAt, row.UpdatedAt,
	).Scan(&seq)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, shared.WrapError("attendance", "Insert", shared.ErrAlreadyExists, "record id already exists", err)
		}
		return 0, fmt.Errorf("failed to insert attendance record: %w", err)
	}

	return seq, nil
}

func (r *LedgerRepository) update(ctx context.Context, q Querier, rec *attendance.Record) error {
	query := `
		UPDATE attendance_records SET
			schedule_ref = $1,
			scheduled_minute = $2,
			scheduled_day = $3,
			duration_minutes = $4,
			status = $5,
			arrival = $6,
			late_by_seconds = $7,
			check_in_time = $8,
			check_out_time = $9,
			check_in_at = $10,
			check_out_at = $11,
			updated_at = $12
		WHERE id = $13
	`

	row := toRow(rec)
	tag, err := q.Exec(ctx, query,
		row.ScheduleRef, row.ScheduledMinute, row.ScheduledDay, row.DurationMinutes,
		row.Status, row.Arrival, row.LateBySeconds,
		row.CheckInTime, row.CheckOutTime, row.CheckInAt, row.CheckOutAt,
		row.UpdatedAt, row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAttendanceNotFound
	}

	return nil
}

// Update implements attendance.Ledger.
func (r *LedgerRepository) Update(ctx context.Context, rec *attendance.Record) error {
	return r.update(ctx, r.conn, rec)
}

// Delete implements attendance.Ledger.
func (r *LedgerRepository) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.conn.Exec(ctx, `DELETE FROM attendance_records WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete attendance records: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// FindByKey implements attendance.Ledger.
func (r *LedgerRepository) FindByKey(ctx context.Context, key attendance.Key) (*attendance.Record, error) {
	return r.findByKey(ctx, r.conn, key)
}

func (r *LedgerRepository) findByKey(ctx context.Context, q Querier, key attendance.Key) (*attendance.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE role = $1 AND person_id = $2 AND date = $3
		ORDER BY seq
		LIMIT 1
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, string(key.Role), string(key.PersonID), key.Date))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to find attendance record: %w", err)
	}

	return rec, nil
}

// List implements attendance.Ledger.
func (r *LedgerRepository) List(ctx context.Context, filter attendance.Filter) ([]*attendance.Record, error) {
	query, args := buildListQuery(filter)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}

	return scanRecords(rows)
}

// ListOpen implements attendance.Ledger.
func (r *LedgerRepository) ListOpen(ctx context.Context, role shared.Role, date time.Time) ([]*attendance.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE role = $1 AND date = $2
		  AND check_in_time IS NOT NULL AND check_out_time IS NULL
		ORDER BY seq
	`

	rows, err := r.conn.Query(ctx, query, string(role), date)
	if err != nil {
		return nil, fmt.Errorf("failed to list open attendance records: %w", err)
	}

	return scanRecords(rows)
}

// CountDay implements attendance.Ledger.
func (r *LedgerRepository) CountDay(ctx context.Context, date time.Time) (*attendance.DayCounts, error) {
	query := `
		SELECT status, COUNT(*), COUNT(check_in_time), COUNT(check_out_time)
		FROM attendance_records
		WHERE date = $1
		GROUP BY status
	`

	rows, err := r.conn.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance: %w", err)
	}
	defer rows.Close()

	counts := attendance.NewDayCounts(date)
	for rows.Next() {
		var status string
		var total, checkedIn, checkedOut int
		if err := rows.Scan(&status, &total, &checkedIn, &checkedOut); err != nil {
			return nil, fmt.Errorf("failed to scan attendance counts: %w", err)
		}
		counts.ByStatus[attendance.Status(status)] += total
		counts.Total += total
		counts.CheckedIn += checkedIn
		counts.CheckedOut += checkedOut
	}

	return counts, rows.Err()
}

// buildListQuery renders a filtered, seq-ordered SELECT.
func buildListQuery(f attendance.Filter) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.PersonID != "" {
		add("person_id = $%d", string(f.PersonID))
	}
	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Date != nil {
		add("date = $%d", *f.Date)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	return query, args
}

// ══════════════════════════════════════════════════════════════════════════════
// ROW MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// recordRow is the column-level shape of an attendance record.
type recordRow struct {
	Seq             int64
	ID              string
	PersonID        string
	Role            string
	Date            time.Time
	ScheduleRef     *string
	ScheduledMinute *int16
	ScheduledDay    *int16
	DurationMinutes int
	Status          string
	Arrival         string
	LateBySeconds   int
	CheckInTime     *string
	CheckOutTime    *string
	CheckInAt       *time.Time
	CheckOutAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func toRow(rec *attendance.Record) recordRow {
	row := recordRow{
		Seq:             rec.Seq,
		ID:              rec.ID,
		PersonID:        string(rec.PersonID),
		Role:            string(rec.Role),
		Date:            rec.Date,
		ScheduleRef:     rec.ScheduleRef,
		DurationMinutes: int(rec.Duration / time.Minute),
		Status:          string(rec.Status),
		Arrival:         string(rec.Arrival),
		LateBySeconds:   int(rec.LateBy / time.Second),
		CheckInTime:     rec.CheckInTime,
		CheckOutTime:    rec.CheckOutTime,
		CheckInAt:       rec.CheckInAt,
		CheckOutAt:      rec.CheckOutAt,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	if rec.ScheduledTime != nil {
		m := int16(*rec.ScheduledTime)
		row.ScheduledMinute = &m
	}
	if rec.ScheduledDay != nil {
		d := int16(*rec.ScheduledDay)
		row.ScheduledDay = &d
	}
	return row
}

func (row recordRow) toRecord() *attendance.Record {
	rec := &attendance.Record{
		Seq:          row.Seq,
		ID:           row.ID,
		PersonID:     shared.PersonID(row.PersonID),
		Role:         shared.Role(row.Role),
		Date:         time.Date(row.Date.Year(), row.Date.Month(), row.Date.Day(), 0, 0, 0, 0, time.UTC),
		ScheduleRef:  row.ScheduleRef,
		Duration:     time.Duration(row.DurationMinutes) * time.Minute,
		Status:       attendance.Status(row.Status),
		Arrival:      timepolicy.Arrival(row.Arrival),
		LateBy:       time.Duration(row.LateBySeconds) * time.Second,
		CheckInTime:  row.CheckInTime,
		CheckOutTime: row.CheckOutTime,
		CheckInAt:    utcPtr(row.CheckInAt),
		CheckOutAt:   utcPtr(row.CheckOutAt),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.ScheduledMinute != nil {
		c := timepolicy.Clock(*row.ScheduledMinute)
		rec.ScheduledTime = &c
	}
	if row.ScheduledDay != nil {
		d := time.Weekday(*row.ScheduledDay)
		rec.ScheduledDay = &d
	}
	return rec
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func scanRecord(row pgx.Row) (*attendance.Record, error) {
	var rr recordRow
	err := row.Scan(
		&rr.Seq, &rr.ID, &rr.PersonID, &rr.Role, &rr.Date,
		&rr.ScheduleRef, &rr.ScheduledMinute, &rr.ScheduledDay, &rr.DurationMinutes,
		&rr.Status, &rr.Arrival, &rr.LateBySeconds,
		&rr.CheckInTime, &rr.CheckOutTime, &rr.CheckInAt, &rr.CheckOutAt,
		&rr.CreatedAt, &rr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rr.toRecord(), nil
}

func scanRecords(rows pgx.Rows) ([]*attendance.Record, error) {
	defer rows.Close()

	var out []*attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"

	"github.com/jackc/pgx/v5"
)

// ScheduleRepository implements schedule.Directory for PostgreSQL.
type ScheduleRepository struct {
	conn *Connection
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(conn *Connection) *ScheduleRepository {
	return &ScheduleRepository{conn: conn}
}

var _ schedule.Directory = (*ScheduleRepository)(nil)

const slotColumns = `id, student_id, teacher_id, day_of_week, class_minute, duration_minutes, status`

// FindByID implements schedule.Directory.
func (r *ScheduleRepository) FindByID(ctx context.Context, id schedule.SlotID) (*schedule.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1`

	slot, err := scanSlot(r.conn.QueryRow(ctx, query, string(id)))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to find schedule slot: %w", err)
	}

	return slot, nil
}

// FindForPerson implements schedule.Directory.
func (r *ScheduleRepository) FindForPerson(ctx context.Context, personID shared.PersonID, role shared.Role, day time.Weekday) ([]*schedule.Slot, error) {
	column, err := slotPersonColumn(role)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + slotColumns + `
		FROM schedule_slots
		WHERE ` + column + ` = $1 AND day_of_week = $2
		ORDER BY class_minute, id
	`

	rows, err := r.conn.Query(ctx, query, string(personID), int16(day))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule slots: %w", err)
	}
	defer rows.Close()

	var out []*schedule.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule slot: %w", err)
		}
		out = append(out, slot)
	}

	return out, rows.Err()
}

// FindForTeacher implements schedule.Directory.
func (r *ScheduleRepository) FindForTeacher(ctx context.Context, teacherID shared.PersonID, day time.Weekday) ([]*schedule.Slot, error) {
	return r.FindForPerson(ctx, teacherID, shared.RoleTeacher, day)
}

// UpdateStatus implements schedule.Directory.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id schedule.SlotID, status schedule.Status) error {
	tag, err := r.conn.Exec(ctx, `UPDATE schedule_slots SET status = $1 WHERE id = $2`, string(status), string(id))
	if err != nil {
		return fmt.Errorf("failed to update schedule slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrScheduleNotFound
	}

	return nil
}

func slotPersonColumn(role shared.Role) (string, error) {
	switch role {
	case shared.RoleStudent:
		return "student_id", nil
	case shared.RoleTeacher:
		return "teacher_id", nil
	}
	return "", shared.ErrInvalidRole
}

func scanSlot(row pgx.Row) (*schedule.Slot, error) {
	var (
		id, studentID, teacherID, status string
		day, minute                      int16
		durationMinutes                  int
	)
	if err := row.Scan(&id, &studentID, &teacherID, &day, &minute, &durationMinutes, &status); err != nil {
		return nil, err
	}

	return &schedule.Slot{
		ID:        schedule.SlotID(id),
		StudentID: shared.PersonID(studentID),
		TeacherID: shared.PersonID(teacherID),
		DayOfWeek: time.Weekday(day),
		Time:      timepolicy.Clock(minute),
		Duration:  time.Duration(durationMinutes) * time.Minute,
		Status:    schedule.Status(status),
	}, nil
}

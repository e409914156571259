package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_people_and_schedule",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_attendance_records",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PEOPLE AND SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS people (
    id VARCHAR(64) NOT NULL,
    role VARCHAR(16) NOT NULL,
    name VARCHAR(200) NOT NULL,
    login VARCHAR(100),
    password_hash TEXT,
    timezone VARCHAR(64) NOT NULL DEFAULT '',

    PRIMARY KEY (id, role),
    CONSTRAINT valid_role CHECK (role IN ('student', 'teacher'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_people_teacher_login
    ON people (lower(login)) WHERE role = 'teacher' AND login IS NOT NULL;

CREATE TABLE IF NOT EXISTS schedule_slots (
    id VARCHAR(64) PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    teacher_id VARCHAR(64) NOT NULL,
    day_of_week SMALLINT NOT NULL,
    class_minute SMALLINT NOT NULL,
    duration_minutes INTEGER NOT NULL DEFAULT 60,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',

    CONSTRAINT valid_day CHECK (day_of_week BETWEEN 0 AND 6),
    CONSTRAINT valid_minute CHECK (class_minute BETWEEN 0 AND 1439),
    CONSTRAINT valid_slot_status CHECK (status IN ('scheduled', 'in_progress', 'completed', 'cancelled', 'rescheduled'))
);

CREATE INDEX IF NOT EXISTS idx_slots_student_day ON schedule_slots (student_id, day_of_week, class_minute);
CREATE INDEX IF NOT EXISTS idx_slots_teacher_day ON schedule_slots (teacher_id, day_of_week, class_minute);
`

const migration001Down = `
DROP TABLE IF EXISTS schedule_slots;
DROP TABLE IF EXISTS people;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ATTENDANCE RECORDS
// ══════════════════════════════════════════════════════════════════════════════

// No unique constraint on (person_id, role, date): legacy duplicates are
// tolerated and merged by the cleanup job. Writers serialize per key with an
// advisory lock instead.
const migration002Up = `
CREATE TABLE IF NOT EXISTS attendance_records (
    seq BIGSERIAL NOT NULL UNIQUE,
    id VARCHAR(64) PRIMARY KEY,
    person_id VARCHAR(64) NOT NULL,
    role VARCHAR(16) NOT NULL,
    date DATE NOT NULL,

    schedule_ref VARCHAR(64),
    scheduled_minute SMALLINT,
    scheduled_day SMALLINT,
    duration_minutes INTEGER NOT NULL DEFAULT 0,

    status VARCHAR(16) NOT NULL DEFAULT 'not_marked',
    arrival VARCHAR(16) NOT NULL DEFAULT '',
    late_by_seconds INTEGER NOT NULL DEFAULT 0,

    check_in_time VARCHAR(8),
    check_out_time VARCHAR(8),
    check_in_at TIMESTAMP WITH TIME ZONE,
    check_out_at TIMESTAMP WITH TIME ZONE,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_record_role CHECK (role IN ('student', 'teacher')),
    CONSTRAINT valid_record_status CHECK (status IN ('not_marked', 'present', 'late', 'absent', 'excused'))
);

CREATE INDEX IF NOT EXISTS idx_attendance_key ON attendance_records (role, person_id, date, seq);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance_records (date, status);
CREATE INDEX IF NOT EXISTS idx_attendance_open ON attendance_records (role, date)
    WHERE check_in_time IS NOT NULL AND check_out_time IS NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS attendance_records;
`

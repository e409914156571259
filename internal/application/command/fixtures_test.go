package command

import (
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// Monday 19 October 2026.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type stubIssuer struct{}

func (stubIssuer) Issue(subject, role string) (string, time.Time, error) {
	return "token-" + subject + "-" + role, monday(23, 0), nil
}

type fixture struct {
	clock     *timeutil.FixedClock
	ledger    *memory.Ledger
	schedules *memory.Schedule
	people    *memory.People
	events    *recordingPublisher
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("pa55"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		clock:  timeutil.NewFixedClock(monday(10, 4)),
		ledger: memory.NewLedger(),
		schedules: memory.NewSchedule(
			&schedule.Slot{ID: "slot-mon-10", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Monday,
				Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusScheduled},
			&schedule.Slot{ID: "slot-mon-15", StudentID: "stu-2", TeacherID: "tea-1", DayOfWeek: time.Monday,
				Time: timepolicy.MustClock(15, 0), Duration: 45 * time.Minute, Status: schedule.StatusScheduled},
			&schedule.Slot{ID: "slot-tue-10", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Tuesday,
				Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusScheduled},
		),
		people: memory.NewPeople(
			&directory.Person{ID: "stu-1", Role: shared.RoleStudent, Name: "Aru"},
			&directory.Person{ID: "stu-2", Role: shared.RoleStudent, Name: "Dana"},
			&directory.Person{ID: "stu-3", Role: shared.RoleStudent, Name: "Erlan", Timezone: "Asia/Tashkent"},
			&directory.Person{ID: "tea-1", Role: shared.RoleTeacher, Name: "Madina", Login: "madina", PasswordHash: string(hash)},
		),
		events: &recordingPublisher{},
	}

	ids := 0
	f.deps = Deps{
		Ledger:    f.ledger,
		Schedules: f.schedules,
		People:    f.people,
		Publisher: f.events,
		Clock:     f.clock,
		Policy:    timepolicy.Default(),
		Location:  time.UTC,
		NewID: func() string {
			ids++
			return fmt.Sprintf("rec-%d", ids)
		},
	}
	return f
}

package command

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER LOGIN COMMAND
// Authenticates a teacher and toggles today's attendance: the first login of
// the day checks in, the second checks out, later logins change nothing.
// ══════════════════════════════════════════════════════════════════════════════

// LoginAction is the attendance side effect of a login.
type LoginAction string

const (
	LoginCheckedIn  LoginAction = "checked_in"
	LoginCheckedOut LoginAction = "checked_out"
	LoginNoAction   LoginAction = "none"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject, role string) (token string, expiresAt time.Time, err error)
}

// TeacherLoginCommand contains the login credentials.
type TeacherLoginCommand struct {
	Login    string
	Password string
}

// Validate validates the command.
func (c TeacherLoginCommand) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Login) == "" {
		missing = append(missing, "login")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return missingFields("TeacherLogin", missing...)
	}
	return nil
}

// TeacherLoginResult contains the session token and the attendance outcome.
type TeacherLoginResult struct {
	TeacherID  shared.PersonID
	Name       string
	Token      string
	ExpiresAt  time.Time
	Action     LoginAction
	Attendance *attendance.Record
}

// TeacherLoginHandler handles TeacherLoginCommand.
type TeacherLoginHandler struct {
	engine
	tokens TokenIssuer
}

// NewTeacherLoginHandler creates a new TeacherLoginHandler.
func NewTeacherLoginHandler(deps Deps, tokens TokenIssuer) *TeacherLoginHandler {
	return &TeacherLoginHandler{engine: newEngine(deps), tokens: tokens}
}

// Handle executes the login. Unknown logins and wrong passwords yield the
// same shared.ErrInvalidCredentials.
func (h *TeacherLoginHandler) Handle(ctx context.Context, cmd TeacherLoginCommand) (*TeacherLoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	teacher, err := h.People.FindTeacherByLogin(ctx, strings.TrimSpace(cmd.Login))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(cmd.Password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}

	token, expiresAt, err := h.tokens.Issue(teacher.ID.String(), shared.RoleTeacher.String())
	if err != nil {
		return nil, err
	}

	loc := teacher.Location(h.Location)
	now := h.Clock.Now()
	slot, snapshot, err := h.resolveSlot(ctx, teacher.ID, shared.RoleTeacher, "", "", now, loc)
	if err != nil {
		return nil, err
	}

	key := attendance.NewKey(teacher.ID, shared.RoleTeacher, now, loc)
	action := LoginNoAction
	rec, err := h.Ledger.Upsert(ctx, key, func(existing *attendance.Record) (*attendance.Record, bool, error) {
		switch {
		case existing != nil && existing.Status.IsTerminal():
			action = LoginNoAction
			return existing, false, nil
		case existing == nil || !existing.CheckedIn():
			rec := h.newRecord(existing, key, now)
			rec.AttachSchedule(snapshot)
			changed, err := rec.CheckIn(now, loc, h.Policy)
			action = LoginCheckedIn
			return rec, changed || existing == nil, err
		case !existing.CheckedOut():
			action = LoginCheckedOut
			return existing, true, existing.CheckOut(now, loc)
		default:
			action = LoginNoAction
			return existing, false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	switch action {
	case LoginCheckedIn:
		h.startClass(ctx, slot, now)
		h.publishMarked(rec, false, now)
	case LoginCheckedOut:
		h.publish(shared.NewAttendanceCheckedOutEvent(rec.ID, rec.PersonID, rec.Role, *rec.CheckOutTime, false, now))
	}

	h.Logger.Info("teacher logged in",
		logger.PersonID(teacher.ID.String()),
		logger.String("action", string(action)),
	)
	return &TeacherLoginResult{
		TeacherID:  teacher.ID,
		Name:       teacher.Name,
		Token:      token,
		ExpiresAt:  expiresAt,
		Action:     action,
		Attendance: rec,
	}, nil
}

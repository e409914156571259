package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/internal/application/query"
	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// MarkRequest marks attendance. Without a status it is a check-in whose
// status follows from the class time; with one it is an explicit override.
type MarkRequest struct {
	PersonID    string `json:"person_id" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=student teacher"`
	Status      string `json:"status,omitempty"`
	ScheduleRef string `json:"schedule_ref,omitempty"`
	ClassTime   string `json:"class_time,omitempty"`
}

// MarkScheduledRequest marks attendance for one class.
type MarkScheduledRequest struct {
	ScheduleRef string `json:"schedule_ref" validate:"required"`
	PersonID    string `json:"person_id" validate:"required"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=student teacher"`
	Status      string `json:"status" validate:"required"`
}

// LoginRequest carries teacher credentials.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CleanupRequest narrows a duplicate cleanup. All fields are optional.
type CleanupRequest struct {
	PersonID string `json:"person_id,omitempty"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=student teacher"`
	Date     string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// SlotResponse is the JSON shape of a schedule slot.
type SlotResponse struct {
	ScheduleRef     string `json:"schedule_ref"`
	StudentID       string `json:"student_id"`
	TeacherID       string `json:"teacher_id"`
	Day             string `json:"day"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

func newSlotResponse(s *schedule.Slot) *SlotResponse {
	if s == nil {
		return nil
	}
	return &SlotResponse{
		ScheduleRef:     s.ID.String(),
		StudentID:       s.StudentID.String(),
		TeacherID:       s.TeacherID.String(),
		Day:             s.DayOfWeek.String(),
		Time:            s.Time.String(),
		DurationMinutes: int(s.Duration / time.Minute),
		Status:          string(s.Status),
	}
}

// MarkResponse is returned by both mark endpoints.
type MarkResponse struct {
	Attendance   *query.AttendanceDTO `json:"attendance"`
	Schedule     *SlotResponse        `json:"schedule,omitempty"`
	Created      bool                 `json:"created"`
	Changed      bool                 `json:"changed"`
	ClassStarted bool                 `json:"class_started"`
}

// CheckOutResponse carries both wall-clock times of the closed record.
type CheckOutResponse struct {
	CheckInTime  string               `json:"check_in_time"`
	CheckOutTime string               `json:"check_out_time"`
	Attendance   *query.AttendanceDTO `json:"attendance"`
}

// LoginResponse carries the session token and the attendance side effect.
type LoginResponse struct {
	Token      string               `json:"token"`
	ExpiresAt  time.Time            `json:"expires_at"`
	TeacherID  string               `json:"teacher_id"`
	Name       string               `json:"name"`
	Action     string               `json:"action"`
	Attendance *query.AttendanceDTO `json:"attendance,omitempty"`
}

// CleanupResponse reports a cleanup run.
type CleanupResponse struct {
	GroupsProcessed int   `json:"groups_processed"`
	GroupsMerged    int   `json:"groups_merged"`
	RecordsDeleted  int   `json:"records_deleted"`
	DurationMs      int64 `json:"duration_ms"`
}

// AutoCheckoutResponse reports a sweep.
type AutoCheckoutResponse struct {
	Count        int    `json:"count"`
	CheckoutTime string `json:"checkout_time"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "Attendance Hub API",
		"version": "v1",
		"uptime":  s.Uptime().Round(time.Second).String(),
		"endpoints": map[string]string{
			"health": "/health",
			"mark":   "/api/v1/attendance/mark",
			"stats":  "/api/v1/attendance/stats/today",
			"login":  "/api/v1/auth/teacher/login",
		},
	})
}

// handleHealth reports every registered check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleMarkAttendance handles POST /api/v1/attendance/mark
func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkAttendance == nil {
		writeNotConfigured(w, r)
		return
	}

	var req MarkRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	var cmd command.MarkCommand
	role := shared.Role(req.Role)
	if strings.TrimSpace(req.Status) == "" {
		cmd = command.CheckInMark{
			PersonID:    shared.PersonID(req.PersonID),
			Role:        role,
			ScheduleRef: req.ScheduleRef,
			ClassTime:   req.ClassTime,
		}
	} else {
		status, err := attendance.ParseStatus(req.Status)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cmd = command.ExplicitMark{
			PersonID:    shared.PersonID(req.PersonID),
			Role:        role,
			Status:      status,
			ScheduleRef: req.ScheduleRef,
		}
	}

	result, err := s.deps.MarkAttendance.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	writeJSON(w, r, code, MarkResponse{
		Attendance:   query.NewAttendanceDTO(result.Attendance),
		Schedule:     newSlotResponse(result.Slot),
		Created:      result.Created,
		Changed:      result.Changed,
		ClassStarted: result.ClassStarted,
	})
}

// handleMarkScheduled handles POST /api/v1/attendance/scheduled
func (s *Server) handleMarkScheduled(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkScheduled == nil {
		writeNotConfigured(w, r)
		return
	}

	var req MarkScheduledRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.MarkScheduled.Handle(r.Context(), command.MarkScheduledCommand{
		ScheduleRef: req.ScheduleRef,
		PersonID:    shared.PersonID(req.PersonID),
		Role:        shared.Role(req.Role),
		Status:      status,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, MarkResponse{
		Attendance:   query.NewAttendanceDTO(result.Attendance),
		Schedule:     newSlotResponse(result.Schedule),
		Changed:      true,
		ClassStarted: result.ClassStarted,
	})
}

// handleCheckOut handles POST /api/v1/attendance/{role}/{personID}/checkout
func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	if s.deps.CheckOut == nil {
		writeNotConfigured(w, r)
		return
	}

	personID, role, err := subjectFromPath(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.CheckOut.Handle(r.Context(), command.CheckOutCommand{PersonID: personID, Role: role})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, CheckOutResponse{
		CheckInTime:  result.CheckInTime,
		CheckOutTime: result.CheckOutTime,
		Attendance:   query.NewAttendanceDTO(result.Attendance),
	})
}

// handleTodayStatus handles GET /api/v1/attendance/{role}/{personID}/today
func (s *Server) handleTodayStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.TodayStatus == nil {
		writeNotConfigured(w, r)
		return
	}

	personID, role, err := subjectFromPath(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := s.deps.TodayStatus.Handle(r.Context(), query.TodayStatusQuery{PersonID: personID, Role: role})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleTodayClasses handles GET /api/v1/teachers/{teacherID}/classes/today
func (s *Server) handleTodayClasses(w http.ResponseWriter, r *http.Request) {
	if s.deps.TodayClasses == nil {
		writeNotConfigured(w, r)
		return
	}

	classes, err := s.deps.TodayClasses.Handle(r.Context(), query.TodayClassesQuery{
		TeacherID: shared.PersonID(chi.URLParam(r, "teacherID")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, classes)
}

// handleDailyStats handles GET /api/v1/attendance/stats/today
//
// Query: date (YYYY-MM-DD, default today), fresh=true to bypass the cache.
func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.DailyStats == nil {
		writeNotConfigured(w, r)
		return
	}

	day, err := s.dateParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stats, err := s.deps.DailyStats.Handle(r.Context(), query.DailyStatsQuery{
		Date:      day,
		SkipCache: getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleDailyWorkbook handles GET /api/v1/reports/daily.xlsx
func (s *Server) handleDailyWorkbook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workbook == nil {
		writeNotConfigured(w, r)
		return
	}

	day, err := s.dateParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if day.IsZero() {
		day = timeutil.Date(s.deps.Clock.Now(), s.deps.Location)
	}

	// Render fully before writing so a failure can still answer with JSON.
	var buf bytes.Buffer
	if err := s.deps.Workbook.Write(r.Context(), day, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance-`+timeutil.DateKey(day)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTeacherLogin handles POST /api/v1/auth/teacher/login
func (s *Server) handleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.TeacherLogin == nil {
		writeNotConfigured(w, r)
		return
	}

	var req LoginRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.TeacherLogin.Handle(r.Context(), command.TeacherLoginCommand{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, LoginResponse{
		Token:      result.Token,
		ExpiresAt:  result.ExpiresAt.UTC(),
		TeacherID:  result.TeacherID.String(),
		Name:       result.Name,
		Action:     string(result.Action),
		Attendance: query.NewAttendanceDTO(result.Attendance),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCleanupDuplicates handles POST /api/v1/admin/attendance/cleanup
func (s *Server) handleCleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	if s.deps.CleanupDuplicates == nil {
		writeNotConfigured(w, r)
		return
	}

	var req CleanupRequest
	if err := s.decodeJSON(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	cmd := command.CleanupDuplicatesCommand{
		PersonID: shared.PersonID(strings.TrimSpace(req.PersonID)),
		Role:     shared.Role(req.Role),
	}
	if req.Date != "" {
		day, err := timeutil.ParseDate(req.Date)
		if err != nil {
			s.writeError(w, r, invalidDate(err))
			return
		}
		cmd.Date = &day
	}

	logger.FromContext(r.Context()).Info("cleanup requested",
		logger.String("actor", actor(r)),
		logger.String("date", req.Date),
	)
	result, err := s.deps.CleanupDuplicates.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, CleanupResponse{
		GroupsProcessed: result.GroupsProcessed,
		GroupsMerged:    result.GroupsMerged,
		RecordsDeleted:  result.RecordsDeleted,
		DurationMs:      result.Duration.Milliseconds(),
	})
}

// handleAutoCheckout handles POST /api/v1/admin/attendance/auto-checkout
func (s *Server) handleAutoCheckout(w http.ResponseWriter, r *http.Request) {
	if s.deps.AutoCheckout == nil {
		writeNotConfigured(w, r)
		return
	}

	logger.FromContext(r.Context()).Info("auto checkout requested", logger.String("actor", actor(r)))
	result, err := s.deps.AutoCheckout.Handle(r.Context(), command.AutoCheckoutCommand{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, AutoCheckoutResponse{
		Count:        result.Count,
		CheckoutTime: result.CheckoutTime,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func writeNotConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Handler not configured")
}

// actor names the token subject behind an admin request.
func actor(r *http.Request) string {
	if claims, ok := handlers.ClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "anonymous"
}

// subjectFromPath reads {role} and {personID}.
func subjectFromPath(r *http.Request) (shared.PersonID, shared.Role, error) {
	role, err := shared.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return "", "", err
	}
	personID, err := shared.NewPersonID(chi.URLParam(r, "personID"))
	if err != nil {
		return "", "", err
	}
	return personID, role, nil
}

// dateParam reads the optional ?date=YYYY-MM-DD. Zero means today.
func (s *Server) dateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, invalidDate(err)
	}
	return day, nil
}

func invalidDate(err error) error {
	return shared.WrapError("http", "ParseDate", shared.ErrInvalidFormat, "date must be YYYY-MM-DD", err)
}

// getQueryParamBool extracts a boolean query parameter.
func getQueryParamBool(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1" || value == "yes"
}

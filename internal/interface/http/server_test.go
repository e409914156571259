package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/internal/application/query"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/auth"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/metrics"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/report"
	"github.com/academy-hub/attendance-hub/internal/interface/http/handlers"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// Monday 19 October 2026, four minutes after the 10:00 class.
var testNow = time.Date(2026, 10, 19, 10, 4, 0, 0, time.UTC)

type testAPI struct {
	server  *Server
	clock   *timeutil.FixedClock
	ledger  *memory.Ledger
	issuer  *auth.Issuer
	metrics *metrics.Collectors
	health  *handlers.CompositeHealthChecker
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("pa55"), bcrypt.MinCost)
	require.NoError(t, err)

	clock := timeutil.NewFixedClock(testNow)
	ledger := memory.NewLedger()
	schedules := memory.NewSchedule(
		&schedule.Slot{ID: "slot-mon-10", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Monday,
			Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusScheduled},
		&schedule.Slot{ID: "slot-tue-10", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Tuesday,
			Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusScheduled},
	)
	people := memory.NewPeople(
		&directory.Person{ID: "stu-1", Role: shared.RoleStudent, Name: "Aru"},
		&directory.Person{ID: "tea-1", Role: shared.RoleTeacher, Name: "Madina", Login: "madina", PasswordHash: string(hash)},
	)
	// Tests move the clock across a whole school day with one token.
	issuer := auth.NewIssuer("test-secret", 24*time.Hour, clock.Now)
	collectors := metrics.New(false)
	health := handlers.NewCompositeHealthChecker("test")

	cmdDeps := command.Deps{
		Ledger:    ledger,
		Schedules: schedules,
		People:    people,
		Clock:     clock,
		Policy:    timepolicy.Default(),
		Location:  time.UTC,
	}
	qDeps := query.Deps{
		Ledger:    ledger,
		Schedules: schedules,
		People:    people,
		Clock:     clock,
		Location:  time.UTC,
	}

	cfg := DefaultConfig()
	cfg.LoginRatePerMinute = 0
	srv := NewServer(cfg, Dependencies{
		MarkAttendance:    command.NewMarkAttendanceHandler(cmdDeps),
		MarkScheduled:     command.NewMarkScheduledHandler(cmdDeps),
		CheckOut:          command.NewCheckOutHandler(cmdDeps),
		TeacherLogin:      command.NewTeacherLoginHandler(cmdDeps, issuer),
		CleanupDuplicates: command.NewCleanupDuplicatesHandler(cmdDeps),
		AutoCheckout:      command.NewAutoCheckoutHandler(cmdDeps),
		TodayStatus:       query.NewTodayStatusHandler(qDeps),
		TodayClasses:      query.NewTodayClassesHandler(qDeps),
		DailyStats:        query.NewDailyStatsHandler(qDeps, nil),
		Workbook:          report.NewDailyWorkbook(ledger, people),
		Tokens:            issuer,
		Metrics:           collectors,
		HealthChecker:     health,
		Clock:             clock,
		Location:          time.UTC,
		Logger:            logger.Nop(),
	})

	return &testAPI{server: srv, clock: clock, ledger: ledger, issuer: issuer, metrics: collectors, health: health}
}

func (a *testAPI) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := a.issuer.Issue("user-1", role)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestMarkAttendance_CheckInThenRepeat(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")
	body := map[string]string{"person_id": "stu-1", "role": "student"}

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, rec.Header().Get("X-Request-ID"))

	var res MarkResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Created)
	assert.Equal(t, "present", res.Attendance.Status)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, "slot-mon-10", res.Schedule.ScheduleRef)

	rec = api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.False(t, res.Created)
	assert.Equal(t, 1, api.ledger.Len())
}

func TestMarkAttendance_ExplicitStatus(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/mark", api.token(t, "teacher"),
		map[string]string{"person_id": "stu-1", "role": "student", "status": "Excused"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res MarkResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "excused", res.Attendance.Status)
	assert.Nil(t, res.Attendance.CheckInTime)
}

func TestMarkAttendance_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "stu-1", "role": "parent"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
	fields, ok := env.Error.Details["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "role")

	rec = api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "stu-1", "role": "student", "status": "sleepy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "ghost", "role": "student"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkScheduled_WrongDay(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/scheduled", api.token(t, "teacher"),
		map[string]string{"schedule_ref": "slot-tue-10", "person_id": "stu-1", "status": "present"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode(t, rec).Error.Code)
}

func TestMarkScheduled_StartsClass(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/scheduled", api.token(t, "teacher"),
		map[string]string{"schedule_ref": "slot-mon-10", "person_id": "tea-1", "status": "late"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res MarkResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "late", res.Attendance.Status)
	require.NotNil(t, res.Schedule)
	assert.Equal(t, "in_progress", res.Schedule.Status)
}

func TestCheckOut_SecondCallCarriesOriginalTime(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "stu-1", "role": "student"})
	require.Equal(t, http.StatusCreated, rec.Code)

	api.clock.Set(time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC))
	rec = api.do(t, http.MethodPost, "/api/v1/attendance/student/stu-1/checkout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res CheckOutResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "10:04 AM", res.CheckInTime)
	assert.Equal(t, "11:00 AM", res.CheckOutTime)

	api.clock.Set(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	rec = api.do(t, http.MethodPost, "/api/v1/attendance/student/stu-1/checkout", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "already_checked_out", env.Error.Code)
	assert.Equal(t, "11:00 AM", env.Error.Details["check_out_time"])
}

func TestCheckOut_WithoutCheckIn(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/student/stu-1/checkout", api.token(t, "teacher"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/attendance/robot/stu-1/checkout", api.token(t, "teacher"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTodayStatus_DefaultsToNotMarked(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/attendance/student/stu-1/today", api.token(t, "teacher"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status query.TodayStatusDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.Equal(t, "not_marked", status.Status)
	assert.False(t, status.CheckedIn)
	assert.Equal(t, "2026-10-19", status.Date)
}

func TestTodayClasses(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/teachers/tea-1/classes/today", api.token(t, "teacher"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var classes query.TodayClassesDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &classes))
	require.Len(t, classes.Classes, 1)
	assert.Equal(t, "slot-mon-10", classes.Classes[0].ScheduleRef)
	assert.Equal(t, "Aru", classes.Classes[0].StudentName)
}

func TestTeacherLogin_TogglesAttendance(t *testing.T) {
	api := newTestAPI(t)
	creds := map[string]string{"login": "Madina", "password": "pa55"}

	rec := api.do(t, http.MethodPost, "/api/v1/auth/teacher/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "checked_in", res.Action)
	assert.Equal(t, "tea-1", res.TeacherID)

	claims, err := api.issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "teacher", claims.Role)

	api.clock.Advance(time.Hour)
	rec = api.do(t, http.MethodPost, "/api/v1/auth/teacher/login", "", creds)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "checked_out", res.Action)

	rec = api.do(t, http.MethodPost, "/api/v1/auth/teacher/login", "", map[string]string{"login": "madina", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTeacherLogin_RateLimited(t *testing.T) {
	api := newTestAPI(t)
	api.server.loginLimiter = newRateLimiter(1, time.Minute)
	defer api.server.loginLimiter.Stop()
	creds := map[string]string{"login": "madina", "password": "wrong"}

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, "/api/v1/auth/teacher/login", "", creds).Code)
	assert.Equal(t, http.StatusTooManyRequests, api.do(t, http.MethodPost, "/api/v1/auth/teacher/login", "", creds).Code)
}

func TestAuth_GuardsRoutes(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/attendance/stats/today", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/attendance/stats/today", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/auto-checkout", api.token(t, "teacher"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := api.token(t, auth.RoleAdmin)
	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/auto-checkout", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.clock.Set(testNow.Add(25 * time.Hour))
	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/auto-checkout", admin, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestToken_SurvivesClockMovesWithinTheDay(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")

	api.clock.Set(time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC))
	rec := api.do(t, http.MethodGet, "/api/v1/attendance/stats/today", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdmin_AutoCheckoutAndCleanup(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token(t, auth.RoleAdmin)

	rec := api.do(t, http.MethodPost, "/api/v1/attendance/mark", admin, map[string]string{"person_id": "stu-1", "role": "student"})
	require.Equal(t, http.StatusCreated, rec.Code)

	api.clock.Set(time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC))
	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/auto-checkout", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sweep AutoCheckoutResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sweep))
	assert.Equal(t, 1, sweep.Count)
	assert.Equal(t, "09:00 PM", sweep.CheckoutTime)

	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/cleanup", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cleanup CleanupResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &cleanup))
	assert.Equal(t, 1, cleanup.GroupsProcessed)
	assert.Equal(t, 0, cleanup.GroupsMerged)

	rec = api.do(t, http.MethodPost, "/api/v1/admin/attendance/cleanup", admin, map[string]string{"date": "19/10/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyStats(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")

	api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "stu-1", "role": "student"})

	rec := api.do(t, http.MethodGet, "/api/v1/attendance/stats/today", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats query.DailyStatsDTO
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["present"])

	rec = api.do(t, http.MethodGet, "/api/v1/attendance/stats/today?date=yesterday", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyWorkbook(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "teacher")
	api.do(t, http.MethodPost, "/api/v1/attendance/mark", tok, map[string]string{"person_id": "stu-1", "role": "student"})

	rec := api.do(t, http.MethodGet, "/api/v1/reports/daily.xlsx?date=2026-10-19", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance-2026-10-19.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetLedger)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHealthProbesAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.health.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })
	rec = api.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `attendance_hub_http_request_duration_seconds_count{method="GET",route="/live",status="200"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v2/nothing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "route_not_found", env.Error.Code)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/mark",
		strings.NewReader(`{"person_id":"stu-1","role":"student","mood":"happy"}`))
	req.Header.Set("Authorization", "Bearer "+api.token(t, "teacher"))
	rec := httptest.NewRecorder()
	api.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

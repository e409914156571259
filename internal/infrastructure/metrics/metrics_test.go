package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func TestOnEvent(t *testing.T) {
	c := New(false)
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	require.NoError(t, c.OnEvent(shared.NewAttendanceMarkedEvent("r1", "stu-1", shared.RoleStudent, "2026-10-19", "late", false, at)))
	require.NoError(t, c.OnEvent(shared.NewAttendanceMarkedEvent("r2", "stu-2", shared.RoleStudent, "2026-10-19", "late", false, at)))
	require.NoError(t, c.OnEvent(shared.NewAttendanceCheckedOutEvent("r1", "stu-1", shared.RoleStudent, "09:00 PM", true, at)))
	require.NoError(t, c.OnEvent(shared.NewDuplicatesMergedEvent(2, 3, at)))
	require.NoError(t, c.OnEvent(shared.NewAutoCheckoutSweptEvent(4, "09:00 PM", at)))
	require.NoError(t, c.OnEvent(shared.NewClassStartedEvent("slot-1", "tea-1", "stu-1", at)))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Marks.WithLabelValues("student", "late", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Checkouts.WithLabelValues("student", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DuplicatesMerged))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.DuplicatesPurged))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.AutoCheckouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ClassesStarted))
}

func TestHandlerExposesJobAndHTTPMetrics(t *testing.T) {
	c := New(false)
	c.ObserveJob("auto_checkout", false, 2*time.Second)
	c.ObserveHTTP(http.MethodPost, "/api/v1/attendance/mark", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.JobRuns.WithLabelValues("auto_checkout", "failure")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `attendance_hub_http_request_duration_seconds_count{method="POST",route="/api/v1/attendance/mark",status="200"} 1`)
}

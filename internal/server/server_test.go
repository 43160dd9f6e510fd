package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"regdesk/internal/auth"
	"regdesk/internal/backend"
	"regdesk/internal/biometric"
	"regdesk/internal/console"
	"regdesk/internal/enrollment"
	"regdesk/internal/guard"
	"regdesk/internal/metrics"
	"regdesk/internal/registry"
	"regdesk/internal/session"
)

func newTestServer(t *testing.T, rateLimit int) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	admin, err := registry.NewAdmin("Root", "admin@x.com", "admin-pw")
	require.NoError(t, err)
	svc := registry.NewService(registry.NewMemoryRepository(), admin, zap.NewNop())
	m := metrics.New()
	srv := New(svc, auth.NewIssuer("regdesk-test", "test-key", time.Hour), m, nil, zap.NewNop())

	ts := httptest.NewServer(srv.Router(Options{RateLimitPerMin: rateLimit}))
	t.Cleanup(ts.Close)
	return ts, m
}

func TestHealthzAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["db"])

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "regdesk_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin, err := registry.NewAdmin("Root", "admin@x.com", "pw")
	require.NoError(t, err)
	srv := New(registry.NewService(registry.NewMemoryRepository(), admin, nil), auth.NewIssuer("i", "k", time.Hour), nil, nil, nil)
	r := srv.Router(Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/students/add", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimited(t *testing.T) {
	ts, _ := newTestServer(t, 1)

	first, err := http.Get(ts.URL + "/api/department/all")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/department/all")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	for _, path := range []string{"/api/auth/dashboard", "/api/department/profile", "/api/students/all"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, err := http.Post(ts.URL+"/api/students/add", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEndToEndEnrollment(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	ctx := context.Background()
	client := backend.New(ts.URL, 5*time.Second)
	store := session.NewMemoryStore()

	admin := console.NewAdminConsole(client, store, zap.NewNop())
	require.EqualError(t, admin.Login(ctx, "admin@x.com", "wrong"), "Invalid credentials")
	require.NoError(t, admin.Login(ctx, "admin@x.com", "admin-pw"))
	require.NoError(t, admin.Open(ctx))
	assert.Equal(t, "Root", admin.User.Name)
	assert.Empty(t, admin.Departments)

	_, err := admin.CreateDepartment(ctx, backend.NewDepartment{DeptName: "CSE", HodName: "Dr. K", DeptEmail: "cse@x.com", Password: "dept-pw"})
	require.NoError(t, err)
	_, err = admin.CreateDepartment(ctx, backend.NewDepartment{DeptName: "CSE", HodName: "Dr. K", DeptEmail: "cse@x.com", Password: "dept-pw"})
	require.EqualError(t, err, "Department with this email already exists")
	require.Len(t, admin.Departments, 1)

	require.NoError(t, admin.DepartmentLogin(ctx, "cse@x.com", "dept-pw"))
	assert.Equal(t, guard.DepartmentDashboard, admin.View())

	capturer := biometric.NewCapturer(biometric.NewSoftPlatform("http://localhost:3000"),
		biometric.WithRelyingParty("Department App", "http://localhost:3000"))
	dept := console.NewDepartmentConsole(client, store, capturer, zap.NewNop(), console.WithProfileBinding(true))
	require.NoError(t, dept.Open(ctx))
	assert.Equal(t, "CSE", dept.Department.DeptName)
	assert.Empty(t, dept.Students)

	enroll := func(roll string) (*enrollment.Student, error) {
		s := dept.NewEnrollment()
		require.NoError(t, s.SetField(enrollment.FieldName, "Alice"))
		require.NoError(t, s.SetField(enrollment.FieldRollNo, roll))
		require.NoError(t, s.SetField(enrollment.FieldEmail, "a@x.com"))
		require.NoError(t, s.SetField(enrollment.FieldClass, "CSE-A"))
		require.NoError(t, dept.Capture(ctx, biometric.Slot2))
		require.NoError(t, dept.Capture(ctx, biometric.Slot1))
		return dept.Enroll(ctx)
	}

	student, err := enroll("21CS01")
	require.NoError(t, err)
	assert.Equal(t, dept.Department.DeptID, student.DeptID)
	require.Len(t, dept.Students, 1)

	_, err = enroll("21CS01")
	require.EqualError(t, err, "Student with this roll number already exists")
	assert.NotNil(t, dept.Enrollment(), "failed enrollment stays open")
	require.Len(t, dept.Students, 1)

	require.NoError(t, dept.LoadStudents(ctx))
	require.Len(t, dept.Students, 1)
	assert.Equal(t, "21CS01", dept.Students[0].RollNo)

	require.NoError(t, store.Set(ctx, session.Department, "forged"))
	err = dept.Open(ctx)
	require.ErrorIs(t, err, console.ErrSignedOut)
	assert.Equal(t, guard.Root, dept.View())
	_, err = store.Get(ctx, session.Department)
	assert.ErrorIs(t, err, session.ErrNoToken)

	token, err := store.Get(ctx, session.Admin)
	require.NoError(t, err)
	assert.NotEmpty(t, token, "department sign-out keeps the admin session")
}

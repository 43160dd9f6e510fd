// Package console holds the view state behind the operator commands: which
// view is current, what it shows and the single message left by the last
// failure.
package console

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"regdesk/internal/backend"
	"regdesk/internal/enrollment"
	"regdesk/internal/guard"
	"regdesk/internal/session"
)

// Messages shown when the backend gives no message of its own.
const (
	MsgLoginFailed          = "Login failed"
	MsgLoginError           = "An error occurred. Please try again."
	MsgDashboardFailed      = "Failed to fetch dashboard data"
	MsgDepartmentsFailed    = "Failed to fetch departments"
	MsgCreateDeptFailed     = "Error creating department"
	MsgDepartmentFailed     = "Failed to fetch department data"
	MsgStudentsFailed       = "Failed to fetch students"
	MsgAddStudentFailed     = "Failed to add student"
	MsgEnrollmentIncomplete = "Fill in every field and capture both fingerprints"
)

// ErrSignedOut is returned when a protected call forced a logout.
var ErrSignedOut = errors.New("session expired")

// Failure is the single operator-facing message produced by an operation.
// Err keeps the underlying cause for logs.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// AdminAPI is the part of the registration API used by administrators.
type AdminAPI interface {
	AdminLogin(ctx context.Context, email, password string) (string, error)
	AdminDashboard(ctx context.Context, token string) (*backend.AdminUser, error)
	ListDepartments(ctx context.Context) ([]backend.Department, error)
	CreateDepartment(ctx context.Context, req backend.NewDepartment) (*backend.Department, error)
	DepartmentLogin(ctx context.Context, email, password string) (string, error)
}

// DepartmentAPI is the part of the registration API used by departments.
type DepartmentAPI interface {
	DepartmentProfile(ctx context.Context, token string) (*backend.Department, error)
	ListStudents(ctx context.Context, token string) ([]enrollment.Student, error)
	AddStudent(ctx context.Context, token string, req enrollment.Request) (*enrollment.Student, error)
}

var (
	_ AdminAPI      = (*backend.Client)(nil)
	_ DepartmentAPI = (*backend.Client)(nil)
)

// state is shared by both consoles.
type state struct {
	store  session.Store
	logger *zap.Logger

	view    guard.View
	message string
}

func (s *state) View() guard.View { return s.view }

// Message returns the message left by the last failed operation.
func (s *state) Message() string { return s.message }

func (s *state) navigate(v guard.View) {
	s.view = v
	s.message = ""
}

func (s *state) fail(msg string, err error) error {
	s.message = msg
	s.logger.Warn(msg, zap.Error(err))
	return &Failure{Message: msg, Err: err}
}

func (s *state) redirected(err error) error {
	if to, ok := guard.RedirectOf(err); ok {
		s.view = to
	}
	return err
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

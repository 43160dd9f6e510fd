package console

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"regdesk/internal/backend"
	"regdesk/internal/biometric"
	"regdesk/internal/enrollment"
	"regdesk/internal/guard"
	"regdesk/internal/session"
)

// DepartmentConsole drives the department dashboard: the profile, the student
// list and at most one open enrollment.
type DepartmentConsole struct {
	state
	api      DepartmentAPI
	capturer enrollment.Capturer
	bind     bool

	Department *backend.Department
	Students   []enrollment.Student

	enrollment *enrollment.Session
}

// DepartmentOption configures a DepartmentConsole.
type DepartmentOption func(*DepartmentConsole)

// WithProfileBinding binds captured credentials to the student being enrolled.
func WithProfileBinding(enabled bool) DepartmentOption {
	return func(c *DepartmentConsole) { c.bind = enabled }
}

func NewDepartmentConsole(api DepartmentAPI, store session.Store, capturer enrollment.Capturer, logger *zap.Logger, opts ...DepartmentOption) *DepartmentConsole {
	logger = nopIfNil(logger)
	c := &DepartmentConsole{
		state: state{store: store, logger: logger, view: guard.Root},
		api:   api,
	}
	if capturer != nil {
		c.capturer = enrollment.NewLogCapturer(capturer, logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open enters the department dashboard and loads the profile and students.
// A 401 on either call signs the department out.
func (c *DepartmentConsole) Open(ctx context.Context) error {
	token, err := guard.RequireDepartment(ctx, c.store)
	if err != nil {
		return c.redirected(err)
	}
	c.navigate(guard.DepartmentDashboard)

	dept, err := c.api.DepartmentProfile(ctx, token)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return c.forceLogout(ctx, err)
		}
		return c.fail(MsgDepartmentFailed, err)
	}
	c.Department = dept

	return c.LoadStudents(ctx)
}

// LoadStudents refreshes the student list.
func (c *DepartmentConsole) LoadStudents(ctx context.Context) error {
	token, err := guard.RequireDepartment(ctx, c.store)
	if err != nil {
		return c.redirected(err)
	}

	students, err := c.api.ListStudents(ctx, token)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return c.forceLogout(ctx, err)
		}
		return c.fail(MsgStudentsFailed, err)
	}
	c.Students = students
	return nil
}

func (c *DepartmentConsole) forceLogout(ctx context.Context, cause error) error {
	if err := c.store.Clear(ctx, session.Department); err != nil {
		c.logger.Error("failed to clear department token", zap.Error(err))
	}
	c.logger.Info("department session rejected, signing out", zap.Error(cause))
	c.discardEnrollment()
	c.Department = nil
	c.Students = nil
	c.navigate(guard.Root)
	return errors.Join(ErrSignedOut, cause)
}

// NewEnrollment opens the add-student form, discarding any form already open.
func (c *DepartmentConsole) NewEnrollment() *enrollment.Session {
	c.discardEnrollment()
	c.enrollment = enrollment.NewSession(enrollment.WithProfileBinding(c.bind))
	return c.enrollment
}

// Enrollment returns the open add-student form, if any.
func (c *DepartmentConsole) Enrollment() *enrollment.Session { return c.enrollment }

// CancelEnrollment closes the add-student form without submitting.
func (c *DepartmentConsole) CancelEnrollment() {
	c.discardEnrollment()
}

func (c *DepartmentConsole) discardEnrollment() {
	if c.enrollment != nil {
		c.enrollment.Discard()
		c.enrollment = nil
	}
}

// Capture fills one fingerprint slot of the open enrollment. A result arriving
// after the enrollment was closed is dropped without touching the view.
func (c *DepartmentConsole) Capture(ctx context.Context, slot biometric.Slot) error {
	if c.enrollment == nil {
		return c.fail(MsgEnrollmentIncomplete, enrollment.ErrDiscarded)
	}
	if c.capturer == nil {
		return c.fail(biometric.ErrCapabilityUnsupported.Error(), biometric.ErrCapabilityUnsupported)
	}
	s := c.enrollment
	if _, err := s.Capture(ctx, c.capturer, slot); err != nil {
		if s.Discarded() {
			return enrollment.ErrDiscarded
		}
		return c.fail(err.Error(), err)
	}
	c.message = ""
	return nil
}

// Enroll submits the open enrollment. On success the returned student is
// appended to the list and the form is closed; on failure the form stays as
// it was.
func (c *DepartmentConsole) Enroll(ctx context.Context) (*enrollment.Student, error) {
	s := c.enrollment
	if s == nil || !s.IsSubmittable() {
		return nil, c.fail(MsgEnrollmentIncomplete, enrollment.ErrNotSubmittable)
	}

	token, err := guard.RequireDepartment(ctx, c.store)
	if err != nil {
		return nil, c.redirected(err)
	}

	sub := enrollment.NewLogSubmitter(submitter{api: c.api, token: token}, c.logger)
	student, err := s.Submit(ctx, sub)
	if err != nil {
		if errors.Is(err, enrollment.ErrDiscarded) {
			return nil, err
		}
		if backend.IsUnauthorized(err) {
			return nil, c.forceLogout(ctx, err)
		}
		return nil, c.fail(backend.MessageOr(err, MsgAddStudentFailed), err)
	}

	if c.enrollment == s {
		c.enrollment = nil
	}
	if student != nil {
		c.Students = append(c.Students, *student)
	}
	c.message = ""
	return student, nil
}

// Logout forgets the department token and returns to the root view.
func (c *DepartmentConsole) Logout(ctx context.Context) error {
	err := c.store.Clear(ctx, session.Department)
	c.discardEnrollment()
	c.Department = nil
	c.Students = nil
	c.navigate(guard.Root)
	return err
}

// submitter adapts DepartmentAPI to enrollment.Submitter for one token.
type submitter struct {
	api   DepartmentAPI
	token string
}

func (s submitter) AddStudent(ctx context.Context, req enrollment.Request) (*enrollment.Student, error) {
	return s.api.AddStudent(ctx, s.token, req)
}

package console

import (
	"context"

	"go.uber.org/zap"

	"regdesk/internal/backend"
	"regdesk/internal/guard"
	"regdesk/internal/session"
)

// AdminConsole drives the login, dashboard and department-selection views.
type AdminConsole struct {
	state
	api AdminAPI

	User        *backend.AdminUser
	Departments []backend.Department
}

func NewAdminConsole(api AdminAPI, store session.Store, logger *zap.Logger) *AdminConsole {
	return &AdminConsole{
		state: state{store: store, logger: nopIfNil(logger), view: guard.Login},
		api:   api,
	}
}

// Login signs the administrator in and moves to the dashboard.
func (c *AdminConsole) Login(ctx context.Context, email, password string) error {
	c.message = ""
	token, err := c.api.AdminLogin(ctx, email, password)
	if err != nil {
		if backend.IsTransport(err) {
			return c.fail(MsgLoginError, err)
		}
		return c.fail(backend.MessageOr(err, MsgLoginFailed), err)
	}
	if err := c.store.Set(ctx, session.Admin, token); err != nil {
		return c.fail(MsgLoginError, err)
	}
	c.navigate(guard.Dashboard)
	return nil
}

// Open enters the dashboard: the administrator and the department list.
func (c *AdminConsole) Open(ctx context.Context) error {
	token, err := guard.RequireAdmin(ctx, c.store)
	if err != nil {
		return c.redirected(err)
	}
	c.navigate(guard.Dashboard)

	user, err := c.api.AdminDashboard(ctx, token)
	if err != nil {
		return c.fail(MsgDashboardFailed, err)
	}
	c.User = user

	return c.LoadDepartments(ctx)
}

// LoadDepartments refreshes the department list. It needs no session.
func (c *AdminConsole) LoadDepartments(ctx context.Context) error {
	departments, err := c.api.ListDepartments(ctx)
	if err != nil {
		return c.fail(MsgDepartmentsFailed, err)
	}
	c.Departments = departments
	return nil
}

// CreateDepartment registers a department and appends it to the list.
func (c *AdminConsole) CreateDepartment(ctx context.Context, req backend.NewDepartment) (*backend.Department, error) {
	dept, err := c.api.CreateDepartment(ctx, req)
	if err != nil {
		return nil, c.fail(backend.MessageOr(err, MsgCreateDeptFailed), err)
	}
	if dept != nil {
		c.Departments = append(c.Departments, *dept)
	}
	c.message = ""
	return dept, nil
}

// DepartmentLogin signs a department in and moves to its dashboard.
func (c *AdminConsole) DepartmentLogin(ctx context.Context, email, password string) error {
	token, err := c.api.DepartmentLogin(ctx, email, password)
	if err != nil {
		return c.fail(backend.MessageOr(err, MsgLoginFailed), err)
	}
	if err := c.store.Set(ctx, session.Department, token); err != nil {
		return c.fail(MsgLoginError, err)
	}
	c.navigate(guard.DepartmentDashboard)
	return nil
}

// Logout forgets the admin token and returns to the login view.
func (c *AdminConsole) Logout(ctx context.Context) error {
	err := c.store.Clear(ctx, session.Admin)
	c.User = nil
	c.navigate(guard.Login)
	return err
}

// Package guard decides whether a protected view may be entered with the
// tokens currently stored.
package guard

import (
	"context"
	"errors"

	"regdesk/internal/session"
)

// View is a navigation target.
type View string

const (
	Root                View = "/"
	Login               View = "/login"
	Dashboard           View = "/dashboard"
	DepartmentDashboard View = "/department-dashboard"
)

// Redirect is returned when a view cannot be entered.
type Redirect struct {
	To   View
	Kind session.Kind
	Err  error
}

func (r *Redirect) Error() string {
	return "no " + r.Kind.String() + " session, redirect to " + string(r.To)
}

func (r *Redirect) Unwrap() error { return r.Err }

// RequireAdmin returns the admin token or a redirect to the login view.
func RequireAdmin(ctx context.Context, store session.Store) (string, error) {
	return lookup(ctx, store, session.Admin, Login)
}

// RequireDepartment returns the department token or a redirect to the root view.
func RequireDepartment(ctx context.Context, store session.Store) (string, error) {
	return lookup(ctx, store, session.Department, Root)
}

func lookup(ctx context.Context, store session.Store, kind session.Kind, fallback View) (string, error) {
	token, err := store.Get(ctx, kind)
	if err != nil {
		return "", &Redirect{To: fallback, Kind: kind, Err: err}
	}
	return token, nil
}

// RedirectOf returns the target view when err is a guard redirect.
func RedirectOf(err error) (View, bool) {
	var r *Redirect
	if errors.As(err, &r) {
		return r.To, true
	}
	return "", false
}

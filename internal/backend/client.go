// Package backend is the HTTP client for the registration API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"regdesk/internal/enrollment"
)

// AdminUser is returned by the admin dashboard.
type AdminUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Department is a department record.
type Department struct {
	DeptID    int64  `json:"dept_id"`
	DeptName  string `json:"dept_name"`
	HodName   string `json:"hod_name"`
	DeptEmail string `json:"dept_email"`
}

// NewDepartment is the department-creation payload.
type NewDepartment struct {
	DeptName  string `json:"dept_name"`
	HodName   string `json:"hod_name"`
	DeptEmail string `json:"dept_email"`
	Password  string `json:"password"`
}

// Client calls the registration API. It holds no credentials; protected
// calls receive the bearer token explicitly.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// AdminLogin exchanges admin credentials for a token.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Token, nil
}

// AdminDashboard fetches the signed-in administrator.
func (c *Client) AdminDashboard(ctx context.Context, token string) (*AdminUser, error) {
	var out struct {
		User *AdminUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/dashboard", token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &Error{Status: http.StatusOK, Err: errors.New("dashboard response has no user")}
	}
	return out.User, nil
}

// ListDepartments returns every department.
func (c *Client) ListDepartments(ctx context.Context) ([]Department, error) {
	var out struct {
		Departments []Department `json:"departments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/department/all", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Departments, nil
}

// CreateDepartment registers a new department.
func (c *Client) CreateDepartment(ctx context.Context, req NewDepartment) (*Department, error) {
	var out struct {
		envelope
		Department *Department `json:"department"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/department/create", "", req, &out); err != nil {
		return nil, err
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	return out.Department, nil
}

// DepartmentLogin exchanges department credentials for a token.
func (c *Client) DepartmentLogin(ctx context.Context, email, password string) (string, error) {
	var out struct {
		envelope
		Token string `json:"token"`
	}
	body := map[string]string{"dept_email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/department/login", "", body, &out); err != nil {
		return "", err
	}
	if err := out.check(); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Token, nil
}

// DepartmentProfile fetches the department the token belongs to.
func (c *Client) DepartmentProfile(ctx context.Context, token string) (*Department, error) {
	var out struct {
		envelope
		Department *Department `json:"department"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/department/profile", token, nil, &out); err != nil {
		return nil, err
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	return out.Department, nil
}

// ListStudents returns the students visible to the department token.
func (c *Client) ListStudents(ctx context.Context, token string) ([]enrollment.Student, error) {
	var out struct {
		Students []enrollment.Student `json:"students"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/students/all", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// AddStudent creates a student with both fingerprint artifacts.
func (c *Client) AddStudent(ctx context.Context, token string, req enrollment.Request) (*enrollment.Student, error) {
	var out struct {
		envelope
		Student *enrollment.Student `json:"student"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/students/add", token, req, &out); err != nil {
		return nil, err
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	if out.Student == nil {
		return nil, &Error{Status: http.StatusOK, Err: errors.New("response has no student")}
	}
	return out.Student, nil
}

// envelope is the success/message pair most endpoints answer with.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (e envelope) check() error {
	if e.Success != nil && !*e.Success {
		return &Error{Status: http.StatusOK, Message: e.Message}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(raw, &msg)
		if msg.Message == "" {
			msg.Message = msg.Error
		}
		return &Error{
			Status:  resp.StatusCode,
			Message: msg.Message,
			Err:     fmt.Errorf("%s %s: %s", method, path, resp.Status),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Package registry stores departments and the students they enroll. It backs
// the development API server.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Admin is the single administrator account of the registry.
type Admin struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	passwordHash []byte
}

// NewAdmin hashes password for the administrator account.
func NewAdmin(name, email, password string) (Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, err
	}
	return Admin{Name: name, Email: email, passwordHash: hash}, nil
}

// NewDepartment is the input of CreateDepartment.
type NewDepartment struct {
	Name     string `json:"dept_name"`
	HodName  string `json:"hod_name"`
	Email    string `json:"dept_email"`
	Password string `json:"password"`
}

// NewStudent is the input of AddStudent.
type NewStudent struct {
	Name         string `json:"name"`
	RollNo       string `json:"roll_no"`
	Email        string `json:"email"`
	Class        string `json:"class"`
	Fingerprint1 string `json:"fingerprint1"`
	Fingerprint2 string `json:"fingerprint2"`
}

// Service holds the registry rules: credentials, required fields and
// uniqueness.
type Service struct {
	repo   Repository
	admin  Admin
	logger *zap.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, admin Admin, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, admin: admin, logger: logger}
}

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

// AdminLogin checks the administrator credentials.
func (s *Service) AdminLogin(_ context.Context, email, password string) (Admin, error) {
	if !strings.EqualFold(email, s.admin.Email) ||
		bcrypt.CompareHashAndPassword(s.admin.passwordHash, []byte(password)) != nil {
		return Admin{}, unauthorized("Invalid credentials")
	}
	return s.admin, nil
}

// AdminByEmail returns the administrator a token was issued for.
func (s *Service) AdminByEmail(email string) (Admin, error) {
	if !strings.EqualFold(email, s.admin.Email) {
		return Admin{}, notFound("Admin not found")
	}
	return s.admin, nil
}

// CreateDepartment validates and stores a department with a hashed password.
func (s *Service) CreateDepartment(ctx context.Context, in NewDepartment) (Department, error) {
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.HodName == "" || in.Email == "" || in.Password == "" {
		return Department{}, dataError("All fields are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Department{}, general(err)
	}

	dept, err := s.repo.InsertDepartment(ctx, Department{
		Name:         in.Name,
		HodName:      in.HodName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return Department{}, conflict("Department with this email already exists", err)
	}
	if err != nil {
		return Department{}, general(err)
	}

	s.logger.Info("department created", zap.Int64("dept_id", dept.ID), zap.String("dept_email", dept.Email))
	dept.PasswordHash = nil
	return dept, nil
}

// normalizeEmail is applied before department emails reach a repository, which
// compares them exactly.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DepartmentLogin checks department credentials.
func (s *Service) DepartmentLogin(ctx context.Context, email, password string) (Department, error) {
	dept, err := s.repo.DepartmentByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Department{}, general(err)
	}
	if dept == nil || bcrypt.CompareHashAndPassword(dept.PasswordHash, []byte(password)) != nil {
		return Department{}, unauthorized("Invalid credentials")
	}
	dept.PasswordHash = nil
	return *dept, nil
}

// Department returns one department.
func (s *Service) Department(ctx context.Context, id int64) (Department, error) {
	dept, err := s.repo.DepartmentByID(ctx, id)
	if err != nil {
		return Department{}, general(err)
	}
	if dept == nil {
		return Department{}, notFound("Department not found")
	}
	dept.PasswordHash = nil
	return *dept, nil
}

// Departments returns every department.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, general(err)
	}
	return departments, nil
}

// AddStudent enrolls a student in a department. Both fingerprints must be
// base64 attestation objects.
func (s *Service) AddStudent(ctx context.Context, deptID int64, in NewStudent) (Student, error) {
	if in.Name == "" || in.RollNo == "" || in.Email == "" || in.Class == "" {
		return Student{}, dataError("All fields are required")
	}
	if in.Fingerprint1 == "" || in.Fingerprint2 == "" {
		return Student{}, dataError("Both fingerprints are required")
	}
	for _, fp := range []string{in.Fingerprint1, in.Fingerprint2} {
		if _, err := base64.StdEncoding.DecodeString(fp); err != nil {
			return Student{}, dataError("Fingerprint data is not valid base64")
		}
	}

	student, err := s.repo.InsertStudent(ctx, Student{
		RollNo:       in.RollNo,
		Name:         in.Name,
		Email:        in.Email,
		Class:        in.Class,
		DeptID:       deptID,
		Fingerprint1: in.Fingerprint1,
		Fingerprint2: in.Fingerprint2,
	})
	if errors.Is(err, ErrDuplicateRollNo) {
		return Student{}, conflict("Student with this roll number already exists", err)
	}
	if err != nil {
		return Student{}, general(err)
	}

	s.logger.Info("student enrolled", zap.String("roll_no", student.RollNo), zap.Int64("dept_id", deptID))
	return student, nil
}

// Students returns the students of a department.
func (s *Service) Students(ctx context.Context, deptID int64) ([]Student, error) {
	students, err := s.repo.ListStudents(ctx, deptID)
	if err != nil {
		return nil, general(err)
	}
	return students, nil
}

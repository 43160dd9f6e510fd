package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Department is a stored department.
type Department struct {
	ID           int64     `json:"dept_id"`
	Name         string    `json:"dept_name"`
	HodName      string    `json:"hod_name"`
	Email        string    `json:"dept_email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student is a stored student. Fingerprint artifacts are kept but never
// returned by the API.
type Student struct {
	RollNo       string    `json:"roll_no"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Class        string    `json:"class"`
	DeptID       int64     `json:"dept_id"`
	Fingerprint1 string    `json:"-"`
	Fingerprint2 string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists departments and students.
type Repository interface {
	InsertDepartment(ctx context.Context, d Department) (Department, error)
	DepartmentByEmail(ctx context.Context, email string) (*Department, error)
	DepartmentByID(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	InsertStudent(ctx context.Context, s Student) (Student, error)
	ListStudents(ctx context.Context, deptID int64) ([]Student, error)
	Ping(ctx context.Context) error
}

const schema = `
CREATE TABLE IF NOT EXISTS departments (
	dept_id       BIGSERIAL PRIMARY KEY,
	dept_name     TEXT NOT NULL,
	hod_name      TEXT NOT NULL,
	dept_email    TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS students (
	roll_no      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	class        TEXT NOT NULL,
	dept_id      BIGINT NOT NULL REFERENCES departments (dept_id),
	fingerprint1 TEXT NOT NULL,
	fingerprint2 TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS students_dept_id_idx ON students (dept_id);
`

// PostgresRepository persists registry data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertDepartment writes a new department.
func (r *PostgresRepository) InsertDepartment(ctx context.Context, d Department) (Department, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO departments (dept_name, hod_name, dept_email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING dept_id, created_at
	`, d.Name, d.HodName, d.Email, d.PasswordHash)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Department{}, ErrDuplicateEmail
		}
		return Department{}, err
	}
	return d, nil
}

// DepartmentByEmail returns nil when no department has email.
func (r *PostgresRepository) DepartmentByEmail(ctx context.Context, email string) (*Department, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT dept_id, dept_name, hod_name, dept_email, password_hash, created_at
		FROM departments WHERE dept_email = $1
	`, email)
	return scanDepartment(row)
}

// DepartmentByID returns nil when the department does not exist.
func (r *PostgresRepository) DepartmentByID(ctx context.Context, id int64) (*Department, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT dept_id, dept_name, hod_name, dept_email, password_hash, created_at
		FROM departments WHERE dept_id = $1
	`, id)
	return scanDepartment(row)
}

func scanDepartment(row *sql.Row) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.HodName, &d.Email, &d.PasswordHash, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by id.
func (r *PostgresRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dept_id, dept_name, hod_name, dept_email, created_at
		FROM departments
		ORDER BY dept_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.HodName, &d.Email, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// InsertStudent writes a new student.
func (r *PostgresRepository) InsertStudent(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (roll_no, name, email, class, dept_id, fingerprint1, fingerprint2)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.RollNo, s.Name, s.Email, s.Class, s.DeptID, s.Fingerprint1, s.Fingerprint2)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Student{}, ErrDuplicateRollNo
		}
		return Student{}, err
	}
	return s, nil
}

// ListStudents returns the students of one department ordered by roll number.
func (r *PostgresRepository) ListStudents(ctx context.Context, deptID int64) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT roll_no, name, email, class, dept_id, created_at
		FROM students
		WHERE dept_id = $1
		ORDER BY roll_no
	`, deptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.RollNo, &s.Name, &s.Email, &s.Class, &s.DeptID, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

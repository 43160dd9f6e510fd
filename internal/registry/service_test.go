package registry

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	admin, err := NewAdmin("Root", "admin@x.com", "admin-pw")
	require.NoError(t, err)
	return NewService(repo, admin, zap.NewNop())
}

func TestService_AdminLogin(t *testing.T) {
	svc := newTestService(t, NewMemoryRepository())
	ctx := context.Background()

	admin, err := svc.AdminLogin(ctx, "ADMIN@x.com", "admin-pw")
	require.NoError(t, err)
	assert.Equal(t, "Root", admin.Name)

	_, err = svc.AdminLogin(ctx, "admin@x.com", "nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, CategoryUnauthorized, CategoryOf(err))
	assert.Equal(t, "Invalid credentials", PublicMessage(err))
}

func exerciseRegistry(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.CreateDepartment(ctx, NewDepartment{Name: "CSE", Email: "cse@x.com"})
	assert.Equal(t, CategoryData, CategoryOf(err))

	dept, err := svc.CreateDepartment(ctx, NewDepartment{Name: "CSE", HodName: "Dr. K", Email: "cse@x.com", Password: "dept-pw"})
	require.NoError(t, err)
	assert.NotZero(t, dept.ID)
	assert.Nil(t, dept.PasswordHash)

	_, err = svc.CreateDepartment(ctx, NewDepartment{Name: "CSE 2", HodName: "Dr. L", Email: "cse@x.com", Password: "x"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, CategoryConflict, CategoryOf(err))

	_, err = svc.CreateDepartment(ctx, NewDepartment{Name: "CSE 3", HodName: "Dr. M", Email: " CSE@X.com ", Password: "x"})
	require.ErrorIs(t, err, ErrDuplicateEmail, "emails differing only in case are duplicates")

	ece, err := svc.CreateDepartment(ctx, NewDepartment{Name: "ECE", HodName: "Dr. E", Email: "ECE@X.com", Password: "ece-pw"})
	require.NoError(t, err)
	assert.Equal(t, "ece@x.com", ece.Email)
	logged, err := svc.DepartmentLogin(ctx, "Ece@x.COM", "ece-pw")
	require.NoError(t, err)
	assert.Equal(t, ece.ID, logged.ID)

	logged, err = svc.DepartmentLogin(ctx, "cse@x.com", "dept-pw")
	require.NoError(t, err)
	assert.Equal(t, dept.ID, logged.ID)

	_, err = svc.DepartmentLogin(ctx, "cse@x.com", "wrong")
	assert.Equal(t, CategoryUnauthorized, CategoryOf(err))
	_, err = svc.DepartmentLogin(ctx, "nobody@x.com", "dept-pw")
	assert.Equal(t, CategoryUnauthorized, CategoryOf(err))

	in := NewStudent{Name: "Alice", RollNo: "21CS01", Email: "a@x.com", Class: "CSE-A", Fingerprint1: "ZnAx", Fingerprint2: "ZnAy"}
	student, err := svc.AddStudent(ctx, dept.ID, in)
	require.NoError(t, err)
	assert.Equal(t, dept.ID, student.DeptID)

	_, err = svc.AddStudent(ctx, dept.ID, in)
	require.ErrorIs(t, err, ErrDuplicateRollNo)
	assert.Equal(t, CategoryConflict, CategoryOf(err))
	assert.Equal(t, "Student with this roll number already exists", PublicMessage(err))

	in.RollNo = "21CS02"
	in.Fingerprint2 = ""
	_, err = svc.AddStudent(ctx, dept.ID, in)
	assert.Equal(t, CategoryData, CategoryOf(err))

	in.Fingerprint2 = "not base64!"
	_, err = svc.AddStudent(ctx, dept.ID, in)
	assert.Equal(t, "Fingerprint data is not valid base64", PublicMessage(err))

	students, err := svc.Students(ctx, dept.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "21CS01", students[0].RollNo)

	other, err := svc.Students(ctx, dept.ID+1000)
	require.NoError(t, err)
	assert.Empty(t, other)

	departments, err := svc.Departments(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, departments)

	_, err = svc.Department(ctx, dept.ID+1000)
	assert.Equal(t, CategoryNotFound, CategoryOf(err))
}

func TestService_MemoryRepository(t *testing.T) {
	exerciseRegistry(t, newTestService(t, NewMemoryRepository()))
}

func TestService_PostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS students; DROP TABLE IF EXISTS departments;`)
	require.NoError(t, err)

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Ping(ctx))
	exerciseRegistry(t, newTestService(t, repo))
}

func TestCategoryStatus(t *testing.T) {
	assert.Equal(t, 409, CategoryConflict.Status())
	assert.Equal(t, 401, CategoryUnauthorized.Status())
	assert.Equal(t, 500, CategoryOf(assert.AnError).Status())
	assert.Equal(t, "Internal Server Error", PublicMessage(assert.AnError))
}

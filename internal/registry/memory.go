package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps registry data in process memory.
type MemoryRepository struct {
	mu          sync.RWMutex
	nextID      int64
	departments map[int64]Department
	students    map[string]Student
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		departments: make(map[int64]Department),
		students:    make(map[string]Student),
	}
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) InsertDepartment(_ context.Context, d Department) (Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.departments {
		if existing.Email == d.Email {
			return Department{}, ErrDuplicateEmail
		}
	}
	r.nextID++
	d.ID = r.nextID
	d.CreatedAt = time.Now().UTC()
	r.departments[d.ID] = d
	return d, nil
}

func (r *MemoryRepository) DepartmentByEmail(_ context.Context, email string) (*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.departments {
		if d.Email == email {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) DepartmentByID(_ context.Context, id int64) (*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.departments[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *MemoryRepository) ListDepartments(context.Context) ([]Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Department, 0, len(r.departments))
	for _, d := range r.departments {
		d.PasswordHash = nil
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) InsertStudent(_ context.Context, s Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.RollNo]; ok {
		return Student{}, ErrDuplicateRollNo
	}
	s.CreatedAt = time.Now().UTC()
	r.students[s.RollNo] = s
	return s, nil
}

func (r *MemoryRepository) ListStudents(_ context.Context, deptID int64) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Student{}
	for _, s := range r.students {
		if s.DeptID == deptID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out, nil
}

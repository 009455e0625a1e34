package service

import (
	"testing"

	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/repository"
	"gorm.io/gorm"
)

type mockCourseRepo struct {
	GetBasicFunc func(id uint) (*model.Course, error)
}

func (m *mockCourseRepo) WithTx(tx *gorm.DB) repository.CourseRepository { return m }
func (m *mockCourseRepo) Create(course *model.Course) error              { return nil }
func (m *mockCourseRepo) Save(course *model.Course) error                { return nil }
func (m *mockCourseRepo) GetBasic(id uint) (*model.Course, error) {
	if m.GetBasicFunc != nil {
		return m.GetBasicFunc(id)
	}
	return nil, repository.ErrNotFound
}
func (m *mockCourseRepo) GetTree(id uint) (*model.Course, error)                { return nil, nil }
func (m *mockCourseRepo) ListByTeacher(teacherID uint) ([]model.Course, error) { return nil, nil }
func (m *mockCourseRepo) Delete(id uint) error                                 { return nil }
func (m *mockCourseRepo) AssetPaths(id uint) ([]string, error)                 { return nil, nil }

func TestAuthzOwnsCourse(t *testing.T) {
	repo := &mockCourseRepo{
		GetBasicFunc: func(id uint) (*model.Course, error) {
			return &model.Course{ID: id, TeacherID: 7}, nil
		},
	}
	authz := NewAuthzService(repo)

	owns, err := authz.OwnsCourse(7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !owns {
		t.Fatalf("expected owner to own course")
	}

	owns, err = authz.OwnsCourse(8, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owns {
		t.Fatalf("expected non-owner to not own course")
	}
}

func TestAuthzMissingCourseIsNotOwned(t *testing.T) {
	authz := NewAuthzService(&mockCourseRepo{})

	owns, err := authz.OwnsCourse(1, 42)
	if err != nil {
		t.Fatalf("missing course must not be an error: %v", err)
	}
	if owns {
		t.Fatalf("missing course must not be owned")
	}
}

package service

import (
	"errors"

	"github.com/sakuralearn/backend/internal/repository"
)

// AuthzService 授权协作方。引擎只消费一个布尔判断：
// 调用者是否是课程的所属教师。
type AuthzService struct {
	courseRepo repository.CourseRepository
}

func NewAuthzService(courseRepo repository.CourseRepository) *AuthzService {
	return &AuthzService{courseRepo: courseRepo}
}

// OwnsCourse 判断教师是否拥有课程。课程不存在视为不拥有。
func (s *AuthzService) OwnsCourse(teacherID, courseID uint) (bool, error) {
	course, err := s.courseRepo.GetBasic(courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return course.TeacherID == teacherID, nil
}

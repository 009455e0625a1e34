package service

import (
	"context"

	"github.com/sakuralearn/backend/config"
	"github.com/sakuralearn/backend/internal/eventbus"
	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// CourseService 课程编辑入口。SaveCourse 是树形调和的编排器，
// 其余方法是常规读写。
type CourseService struct {
	cfg   *config.Config
	db    *gorm.DB
	bus   *eventbus.CourseEventBus
	store storage.Store
	authz *AuthzService

	courseRepo   repository.CourseRepository
	sectionRepo  repository.SectionRepository
	chapterRepo  repository.ChapterRepository
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	choiceRepo   repository.ChoiceRepository
	refRepo      repository.ReferenceRepository
}

func NewCourseService(
	cfg *config.Config,
	db *gorm.DB,
	bus *eventbus.CourseEventBus,
	store storage.Store,
	authz *AuthzService,
	courseRepo repository.CourseRepository,
	sectionRepo repository.SectionRepository,
	chapterRepo repository.ChapterRepository,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	choiceRepo repository.ChoiceRepository,
	refRepo repository.ReferenceRepository,
) *CourseService {
	return &CourseService{
		cfg:          cfg,
		db:           db,
		bus:          bus,
		store:        store,
		authz:        authz,
		courseRepo:   courseRepo,
		sectionRepo:  sectionRepo,
		chapterRepo:  chapterRepo,
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		choiceRepo:   choiceRepo,
		refRepo:      refRepo,
	}
}

// GetTree 获取完整课程树
func (s *CourseService) GetTree(id uint) (*model.Course, error) {
	return s.courseRepo.GetTree(id)
}

// ListByTeacher 教师名下课程列表
func (s *CourseService) ListByTeacher(teacherID uint) ([]model.Course, error) {
	return s.courseRepo.ListByTeacher(teacherID)
}

// Delete 删除课程及全部子级，提交后清理名下资产文件
func (s *CourseService) Delete(ctx context.Context, teacherID, courseID uint) error {
	owns, err := s.authz.OwnsCourse(teacherID, courseID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrNotCourseOwner
	}

	paths, err := s.courseRepo.AssetPaths(courseID)
	if err != nil {
		return err
	}

	if err := s.courseRepo.Delete(courseID); err != nil {
		return err
	}

	if err := s.bus.Publish(ctx, eventbus.CourseEventDeleted, eventbus.CourseEvent{
		Type: eventbus.CourseEventDeleted, CourseID: courseID, TeacherID: teacherID,
	}); err != nil {
		klog.V(6).Infof("课程删除事件发布失败: courseID=%d, error=%v", courseID, err)
	}
	if len(paths) > 0 {
		if err := s.bus.Publish(ctx, eventbus.CourseEventAssetCleanup, eventbus.CourseEvent{
			Type: eventbus.CourseEventAssetCleanup, CourseID: courseID, AssetPaths: paths,
		}); err != nil {
			klog.V(6).Infof("资产清理事件发布失败: courseID=%d, error=%v", courseID, err)
		}
	}
	return nil
}

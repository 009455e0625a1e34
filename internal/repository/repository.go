package repository

import (
	"errors"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// 所有 Repository 都提供 WithTx，把同一套接口绑定到调用方的事务上。
// 保存流程的一次调和全程跑在一个事务里，靠它保证原子性。

type CourseRepository interface {
	WithTx(tx *gorm.DB) CourseRepository
	Create(course *model.Course) error
	Save(course *model.Course) error
	GetBasic(id uint) (*model.Course, error)
	GetTree(id uint) (*model.Course, error)
	ListByTeacher(teacherID uint) ([]model.Course, error)
	Delete(id uint) error
	AssetPaths(id uint) ([]string, error)
}

type SectionRepository interface {
	WithTx(tx *gorm.DB) SectionRepository
	IDsByCourse(courseID uint) ([]uint, error)
	BelongsToCourse(id, courseID uint) (bool, error)
	Create(section *model.Section) error
	Update(section *model.Section) error
	DeleteBatch(ids []uint) error
	AssetPathsByIDs(ids []uint) ([]string, error)
	GetByCourse(courseID uint) ([]model.Section, error)
}

type ChapterRepository interface {
	WithTx(tx *gorm.DB) ChapterRepository
	IDsByCourse(courseID uint) ([]uint, error)
	BelongsToCourse(id, courseID uint) (bool, error)
	Get(id uint) (*model.Chapter, error)
	Create(chapter *model.Chapter) error
	Update(chapter *model.Chapter) error
	DeleteBatch(ids []uint) error
	VideoPathsByIDs(ids []uint) ([]string, error)
}

type QuizRepository interface {
	WithTx(tx *gorm.DB) QuizRepository
	IDsByCourse(courseID uint) ([]uint, error)
	BelongsToCourse(id, courseID uint) (bool, error)
	Create(quiz *model.Quiz) error
	Update(quiz *model.Quiz) error
	DeleteBatch(ids []uint) error
	AudioPathsByIDs(ids []uint) ([]string, error)
}

type QuestionRepository interface {
	WithTx(tx *gorm.DB) QuestionRepository
	IDsByQuiz(quizID uint) ([]uint, error)
	BelongsToQuiz(id, quizID uint) (bool, error)
	Get(id uint) (*model.Question, error)
	Create(question *model.Question) error
	Update(question *model.Question) error
	DeleteBatch(ids []uint) error
	AudioPathsByIDs(ids []uint) ([]string, error)
}

type ChoiceRepository interface {
	WithTx(tx *gorm.DB) ChoiceRepository
	IDsByQuestion(questionID uint) ([]uint, error)
	BelongsToQuestion(id, questionID uint) (bool, error)
	Create(choice *model.Choice) error
	Update(choice *model.Choice) error
	DeleteBatch(ids []uint) error
}

// ReferenceRepository 参照数据（难度等级、课程分类），只读
type ReferenceRepository interface {
	Levels() ([]model.Level, error)
	Categories() ([]model.Category, error)
	LevelExists(id uint) (bool, error)
	CategoryExists(id uint) (bool, error)
}

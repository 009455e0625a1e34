package repository

import (
	"errors"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) WithTx(tx *gorm.DB) CourseRepository {
	return &courseRepository{db: tx}
}

func (r *courseRepository) Create(course *model.Course) error {
	return r.db.Create(course).Error
}

func (r *courseRepository) Save(course *model.Course) error {
	return r.db.Save(course).Error
}

func (r *courseRepository) GetBasic(id uint) (*model.Course, error) {
	var course model.Course
	result := r.db.First(&course, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &course, nil
}

// GetTree 获取完整课程树，子级统一按 order_index、id 排序
func (r *courseRepository) GetTree(id uint) (*model.Course, error) {
	ordered := func(db *gorm.DB) *gorm.DB {
		return db.Order("order_index ASC, id ASC")
	}
	var course model.Course
	result := r.db.
		Preload("Sections", ordered).
		Preload("Sections.Chapters", ordered).
		Preload("Sections.Quizzes", ordered).
		Preload("Sections.Quizzes.Questions", ordered).
		Preload("Sections.Quizzes.Questions.Choices", ordered).
		First(&course, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &course, nil
}

func (r *courseRepository) ListByTeacher(teacherID uint) ([]model.Course, error) {
	var courses []model.Course
	result := r.db.Where("teacher_id = ?", teacherID).
		Order("updated_at DESC").
		Find(&courses)
	return courses, result.Error
}

// Delete 删除课程及其全部子级。先删子后删父，事务内不会出现孤儿行。
func (r *courseRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		sectionIDs := tx.Model(&model.Section{}).Select("id").Where("course_id = ?", id)
		quizIDs := tx.Model(&model.Quiz{}).Select("id").Where("section_id IN (?)", sectionIDs)
		questionIDs := tx.Model(&model.Question{}).Select("id").Where("quiz_id IN (?)", quizIDs)

		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&model.Choice{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id IN (?)", quizIDs).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("section_id IN (?)", sectionIDs).Delete(&model.Quiz{}).Error; err != nil {
			return err
		}
		if err := tx.Where("section_id IN (?)", sectionIDs).Delete(&model.Chapter{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

// AssetPaths 收集课程名下所有资产路径（封面、章节视频、发音音频），
// 供删除课程后清理文件使用
func (r *courseRepository) AssetPaths(id uint) ([]string, error) {
	var paths []string

	var imagePath string
	if err := r.db.Model(&model.Course{}).Select("image_path").Where("id = ?", id).Scan(&imagePath).Error; err != nil {
		return nil, err
	}
	if imagePath != "" {
		paths = append(paths, imagePath)
	}

	sectionIDs := r.db.Model(&model.Section{}).Select("id").Where("course_id = ?", id)

	var videoPaths []string
	if err := r.db.Model(&model.Chapter{}).
		Where("section_id IN (?) AND video_file_path IS NOT NULL AND video_file_path <> ''", sectionIDs).
		Pluck("video_file_path", &videoPaths).Error; err != nil {
		return nil, err
	}
	paths = append(paths, videoPaths...)

	quizIDs := r.db.Model(&model.Quiz{}).Select("id").Where("section_id IN (?)", sectionIDs)
	var audioPaths []string
	if err := r.db.Model(&model.Question{}).
		Where("quiz_id IN (?) AND audio_path IS NOT NULL AND audio_path <> ''", quizIDs).
		Pluck("audio_path", &audioPaths).Error; err != nil {
		return nil, err
	}
	paths = append(paths, audioPaths...)

	return paths, nil
}

package repository

import (
	"time"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) WithTx(tx *gorm.DB) QuizRepository {
	return &quizRepository{db: tx}
}

func (r *quizRepository) IDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Quiz{}).
		Joins("JOIN sections ON sections.id = quizzes.section_id").
		Where("sections.course_id = ?", courseID).
		Pluck("quizzes.id", &ids).Error
	return ids, err
}

func (r *quizRepository) BelongsToCourse(id, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Quiz{}).
		Joins("JOIN sections ON sections.id = quizzes.section_id").
		Where("quizzes.id = ? AND sections.course_id = ?", id, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	return r.db.Create(quiz).Error
}

func (r *quizRepository) Update(quiz *model.Quiz) error {
	return r.db.Model(&model.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]interface{}{
			"section_id":    quiz.SectionID,
			"title":         quiz.Title,
			"description":   quiz.Description,
			"max_retakes":   quiz.MaxRetakes,
			"passing_score": quiz.PassingScore,
			"total_points":  quiz.TotalPoints,
			"order_index":   quiz.OrderIndex,
			"updated_at":    time.Now(),
		}).Error
}

// AudioPathsByIDs 收集指定测验下题目的音频路径，供级联删除后清理
func (r *quizRepository) AudioPathsByIDs(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.db.Model(&model.Question{}).
		Where("quiz_id IN ? AND audio_path IS NOT NULL AND audio_path <> ''", ids).
		Pluck("audio_path", &paths).Error
	return paths, err
}

// DeleteBatch 批量删除测验，级联删除题目与选项（先删子后删父）
func (r *quizRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	questionIDs := r.db.Model(&model.Question{}).Select("id").Where("quiz_id IN ?", ids)

	if err := r.db.Where("question_id IN (?)", questionIDs).Delete(&model.Choice{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("quiz_id IN ?", ids).Delete(&model.Question{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Quiz{}).Error
}

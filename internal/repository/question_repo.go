package repository

import (
	"errors"
	"time"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) WithTx(tx *gorm.DB) QuestionRepository {
	return &questionRepository{db: tx}
}

func (r *questionRepository) IDsByQuiz(quizID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Question{}).Where("quiz_id = ?", quizID).Pluck("id", &ids).Error
	return ids, err
}

func (r *questionRepository) BelongsToQuiz(id, quizID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Question{}).
		Where("id = ? AND quiz_id = ?", id, quizID).
		Count(&count).Error
	return count > 0, err
}

func (r *questionRepository) Get(id uint) (*model.Question, error) {
	var question model.Question
	result := r.db.First(&question, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &question, nil
}

func (r *questionRepository) Create(question *model.Question) error {
	return r.db.Create(question).Error
}

func (r *questionRepository) Update(question *model.Question) error {
	return r.db.Model(&model.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"question_type": question.QuestionType,
			"content":       question.Content,
			"audio_path":    question.AudioPath,
			"score":         question.Score,
			"order_index":   question.OrderIndex,
			"updated_at":    time.Now(),
		}).Error
}

// DeleteBatch 批量删除题目，先删选项
func (r *questionRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("question_id IN ?", ids).Delete(&model.Choice{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Question{}).Error
}

// AudioPathsByIDs 返回指定题目中已落盘的音频路径，供提交后清理
func (r *questionRepository) AudioPathsByIDs(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.db.Model(&model.Question{}).
		Where("id IN ? AND audio_path IS NOT NULL AND audio_path <> ''", ids).
		Pluck("audio_path", &paths).Error
	return paths, err
}

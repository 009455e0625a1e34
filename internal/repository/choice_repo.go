package repository

import (
	"time"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type choiceRepository struct {
	db *gorm.DB
}

func NewChoiceRepository(db *gorm.DB) ChoiceRepository {
	return &choiceRepository{db: db}
}

func (r *choiceRepository) WithTx(tx *gorm.DB) ChoiceRepository {
	return &choiceRepository{db: tx}
}

func (r *choiceRepository) IDsByQuestion(questionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Choice{}).Where("question_id = ?", questionID).Pluck("id", &ids).Error
	return ids, err
}

func (r *choiceRepository) BelongsToQuestion(id, questionID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Choice{}).
		Where("id = ? AND question_id = ?", id, questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *choiceRepository) Create(choice *model.Choice) error {
	return r.db.Create(choice).Error
}

func (r *choiceRepository) Update(choice *model.Choice) error {
	return r.db.Model(&model.Choice{}).
		Where("id = ?", choice.ID).
		Updates(map[string]interface{}{
			"text":        choice.Text,
			"is_correct":  choice.IsCorrect,
			"order_index": choice.OrderIndex,
			"updated_at":  time.Now(),
		}).Error
}

func (r *choiceRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Choice{}).Error
}

package repository

import (
	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type referenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) Levels() ([]model.Level, error) {
	var levels []model.Level
	result := r.db.Order("sort_order ASC").Find(&levels)
	return levels, result.Error
}

func (r *referenceRepository) Categories() ([]model.Category, error) {
	var categories []model.Category
	result := r.db.Order("id ASC").Find(&categories)
	return categories, result.Error
}

func (r *referenceRepository) LevelExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Level{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *referenceRepository) CategoryExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

package service

import (
	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/repository"
)

// CatalogService 参照数据读取（难度等级、课程分类）
type CatalogService struct {
	refRepo repository.ReferenceRepository
}

func NewCatalogService(refRepo repository.ReferenceRepository) *CatalogService {
	return &CatalogService{refRepo: refRepo}
}

func (s *CatalogService) Levels() ([]model.Level, error) {
	return s.refRepo.Levels()
}

func (s *CatalogService) Categories() ([]model.Category, error) {
	return s.refRepo.Categories()
}

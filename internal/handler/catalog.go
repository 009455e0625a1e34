package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sakuralearn/backend/internal/service"
)

type CatalogHandler struct {
	service *service.CatalogService
}

func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Levels 难度等级列表
func (h *CatalogHandler) Levels(c *gin.Context) {
	levels, err := h.service.Levels()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list levels failed"})
		return
	}
	c.JSON(http.StatusOK, levels)
}

// Categories 课程分类列表
func (h *CatalogHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

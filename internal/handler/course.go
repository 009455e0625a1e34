package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sakuralearn/backend/internal/domain"
	"github.com/sakuralearn/backend/internal/middleware"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"github.com/sakuralearn/backend/internal/service"
	"k8s.io/klog/v2"
)

type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler 创建课程处理器
func NewCourseHandler(service *service.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// Create 新建课程（一次保存 = 一份快照，POST /api/courses）
func (h *CourseHandler) Create(c *gin.Context) {
	h.save(c, 0)
}

// Save 编辑已有课程（PUT /api/courses/:id）
func (h *CourseHandler) Save(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}
	h.save(c, uint(id))
}

// save 解析 multipart 请求（payload 字段为快照 JSON，其余文件字段
// 按快照里的 upload key 引用），交给保存流程。
func (h *CourseHandler) save(c *gin.Context, courseID uint) {
	teacherID := middleware.TeacherID(c)
	if teacherID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var snapshot domain.CourseSnapshot
	files := make(map[string]storage.Upload)

	if payload := c.PostForm("payload"); payload != "" {
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload: " + err.Error()})
			return
		}
		form, err := c.MultipartForm()
		if err == nil && form != nil {
			for key, headers := range form.File {
				if len(headers) == 0 {
					continue
				}
				fh := headers[0]
				f, err := fh.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload " + key})
					return
				}
				defer f.Close()
				files[key] = storage.Upload{Filename: fh.Filename, Size: fh.Size, Reader: f}
			}
		}
	} else {
		// 无文件时允许纯 JSON 提交
		if err := c.ShouldBindJSON(&snapshot); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload: " + err.Error()})
			return
		}
	}

	result, err := h.service.SaveCourse(c.Request.Context(), service.SaveRequest{
		TeacherID: teacherID,
		CourseID:  courseID,
		Snapshot:  snapshot,
		Files:     files,
	})
	if err != nil {
		h.saveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"course_id": result.CourseID,
		"status":    result.Status,
	})
}

// saveError 把保存错误映射为一条用户可读消息，存储层细节不外泄
func (h *CourseHandler) saveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSnapshot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case storage.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotCourseOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not own this course"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
	default:
		klog.Errorf("课程保存失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
	}
}

// Get 获取完整课程树
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	course, err := h.service.GetTree(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	c.JSON(http.StatusOK, course)
}

// List 当前教师名下课程列表
func (h *CourseHandler) List(c *gin.Context) {
	teacherID := middleware.TeacherID(c)
	if teacherID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	courses, err := h.service.ListByTeacher(teacherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, courses)
}

// Delete 删除课程及全部子级
func (h *CourseHandler) Delete(c *gin.Context) {
	teacherID := middleware.TeacherID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), teacherID, uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrNotCourseOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "you do not own this course"})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		default:
			klog.Errorf("课程删除失败: courseID=%d, error=%v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

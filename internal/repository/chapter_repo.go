package repository

import (
	"errors"
	"time"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type chapterRepository struct {
	db *gorm.DB
}

func NewChapterRepository(db *gorm.DB) ChapterRepository {
	return &chapterRepository{db: db}
}

func (r *chapterRepository) WithTx(tx *gorm.DB) ChapterRepository {
	return &chapterRepository{db: tx}
}

// IDsByCourse 课程下全部章节 id（经小节关联）。
// 章节的调和范围是整个课程，而不是单个小节。
func (r *chapterRepository) IDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Chapter{}).
		Joins("JOIN sections ON sections.id = chapters.section_id").
		Where("sections.course_id = ?", courseID).
		Pluck("chapters.id", &ids).Error
	return ids, err
}

func (r *chapterRepository) BelongsToCourse(id, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Chapter{}).
		Joins("JOIN sections ON sections.id = chapters.section_id").
		Where("chapters.id = ? AND sections.course_id = ?", id, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *chapterRepository) Get(id uint) (*model.Chapter, error) {
	var chapter model.Chapter
	result := r.db.First(&chapter, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &chapter, nil
}

func (r *chapterRepository) Create(chapter *model.Chapter) error {
	return r.db.Create(chapter).Error
}

// Update 只更新调和涉及的列。视频三列作为一个判别联合整体写入：
// video_mode 决定 url 与 file 哪个有效，另一个必须为 NULL。
func (r *chapterRepository) Update(chapter *model.Chapter) error {
	return r.db.Model(&model.Chapter{}).
		Where("id = ?", chapter.ID).
		Updates(map[string]interface{}{
			"section_id":      chapter.SectionID,
			"title":           chapter.Title,
			"content_type":    chapter.ContentType,
			"content":         chapter.Content,
			"video_mode":      chapter.VideoMode,
			"video_url":       chapter.VideoURL,
			"video_file_path": chapter.VideoFilePath,
			"video_copyright": chapter.VideoCopyright,
			"order_index":     chapter.OrderIndex,
			"updated_at":      time.Now(),
		}).Error
}

func (r *chapterRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Chapter{}).Error
}

// VideoPathsByIDs 返回指定章节中已落盘的视频文件路径，供提交后清理
func (r *chapterRepository) VideoPathsByIDs(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var paths []string
	err := r.db.Model(&model.Chapter{}).
		Where("id IN ? AND video_file_path IS NOT NULL AND video_file_path <> ''", ids).
		Pluck("video_file_path", &paths).Error
	return paths, err
}

package repository

import (
	"time"

	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/gorm"
)

type sectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) WithTx(tx *gorm.DB) SectionRepository {
	return &sectionRepository{db: tx}
}

func (r *sectionRepository) IDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Section{}).Where("course_id = ?", courseID).Pluck("id", &ids).Error
	return ids, err
}

func (r *sectionRepository) BelongsToCourse(id, courseID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Section{}).
		Where("id = ? AND course_id = ?", id, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *sectionRepository) Create(section *model.Section) error {
	return r.db.Create(section).Error
}

// Update 只更新调和涉及的列，不触碰 created_at 等其余字段
func (r *sectionRepository) Update(section *model.Section) error {
	return r.db.Model(&model.Section{}).
		Where("id = ?", section.ID).
		Updates(map[string]interface{}{
			"title":       section.Title,
			"description": section.Description,
			"order_index": section.OrderIndex,
			"updated_at":  time.Now(),
		}).Error
}

// DeleteBatch 批量删除小节，级联删除其下章节、测验、题目与选项。
// 删除顺序从叶到根，保证事务中途不会出现孤儿行。
func (r *sectionRepository) DeleteBatch(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	quizIDs := r.db.Model(&model.Quiz{}).Select("id").Where("section_id IN ?", ids)
	questionIDs := r.db.Model(&model.Question{}).Select("id").Where("quiz_id IN (?)", quizIDs)

	if err := r.db.Where("question_id IN (?)", questionIDs).Delete(&model.Choice{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("quiz_id IN (?)", quizIDs).Delete(&model.Question{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("section_id IN ?", ids).Delete(&model.Quiz{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("section_id IN ?", ids).Delete(&model.Chapter{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&model.Section{}).Error
}

// AssetPathsByIDs 收集指定小节下全部资产路径（章节视频、题目音频），
// 供级联删除后清理文件使用
func (r *sectionRepository) AssetPathsByIDs(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var paths []string

	var videoPaths []string
	if err := r.db.Model(&model.Chapter{}).
		Where("section_id IN ? AND video_file_path IS NOT NULL AND video_file_path <> ''", ids).
		Pluck("video_file_path", &videoPaths).Error; err != nil {
		return nil, err
	}
	paths = append(paths, videoPaths...)

	quizIDs := r.db.Model(&model.Quiz{}).Select("id").Where("section_id IN ?", ids)
	var audioPaths []string
	if err := r.db.Model(&model.Question{}).
		Where("quiz_id IN (?) AND audio_path IS NOT NULL AND audio_path <> ''", quizIDs).
		Pluck("audio_path", &audioPaths).Error; err != nil {
		return nil, err
	}
	paths = append(paths, audioPaths...)

	return paths, nil
}

func (r *sectionRepository) GetByCourse(courseID uint) ([]model.Section, error) {
	var sections []model.Section
	result := r.db.Where("course_id = ?", courseID).
		Order("order_index ASC, id ASC").
		Find(&sections)
	return sections, result.Error
}

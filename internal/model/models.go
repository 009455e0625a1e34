package model

import (
	"time"

	"gorm.io/datatypes"
)

// 课程状态
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
)

// 章节视频模式：三选一，url 与 file 互斥
const (
	VideoModeNone = "none"
	VideoModeURL  = "url"
	VideoModeFile = "file"
)

type Course struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	TeacherID   uint       `json:"teacher_id" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"size:2000"`
	LevelID     uint       `json:"level_id" gorm:"index;not null"`
	CategoryID  uint       `json:"category_id" gorm:"index;not null"`
	Price       float64    `json:"price" gorm:"default:0"`
	Status      string     `json:"status" gorm:"size:20;default:draft"` // draft, published
	ImagePath   string     `json:"image_path" gorm:"size:500"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Sections    []Section  `json:"sections,omitempty" gorm:"foreignKey:CourseID"`
}

type Section struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CourseID    uint      `json:"course_id" gorm:"index;not null"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"size:1000"`
	OrderIndex  int       `json:"order_index" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Chapters    []Chapter `json:"chapters,omitempty" gorm:"foreignKey:SectionID"`
	Quizzes     []Quiz    `json:"quizzes,omitempty" gorm:"foreignKey:SectionID"`
}

type Chapter struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	SectionID      uint      `json:"section_id" gorm:"index;not null"`
	Title          string    `json:"title" gorm:"size:255;not null"`
	ContentType    string    `json:"content_type" gorm:"size:50"`
	Content        string    `json:"content" gorm:"type:text"`
	VideoMode      string    `json:"video_mode" gorm:"size:10;default:none"` // none, url, file
	VideoURL       *string   `json:"video_url" gorm:"size:500"`
	VideoFilePath  *string   `json:"video_file_path" gorm:"size:500"`
	VideoCopyright string    `json:"video_copyright" gorm:"size:255"`
	OrderIndex     int       `json:"order_index" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Quiz struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	SectionID    uint       `json:"section_id" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"size:255;not null"`
	Description  string     `json:"description" gorm:"size:1000"`
	MaxRetakes   int        `json:"max_retakes" gorm:"default:0"`
	PassingScore int        `json:"passing_score" gorm:"default:0"`
	TotalPoints  int        `json:"total_points" gorm:"default:0"`
	OrderIndex   int        `json:"order_index" gorm:"default:0"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Questions    []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// Question 题目。类型相关字段统一放在 Content JSON 列中，
// 由 domain.QuestionContent 负责结构化与校验。
type Question struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	QuizID       uint           `json:"quiz_id" gorm:"index;not null"`
	QuestionType string         `json:"question_type" gorm:"size:30;not null"`
	Content      datatypes.JSON `json:"content"`
	AudioPath    *string        `json:"audio_path" gorm:"size:500"`
	Score        int            `json:"score" gorm:"default:0"`
	OrderIndex   int            `json:"order_index" gorm:"default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Choices      []Choice       `json:"choices,omitempty" gorm:"foreignKey:QuestionID"`
}

type Choice struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	QuestionID uint      `json:"question_id" gorm:"index;not null"`
	Text       string    `json:"text" gorm:"size:500;not null"`
	IsCorrect  bool      `json:"is_correct" gorm:"default:false"`
	OrderIndex int       `json:"order_index" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Level 难度等级（参照数据，只读）
type Level struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Code      string `json:"code" gorm:"size:10;uniqueIndex;not null"` // N5..N1
	Name      string `json:"name" gorm:"size:100;not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}

// Category 课程分类（参照数据，只读）
type Category struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;uniqueIndex;not null"`
}

package domain

import (
	"fmt"
	"strings"

	"github.com/sakuralearn/backend/internal/service/reconcile"
)

// CourseSnapshot 客户端提交的整棵内容树快照。
// sections、chapters、quizzes 是课程级的三个平级列表，
// 章节与测验通过 section_id（可能是占位符）挂到小节上；
// questions/choices 再嵌套两层。
type CourseSnapshot struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	LevelID        uint              `json:"level_id"`
	CategoryID     uint              `json:"category_id"`
	Price          float64           `json:"price"`
	Status         string            `json:"status"` // draft, published
	ImageUploadKey string            `json:"image_upload_key,omitempty"`
	Sections       []SectionSnapshot `json:"sections"`
	Chapters       []ChapterSnapshot `json:"chapters"`
	Quizzes        []QuizSnapshot    `json:"quizzes"`
}

type SectionSnapshot struct {
	ID          reconcile.EntityRef `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	OrderIndex  int                 `json:"order_index"`
}

func (s SectionSnapshot) Ref() reconcile.EntityRef { return s.ID }

// Validate 入库门槛：标题非空
func (s SectionSnapshot) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("section requires a title")
	}
	return nil
}

type ChapterSnapshot struct {
	ID             reconcile.EntityRef `json:"id"`
	SectionID      reconcile.EntityRef `json:"section_id"`
	Title          string              `json:"title"`
	ContentType    string              `json:"content_type"`
	Content        string              `json:"content"`
	VideoMode      string              `json:"video_mode"` // none, url, file
	VideoURL       string              `json:"video_url"`
	VideoCopyright string              `json:"video_copyright"`
	VideoUploadKey string              `json:"video_upload_key,omitempty"`
	OrderIndex     int                 `json:"order_index"`
}

func (c ChapterSnapshot) Ref() reconcile.EntityRef { return c.ID }

func (c ChapterSnapshot) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("chapter requires a title")
	}
	return nil
}

type QuizSnapshot struct {
	ID           reconcile.EntityRef `json:"id"`
	SectionID    reconcile.EntityRef `json:"section_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	MaxRetakes   int                 `json:"max_retakes"`
	PassingScore int                 `json:"passing_score"`
	TotalPoints  int                 `json:"total_points"`
	OrderIndex   int                 `json:"order_index"`
	Questions    []QuestionSnapshot  `json:"questions"`
}

func (q QuizSnapshot) Ref() reconcile.EntityRef { return q.ID }

func (q QuizSnapshot) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("quiz requires a title")
	}
	return nil
}

type QuestionSnapshot struct {
	ID             reconcile.EntityRef `json:"id"`
	Content        QuestionContent     `json:"content"`
	Score          int                 `json:"score"`
	OrderIndex     int                 `json:"order_index"`
	AudioUploadKey string              `json:"audio_upload_key,omitempty"`
	Choices        []ChoiceSnapshot    `json:"choices"`
}

func (q QuestionSnapshot) Ref() reconcile.EntityRef { return q.ID }

// Validate 按题型分派到内容校验
func (q QuestionSnapshot) Validate() error {
	return q.Content.Validate()
}

type ChoiceSnapshot struct {
	ID         reconcile.EntityRef `json:"id"`
	Text       string              `json:"text"`
	IsCorrect  bool                `json:"is_correct"`
	OrderIndex int                 `json:"order_index"`
}

func (c ChoiceSnapshot) Ref() reconcile.EntityRef { return c.ID }

func (c ChoiceSnapshot) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("choice requires text")
	}
	return nil
}

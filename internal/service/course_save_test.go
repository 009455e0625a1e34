package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sakuralearn/backend/config"
	"github.com/sakuralearn/backend/internal/domain"
	"github.com/sakuralearn/backend/internal/eventbus"
	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/pkg/database"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"github.com/sakuralearn/backend/internal/service/reconcile"
	"gorm.io/gorm"
)

// stubStore 内存资产存储，记录落盘与删除调用
type stubStore struct {
	nextID  int
	stored  []string
	deleted []string
}

func (s *stubStore) Store(up storage.Upload, allowedExts []string, maxSize int64) (string, error) {
	ext := ""
	if i := strings.LastIndex(up.Filename, "."); i >= 0 {
		ext = strings.ToLower(up.Filename[i:])
	}
	allowed := false
	for _, a := range allowedExts {
		if ext == a {
			allowed = true
		}
	}
	if !allowed {
		return "", &storage.ValidationError{Reason: fmt.Sprintf("file type %q not allowed", ext)}
	}
	if maxSize > 0 && up.Size > maxSize {
		return "", &storage.ValidationError{Reason: fmt.Sprintf("file exceeds size limit of %d bytes", maxSize)}
	}
	s.nextID++
	path := fmt.Sprintf("asset-%d%s", s.nextID, ext)
	s.stored = append(s.stored, path)
	return path, nil
}

func (s *stubStore) Delete(relPath string) error {
	s.deleted = append(s.deleted, relPath)
	return nil
}

type saveTestEnv struct {
	db           *gorm.DB
	service      *CourseService
	store        *stubStore
	bus          *eventbus.CourseEventBus
	cleanupPaths []string
}

func newSaveTestEnv(t *testing.T) *saveTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	if err := db.Create(&model.Level{Code: "N5", Name: "入门", SortOrder: 1}).Error; err != nil {
		t.Fatalf("seed level error: %v", err)
	}
	if err := db.Create(&model.Category{Name: "词汇"}).Error; err != nil {
		t.Fatalf("seed category error: %v", err)
	}

	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxImageBytes: 1 << 20,
			MaxVideoBytes: 1 << 20,
			MaxAudioBytes: 1024,
		},
	}
	store := &stubStore{}
	bus := eventbus.NewCourseEventBus()

	env := &saveTestEnv{db: db, store: store, bus: bus}
	bus.Subscribe(eventbus.CourseEventAssetCleanup, func(ctx context.Context, event eventbus.CourseEvent) error {
		env.cleanupPaths = append(env.cleanupPaths, event.AssetPaths...)
		return nil
	})

	courseRepo := repository.NewCourseRepository(db)
	env.service = NewCourseService(cfg, db, bus, store, NewAuthzService(courseRepo),
		courseRepo,
		repository.NewSectionRepository(db),
		repository.NewChapterRepository(db),
		repository.NewQuizRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewChoiceRepository(db),
		repository.NewReferenceRepository(db),
	)
	return env
}

func pronunciationContent(word, romaji, meaning string) domain.QuestionContent {
	return domain.QuestionContent{
		Type:          domain.QuestionPronunciation,
		Pronunciation: &domain.PronunciationContent{Word: word, Romaji: romaji, Meaning: meaning},
	}
}

func multipleChoiceContent(prompt string) domain.QuestionContent {
	return domain.QuestionContent{
		Type:           domain.QuestionMultipleChoice,
		MultipleChoice: &domain.MultipleChoiceContent{Prompt: prompt},
	}
}

// fullSnapshot 两个占位符小节：一个挂章节，一个挂带两道题的测验
func fullSnapshot() domain.CourseSnapshot {
	return domain.CourseSnapshot{
		Title:      "日语入门",
		LevelID:    1,
		CategoryID: 1,
		Status:     model.CourseStatusDraft,
		Sections: []domain.SectionSnapshot{
			{ID: reconcile.PendingRef("sec_1"), Title: "第一课", OrderIndex: 1},
			{ID: reconcile.PendingRef("sec_2"), Title: "第二课", OrderIndex: 2},
		},
		Chapters: []domain.ChapterSnapshot{
			{
				ID:        reconcile.PendingRef("ch_1"),
				SectionID: reconcile.PendingRef("sec_1"),
				Title:     "挨拶",
				VideoMode: model.VideoModeURL,
				VideoURL:  "https://example.com/aisatsu",
			},
		},
		Quizzes: []domain.QuizSnapshot{
			{
				ID:        reconcile.PendingRef("qz_1"),
				SectionID: reconcile.PendingRef("sec_2"),
				Title:     "第二课测验",
				Questions: []domain.QuestionSnapshot{
					{
						ID:      reconcile.PendingRef("q_1"),
						Content: multipleChoiceContent("「ねこ」是什么意思？"),
						Score:   5,
						Choices: []domain.ChoiceSnapshot{
							{ID: reconcile.PendingRef("c_1"), Text: "猫", IsCorrect: true},
							{ID: reconcile.PendingRef("c_2"), Text: "狗"},
						},
					},
					{
						ID:      reconcile.PendingRef("q_2"),
						Content: pronunciationContent("猫", "neko", "猫"),
						Score:   5,
					},
				},
			},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(m).Count(&count).Error; err != nil {
		t.Fatalf("count error: %v", err)
	}
	return count
}

func TestSaveCourseCreatesTreeWithPlaceholders(t *testing.T) {
	env := newSaveTestEnv(t)

	result, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1,
		Snapshot:  fullSnapshot(),
	})
	if err != nil {
		t.Fatalf("SaveCourse error: %v", err)
	}
	if result.CourseID == 0 {
		t.Fatalf("expected new course id")
	}

	tree, err := env.service.GetTree(result.CourseID)
	if err != nil {
		t.Fatalf("GetTree error: %v", err)
	}
	if len(tree.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(tree.Sections))
	}
	// 章节挂在 sec_1，测验挂在 sec_2，占位符父引用已解析成真实外键
	if len(tree.Sections[0].Chapters) != 1 || tree.Sections[0].Chapters[0].Title != "挨拶" {
		t.Fatalf("chapter not under first section: %+v", tree.Sections[0].Chapters)
	}
	if len(tree.Sections[1].Quizzes) != 1 {
		t.Fatalf("quiz not under second section: %+v", tree.Sections[1].Quizzes)
	}
	quiz := tree.Sections[1].Quizzes[0]
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if len(quiz.Questions[0].Choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(quiz.Questions[0].Choices))
	}

	// 全部结果都应是 persisted
	for _, o := range result.Outcomes {
		if o.Status != reconcile.OutcomePersisted {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}
}

func TestSaveCourseResaveIsIdempotent(t *testing.T) {
	env := newSaveTestEnv(t)

	first, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: fullSnapshot()})
	if err != nil {
		t.Fatalf("first save error: %v", err)
	}

	tree, err := env.service.GetTree(first.CourseID)
	if err != nil {
		t.Fatalf("GetTree error: %v", err)
	}

	// 用持久化 id 重建同一份快照再存一次
	snapshot := fullSnapshot()
	snapshot.Sections[0].ID = reconcile.PersistedRef(tree.Sections[0].ID)
	snapshot.Sections[1].ID = reconcile.PersistedRef(tree.Sections[1].ID)
	snapshot.Chapters[0].ID = reconcile.PersistedRef(tree.Sections[0].Chapters[0].ID)
	snapshot.Chapters[0].SectionID = reconcile.PersistedRef(tree.Sections[0].ID)
	quiz := tree.Sections[1].Quizzes[0]
	snapshot.Quizzes[0].ID = reconcile.PersistedRef(quiz.ID)
	snapshot.Quizzes[0].SectionID = reconcile.PersistedRef(tree.Sections[1].ID)
	snapshot.Quizzes[0].Questions[0].ID = reconcile.PersistedRef(quiz.Questions[0].ID)
	snapshot.Quizzes[0].Questions[0].Choices[0].ID = reconcile.PersistedRef(quiz.Questions[0].Choices[0].ID)
	snapshot.Quizzes[0].Questions[0].Choices[1].ID = reconcile.PersistedRef(quiz.Questions[0].Choices[1].ID)
	snapshot.Quizzes[0].Questions[1].ID = reconcile.PersistedRef(quiz.Questions[1].ID)

	second, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1, CourseID: first.CourseID, Snapshot: snapshot,
	})
	if err != nil {
		t.Fatalf("second save error: %v", err)
	}
	if second.CourseID != first.CourseID {
		t.Fatalf("resave must not create a new course")
	}

	if got := countRows(t, env.db, &model.Section{}); got != 2 {
		t.Fatalf("expected 2 sections after resave, got %d", got)
	}
	if got := countRows(t, env.db, &model.Question{}); got != 2 {
		t.Fatalf("expected 2 questions after resave, got %d", got)
	}
	if got := countRows(t, env.db, &model.Choice{}); got != 2 {
		t.Fatalf("expected 2 choices after resave, got %d", got)
	}
}

func TestSaveCourseRemovedSectionDeletesSubtree(t *testing.T) {
	env := newSaveTestEnv(t)

	first, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: fullSnapshot()})
	if err != nil {
		t.Fatalf("first save error: %v", err)
	}
	tree, err := env.service.GetTree(first.CourseID)
	if err != nil {
		t.Fatalf("GetTree error: %v", err)
	}

	// 第二次保存只剩第一课：第二课连同测验、题目、选项整棵消失
	snapshot := fullSnapshot()
	snapshot.Sections = []domain.SectionSnapshot{
		{ID: reconcile.PersistedRef(tree.Sections[0].ID), Title: "第一课", OrderIndex: 1},
	}
	snapshot.Chapters[0].ID = reconcile.PersistedRef(tree.Sections[0].Chapters[0].ID)
	snapshot.Chapters[0].SectionID = reconcile.PersistedRef(tree.Sections[0].ID)
	snapshot.Quizzes = nil

	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1, CourseID: first.CourseID, Snapshot: snapshot,
	}); err != nil {
		t.Fatalf("second save error: %v", err)
	}

	if got := countRows(t, env.db, &model.Section{}); got != 1 {
		t.Fatalf("expected 1 section, got %d", got)
	}
	if got := countRows(t, env.db, &model.Quiz{}); got != 0 {
		t.Fatalf("expected quizzes deleted, got %d", got)
	}
	if got := countRows(t, env.db, &model.Question{}); got != 0 {
		t.Fatalf("expected questions deleted, got %d", got)
	}
	if got := countRows(t, env.db, &model.Choice{}); got != 0 {
		t.Fatalf("expected choices deleted, got %d", got)
	}
}

func TestSaveCourseSkipsIncompleteQuestion(t *testing.T) {
	env := newSaveTestEnv(t)

	snapshot := fullSnapshot()
	// 发音题缺 romaji：该题跳过，其余正常入库
	snapshot.Quizzes[0].Questions[1].Content = pronunciationContent("猫", "", "猫")

	result, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot})
	if err != nil {
		t.Fatalf("SaveCourse error: %v", err)
	}

	if got := countRows(t, env.db, &model.Question{}); got != 1 {
		t.Fatalf("expected 1 question, got %d", got)
	}

	var skipped *reconcile.Outcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Status == reconcile.OutcomeSkipped {
			skipped = &result.Outcomes[i]
		}
	}
	if skipped == nil {
		t.Fatalf("expected a skipped outcome, got %+v", result.Outcomes)
	}
	if skipped.Kind != "question" || skipped.Reason == "" {
		t.Fatalf("unexpected skipped outcome: %+v", skipped)
	}
}

func TestSaveCourseOversizedAudioRollsBack(t *testing.T) {
	env := newSaveTestEnv(t)

	snapshot := fullSnapshot()
	// 第一道题带合法音频，第二道题的音频超限：整个保存回滚
	snapshot.Quizzes[0].Questions[0].Content = pronunciationContent("犬", "inu", "狗")
	snapshot.Quizzes[0].Questions[0].Choices = nil
	snapshot.Quizzes[0].Questions[0].AudioUploadKey = "audio_ok"
	snapshot.Quizzes[0].Questions[1].AudioUploadKey = "audio_big"

	_, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1,
		Snapshot:  snapshot,
		Files: map[string]storage.Upload{
			"audio_ok":  {Filename: "inu.mp3", Size: 512, Reader: strings.NewReader("audio")},
			"audio_big": {Filename: "neko.mp3", Size: 10 << 20, Reader: strings.NewReader("audio")},
		},
	})
	if !storage.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// 数据库无任何残留
	for _, m := range []interface{}{&model.Course{}, &model.Section{}, &model.Quiz{}, &model.Question{}} {
		if got := countRows(t, env.db, m); got != 0 {
			t.Fatalf("expected rollback to leave no %T rows, got %d", m, got)
		}
	}
	// 第一道题已落盘的音频被丢弃
	if len(env.store.stored) != 1 {
		t.Fatalf("expected 1 stored file, got %v", env.store.stored)
	}
	if len(env.store.deleted) != 1 || env.store.deleted[0] != env.store.stored[0] {
		t.Fatalf("expected stored file discarded on rollback: stored=%v deleted=%v", env.store.stored, env.store.deleted)
	}
	// 回滚路径上不发布清理事件
	if len(env.cleanupPaths) != 0 {
		t.Fatalf("no cleanup event expected on rollback: %v", env.cleanupPaths)
	}
}

func TestSaveCourseRejectsForeignSection(t *testing.T) {
	env := newSaveTestEnv(t)

	// 教师 2 的课程，拿到一个不属于教师 1 课程的小节 id
	other, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 2, Snapshot: fullSnapshot()})
	if err != nil {
		t.Fatalf("seed other course error: %v", err)
	}
	otherTree, err := env.service.GetTree(other.CourseID)
	if err != nil {
		t.Fatalf("GetTree error: %v", err)
	}
	foreignSectionID := otherTree.Sections[0].ID

	snapshot := fullSnapshot()
	snapshot.Chapters[0].SectionID = reconcile.PersistedRef(foreignSectionID)

	_, err = env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot})
	if err == nil {
		t.Fatalf("expected error for foreign section reference")
	}

	// 教师 1 的整次保存回滚，教师 2 的课程不受影响
	if got := countRows(t, env.db, &model.Course{}); got != 1 {
		t.Fatalf("expected only the seeded course, got %d", got)
	}
}

func TestSaveCourseOwnershipEnforced(t *testing.T) {
	env := newSaveTestEnv(t)

	first, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: fullSnapshot()})
	if err != nil {
		t.Fatalf("save error: %v", err)
	}

	_, err = env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 2, CourseID: first.CourseID, Snapshot: fullSnapshot(),
	})
	if !errors.Is(err, ErrNotCourseOwner) {
		t.Fatalf("expected ErrNotCourseOwner, got %v", err)
	}
}

func TestSaveCourseValidatesCourseFields(t *testing.T) {
	env := newSaveTestEnv(t)

	snapshot := fullSnapshot()
	snapshot.Title = "  "
	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for blank title, got %v", err)
	}

	snapshot = fullSnapshot()
	snapshot.LevelID = 99
	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for unknown level, got %v", err)
	}

	snapshot = fullSnapshot()
	snapshot.Status = "archived"
	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for unknown status, got %v", err)
	}
}

func TestSaveCoursePublishStampsOnce(t *testing.T) {
	env := newSaveTestEnv(t)

	snapshot := fullSnapshot()
	snapshot.Status = model.CourseStatusPublished
	first, err := env.service.SaveCourse(context.Background(), SaveRequest{TeacherID: 1, Snapshot: snapshot})
	if err != nil {
		t.Fatalf("save error: %v", err)
	}

	var course model.Course
	if err := env.db.First(&course, first.CourseID).Error; err != nil {
		t.Fatalf("load course error: %v", err)
	}
	if course.PublishedAt == nil {
		t.Fatalf("expected published_at stamped")
	}
	stamped := *course.PublishedAt

	// 再次以 published 保存，时间戳不变
	resave := fullSnapshot()
	resave.Status = model.CourseStatusPublished
	resave.Sections = nil
	resave.Chapters = nil
	resave.Quizzes = nil
	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1, CourseID: first.CourseID, Snapshot: resave,
	}); err != nil {
		t.Fatalf("resave error: %v", err)
	}

	if err := env.db.First(&course, first.CourseID).Error; err != nil {
		t.Fatalf("reload course error: %v", err)
	}
	if course.PublishedAt == nil || !course.PublishedAt.Equal(stamped) {
		t.Fatalf("published_at must not change on republish: %v vs %v", course.PublishedAt, stamped)
	}
}

func TestSaveCourseReplacedVideoCleanedAfterCommit(t *testing.T) {
	env := newSaveTestEnv(t)

	snapshot := fullSnapshot()
	snapshot.Chapters[0].VideoMode = model.VideoModeFile
	snapshot.Chapters[0].VideoURL = ""
	snapshot.Chapters[0].VideoUploadKey = "video_1"

	first, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1,
		Snapshot:  snapshot,
		Files: map[string]storage.Upload{
			"video_1": {Filename: "lesson.mp4", Size: 1024, Reader: strings.NewReader("video")},
		},
	})
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	if len(env.store.stored) != 1 {
		t.Fatalf("expected video stored, got %v", env.store.stored)
	}
	oldVideo := env.store.stored[0]

	// 改为外链视频：旧文件在提交后通过事件清理
	tree, err := env.service.GetTree(first.CourseID)
	if err != nil {
		t.Fatalf("GetTree error: %v", err)
	}
	resave := fullSnapshot()
	resave.Sections[0].ID = reconcile.PersistedRef(tree.Sections[0].ID)
	resave.Sections[1].ID = reconcile.PersistedRef(tree.Sections[1].ID)
	resave.Chapters[0].ID = reconcile.PersistedRef(tree.Sections[0].Chapters[0].ID)
	resave.Chapters[0].SectionID = reconcile.PersistedRef(tree.Sections[0].ID)
	resave.Quizzes = nil

	if _, err := env.service.SaveCourse(context.Background(), SaveRequest{
		TeacherID: 1, CourseID: first.CourseID, Snapshot: resave,
	}); err != nil {
		t.Fatalf("resave error: %v", err)
	}

	found := false
	for _, p := range env.cleanupPaths {
		if p == oldVideo {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected old video in cleanup event, got %v", env.cleanupPaths)
	}
}

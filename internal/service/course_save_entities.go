package service

import (
	"fmt"
	"strings"

	"github.com/sakuralearn/backend/internal/domain"
	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"github.com/sakuralearn/backend/internal/service/assets"
	"github.com/sakuralearn/backend/internal/service/reconcile"
	"gorm.io/datatypes"
)

// 每种实体类型一个 Spec 装配函数。Insert/Update/Delete 闭包绑定在
// 事务内的 Repository 上，外键通过 IDMap 在写入前解析。

func (s *CourseService) reconcileSections(
	sectionRepo repository.SectionRepository,
	coordinator *assets.Coordinator,
	courseID uint,
	incoming []domain.SectionSnapshot,
) (*reconcile.Result, error) {
	persisted, err := sectionRepo.IDsByCourse(courseID)
	if err != nil {
		return nil, err
	}

	spec := reconcile.Spec[domain.SectionSnapshot]{
		Kind: "section",
		Validate: func(snap domain.SectionSnapshot) error {
			return snap.Validate()
		},
		BelongsTo: func(id uint) (bool, error) {
			return sectionRepo.BelongsToCourse(id, courseID)
		},
		Insert: func(snap domain.SectionSnapshot) (uint, error) {
			section := &model.Section{
				CourseID:    courseID,
				Title:       snap.Title,
				Description: snap.Description,
				OrderIndex:  snap.OrderIndex,
			}
			if err := sectionRepo.Create(section); err != nil {
				return 0, err
			}
			return section.ID, nil
		},
		Update: func(id uint, snap domain.SectionSnapshot) error {
			return sectionRepo.Update(&model.Section{
				ID:          id,
				Title:       snap.Title,
				Description: snap.Description,
				OrderIndex:  snap.OrderIndex,
			})
		},
		Delete: func(ids []uint) error {
			// 级联删除会带走章节视频和题目音频，先把路径登记到清理列表
			paths, err := sectionRepo.AssetPathsByIDs(ids)
			if err != nil {
				return err
			}
			coordinator.ScheduleCleanup(paths...)
			return sectionRepo.DeleteBatch(ids)
		},
	}
	return reconcile.Reconcile(spec, persisted, incoming)
}

func (s *CourseService) reconcileChapters(
	chapterRepo repository.ChapterRepository,
	sectionRepo repository.SectionRepository,
	coordinator *assets.Coordinator,
	idMap *reconcile.IDMap,
	courseID uint,
	incoming []domain.ChapterSnapshot,
	files map[string]storage.Upload,
) (*reconcile.Result, error) {
	persisted, err := chapterRepo.IDsByCourse(courseID)
	if err != nil {
		return nil, err
	}

	resolveSection := func(ref reconcile.EntityRef) (uint, error) {
		sectionID, err := idMap.Resolve(ref)
		if err != nil {
			return 0, err
		}
		owned, err := sectionRepo.BelongsToCourse(sectionID, courseID)
		if err != nil {
			return 0, err
		}
		if !owned {
			return 0, fmt.Errorf("section %d does not belong to course %d", sectionID, courseID)
		}
		return sectionID, nil
	}

	spec := reconcile.Spec[domain.ChapterSnapshot]{
		Kind: "chapter",
		Validate: func(snap domain.ChapterSnapshot) error {
			return snap.Validate()
		},
		BelongsTo: func(id uint) (bool, error) {
			return chapterRepo.BelongsToCourse(id, courseID)
		},
		Insert: func(snap domain.ChapterSnapshot) (uint, error) {
			sectionID, err := resolveSection(snap.SectionID)
			if err != nil {
				return 0, err
			}
			mode, videoURL, videoPath, err := s.chapterVideoSlot(snap, "", coordinator, files)
			if err != nil {
				return 0, err
			}
			chapter := &model.Chapter{
				SectionID:      sectionID,
				Title:          snap.Title,
				ContentType:    snap.ContentType,
				Content:        snap.Content,
				VideoMode:      mode,
				VideoURL:       videoURL,
				VideoFilePath:  videoPath,
				VideoCopyright: snap.VideoCopyright,
				OrderIndex:     snap.OrderIndex,
			}
			if err := chapterRepo.Create(chapter); err != nil {
				return 0, err
			}
			return chapter.ID, nil
		},
		Update: func(id uint, snap domain.ChapterSnapshot) error {
			sectionID, err := resolveSection(snap.SectionID)
			if err != nil {
				return err
			}
			existing, err := chapterRepo.Get(id)
			if err != nil {
				return err
			}
			existingPath := ""
			if existing.VideoFilePath != nil {
				existingPath = *existing.VideoFilePath
			}
			mode, videoURL, videoPath, err := s.chapterVideoSlot(snap, existingPath, coordinator, files)
			if err != nil {
				return err
			}
			return chapterRepo.Update(&model.Chapter{
				ID:             id,
				SectionID:      sectionID,
				Title:          snap.Title,
				ContentType:    snap.ContentType,
				Content:        snap.Content,
				VideoMode:      mode,
				VideoURL:       videoURL,
				VideoFilePath:  videoPath,
				VideoCopyright: snap.VideoCopyright,
				OrderIndex:     snap.OrderIndex,
			})
		},
		Delete: func(ids []uint) error {
			paths, err := chapterRepo.VideoPathsByIDs(ids)
			if err != nil {
				return err
			}
			coordinator.ScheduleCleanup(paths...)
			return chapterRepo.DeleteBatch(ids)
		},
	}
	return reconcile.Reconcile(spec, persisted, incoming)
}

// chapterVideoSlot 调和章节的视频槽位。video_mode 是判别字段：
// url 与 file 互斥，另一个必须为 nil。切走 file 模式时旧文件登记清理。
func (s *CourseService) chapterVideoSlot(
	snap domain.ChapterSnapshot,
	existingPath string,
	coordinator *assets.Coordinator,
	files map[string]storage.Upload,
) (mode string, videoURL *string, videoPath *string, err error) {
	switch snap.VideoMode {
	case model.VideoModeURL:
		if existingPath != "" {
			coordinator.ScheduleCleanup(existingPath)
		}
		url := strings.TrimSpace(snap.VideoURL)
		return model.VideoModeURL, &url, nil, nil

	case model.VideoModeFile:
		var upload *storage.Upload
		if snap.VideoUploadKey != "" {
			if up, ok := files[snap.VideoUploadKey]; ok {
				upload = &up
			}
		}
		final, err := coordinator.ReconcileSlot(existingPath, upload, assets.VideoExts, s.cfg.Upload.MaxVideoBytes)
		if err != nil {
			return "", nil, nil, err
		}
		if final == "" {
			return model.VideoModeFile, nil, nil, nil
		}
		return model.VideoModeFile, nil, &final, nil

	default:
		// none 或未知模式一律按无视频处理
		if existingPath != "" {
			coordinator.ScheduleCleanup(existingPath)
		}
		return model.VideoModeNone, nil, nil, nil
	}
}

func (s *CourseService) reconcileQuizzes(
	quizRepo repository.QuizRepository,
	sectionRepo repository.SectionRepository,
	coordinator *assets.Coordinator,
	idMap *reconcile.IDMap,
	courseID uint,
	incoming []domain.QuizSnapshot,
) (*reconcile.Result, error) {
	persisted, err := quizRepo.IDsByCourse(courseID)
	if err != nil {
		return nil, err
	}

	resolveSection := func(ref reconcile.EntityRef) (uint, error) {
		sectionID, err := idMap.Resolve(ref)
		if err != nil {
			return 0, err
		}
		owned, err := sectionRepo.BelongsToCourse(sectionID, courseID)
		if err != nil {
			return 0, err
		}
		if !owned {
			return 0, fmt.Errorf("section %d does not belong to course %d", sectionID, courseID)
		}
		return sectionID, nil
	}

	spec := reconcile.Spec[domain.QuizSnapshot]{
		Kind: "quiz",
		Validate: func(snap domain.QuizSnapshot) error {
			return snap.Validate()
		},
		BelongsTo: func(id uint) (bool, error) {
			return quizRepo.BelongsToCourse(id, courseID)
		},
		Insert: func(snap domain.QuizSnapshot) (uint, error) {
			sectionID, err := resolveSection(snap.SectionID)
			if err != nil {
				return 0, err
			}
			quiz := &model.Quiz{
				SectionID:    sectionID,
				Title:        snap.Title,
				Description:  snap.Description,
				MaxRetakes:   snap.MaxRetakes,
				PassingScore: snap.PassingScore,
				TotalPoints:  snap.TotalPoints,
				OrderIndex:   snap.OrderIndex,
			}
			if err := quizRepo.Create(quiz); err != nil {
				return 0, err
			}
			return quiz.ID, nil
		},
		Update: func(id uint, snap domain.QuizSnapshot) error {
			sectionID, err := resolveSection(snap.SectionID)
			if err != nil {
				return err
			}
			return quizRepo.Update(&model.Quiz{
				ID:           id,
				SectionID:    sectionID,
				Title:        snap.Title,
				Description:  snap.Description,
				MaxRetakes:   snap.MaxRetakes,
				PassingScore: snap.PassingScore,
				TotalPoints:  snap.TotalPoints,
				OrderIndex:   snap.OrderIndex,
			})
		},
		Delete: func(ids []uint) error {
			paths, err := quizRepo.AudioPathsByIDs(ids)
			if err != nil {
				return err
			}
			coordinator.ScheduleCleanup(paths...)
			return quizRepo.DeleteBatch(ids)
		},
	}
	return reconcile.Reconcile(spec, persisted, incoming)
}

func (s *CourseService) reconcileQuestions(
	questionRepo repository.QuestionRepository,
	coordinator *assets.Coordinator,
	quizID uint,
	incoming []domain.QuestionSnapshot,
	files map[string]storage.Upload,
) (*reconcile.Result, error) {
	persisted, err := questionRepo.IDsByQuiz(quizID)
	if err != nil {
		return nil, err
	}

	// 发音题的音频槽位；其他题型忽略上传键
	audioSlot := func(snap domain.QuestionSnapshot, existingPath string) (*string, error) {
		if snap.Content.Type != domain.QuestionPronunciation {
			if existingPath == "" {
				return nil, nil
			}
			coordinator.ScheduleCleanup(existingPath)
			return nil, nil
		}
		var upload *storage.Upload
		if snap.AudioUploadKey != "" {
			if up, ok := files[snap.AudioUploadKey]; ok {
				upload = &up
			}
		}
		final, err := coordinator.ReconcileSlot(existingPath, upload, assets.AudioExts, s.cfg.Upload.MaxAudioBytes)
		if err != nil {
			return nil, err
		}
		if final == "" {
			return nil, nil
		}
		return &final, nil
	}

	spec := reconcile.Spec[domain.QuestionSnapshot]{
		Kind: "question",
		Validate: func(snap domain.QuestionSnapshot) error {
			return snap.Validate()
		},
		BelongsTo: func(id uint) (bool, error) {
			return questionRepo.BelongsToQuiz(id, quizID)
		},
		Insert: func(snap domain.QuestionSnapshot) (uint, error) {
			content, err := snap.Content.Marshal()
			if err != nil {
				return 0, err
			}
			audioPath, err := audioSlot(snap, "")
			if err != nil {
				return 0, err
			}
			question := &model.Question{
				QuizID:       quizID,
				QuestionType: string(snap.Content.Type),
				Content:      datatypes.JSON(content),
				AudioPath:    audioPath,
				Score:        snap.Score,
				OrderIndex:   snap.OrderIndex,
			}
			if err := questionRepo.Create(question); err != nil {
				return 0, err
			}
			return question.ID, nil
		},
		Update: func(id uint, snap domain.QuestionSnapshot) error {
			existing, err := questionRepo.Get(id)
			if err != nil {
				return err
			}
			existingPath := ""
			if existing.AudioPath != nil {
				existingPath = *existing.AudioPath
			}
			content, err := snap.Content.Marshal()
			if err != nil {
				return err
			}
			audioPath, err := audioSlot(snap, existingPath)
			if err != nil {
				return err
			}
			return questionRepo.Update(&model.Question{
				ID:           id,
				QuestionType: string(snap.Content.Type),
				Content:      datatypes.JSON(content),
				AudioPath:    audioPath,
				Score:        snap.Score,
				OrderIndex:   snap.OrderIndex,
			})
		},
		Delete: func(ids []uint) error {
			paths, err := questionRepo.AudioPathsByIDs(ids)
			if err != nil {
				return err
			}
			coordinator.ScheduleCleanup(paths...)
			return questionRepo.DeleteBatch(ids)
		},
	}
	return reconcile.Reconcile(spec, persisted, incoming)
}

func (s *CourseService) reconcileChoices(
	choiceRepo repository.ChoiceRepository,
	questionID uint,
	incoming []domain.ChoiceSnapshot,
) (*reconcile.Result, error) {
	persisted, err := choiceRepo.IDsByQuestion(questionID)
	if err != nil {
		return nil, err
	}

	spec := reconcile.Spec[domain.ChoiceSnapshot]{
		Kind: "choice",
		Validate: func(snap domain.ChoiceSnapshot) error {
			return snap.Validate()
		},
		BelongsTo: func(id uint) (bool, error) {
			return choiceRepo.BelongsToQuestion(id, questionID)
		},
		Insert: func(snap domain.ChoiceSnapshot) (uint, error) {
			choice := &model.Choice{
				QuestionID: questionID,
				Text:       snap.Text,
				IsCorrect:  snap.IsCorrect,
				OrderIndex: snap.OrderIndex,
			}
			if err := choiceRepo.Create(choice); err != nil {
				return 0, err
			}
			return choice.ID, nil
		},
		Update: func(id uint, snap domain.ChoiceSnapshot) error {
			return choiceRepo.Update(&model.Choice{
				ID:         id,
				Text:       snap.Text,
				IsCorrect:  snap.IsCorrect,
				OrderIndex: snap.OrderIndex,
			})
		},
		Delete: func(ids []uint) error {
			return choiceRepo.DeleteBatch(ids)
		},
	}
	return reconcile.Reconcile(spec, persisted, incoming)
}

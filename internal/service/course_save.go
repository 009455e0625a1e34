package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sakuralearn/backend/internal/domain"
	"github.com/sakuralearn/backend/internal/eventbus"
	"github.com/sakuralearn/backend/internal/model"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"github.com/sakuralearn/backend/internal/service/assets"
	"github.com/sakuralearn/backend/internal/service/reconcile"
	"github.com/sakuralearn/backend/internal/service/statemachine"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// SaveRequest 一次保存请求：快照 + 按表单字段名索引的上传文件
type SaveRequest struct {
	TeacherID uint
	CourseID  uint // 0 表示新建课程
	Snapshot  domain.CourseSnapshot
	Files     map[string]storage.Upload
}

// SaveResult 保存成功的产出。Outcomes 逐条记录每个实体的调和结果，
// 被静默跳过的记录也在其中，便于排查"保存后怎么少了一条"。
type SaveResult struct {
	CourseID uint
	Status   string
	Outcomes []reconcile.Outcome
}

// SaveCourse 用提交的快照调和持久化的课程树。
//
// 课程字段校验在事务外快速失败；其余全部步骤跑在一个事务里，
// 任何结构性错误都会整体回滚，不存在"小节保住了、测验丢了"的
// 中间状态。旧资产的删除在提交之后才通过事件总线安排。
func (s *CourseService) SaveCourse(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	sm := statemachine.NewSaveStateMachine()
	snapshot := req.Snapshot

	if err := s.validateCourseFields(snapshot); err != nil {
		sm.Fail()
		return nil, err
	}

	var course *model.Course
	if req.CourseID != 0 {
		owns, err := s.authz.OwnsCourse(req.TeacherID, req.CourseID)
		if err != nil {
			sm.Fail()
			return nil, err
		}
		if !owns {
			sm.Fail()
			return nil, ErrNotCourseOwner
		}
		course, err = s.courseRepo.GetBasic(req.CourseID)
		if err != nil {
			sm.Fail()
			return nil, err
		}
	}
	if err := sm.Advance(statemachine.SavePhaseValidated); err != nil {
		return nil, err
	}

	coordinator := assets.NewCoordinator(s.store)
	var outcomes []reconcile.Outcome

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := sm.Advance(statemachine.SavePhaseTxOpened); err != nil {
			return err
		}
		idMap := reconcile.NewIDMap()

		courseRepo := s.courseRepo.WithTx(tx)
		sectionRepo := s.sectionRepo.WithTx(tx)
		chapterRepo := s.chapterRepo.WithTx(tx)
		quizRepo := s.quizRepo.WithTx(tx)
		questionRepo := s.questionRepo.WithTx(tx)
		choiceRepo := s.choiceRepo.WithTx(tx)

		var err error
		course, err = s.upsertCourse(courseRepo, coordinator, course, req)
		if err != nil {
			return err
		}
		if err := sm.Advance(statemachine.SavePhaseCourseUpserted); err != nil {
			return err
		}

		secResult, err := s.reconcileSections(sectionRepo, coordinator, course.ID, snapshot.Sections)
		if err != nil {
			return err
		}
		for token, id := range secResult.Created {
			idMap.Bind(token, id)
		}
		outcomes = append(outcomes, secResult.Outcomes...)
		if err := sm.Advance(statemachine.SavePhaseSectionsDone); err != nil {
			return err
		}

		chResult, err := s.reconcileChapters(chapterRepo, sectionRepo, coordinator, idMap, course.ID, snapshot.Chapters, req.Files)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, chResult.Outcomes...)

		qzResult, err := s.reconcileQuizzes(quizRepo, sectionRepo, coordinator, idMap, course.ID, snapshot.Quizzes)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, qzResult.Outcomes...)
		if err := sm.Advance(statemachine.SavePhaseChaptersQuizzes); err != nil {
			return err
		}

		// 题目与选项只在幸存的父级下调和；被跳过的新测验，其子级随之丢弃
		for i, quizSnap := range snapshot.Quizzes {
			quizID := qzResult.Outcomes[i].ID
			if quizID == 0 {
				continue
			}
			qResult, err := s.reconcileQuestions(questionRepo, coordinator, quizID, quizSnap.Questions, req.Files)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, qResult.Outcomes...)

			for j, questionSnap := range quizSnap.Questions {
				questionID := qResult.Outcomes[j].ID
				if questionID == 0 {
					continue
				}
				cResult, err := s.reconcileChoices(choiceRepo, questionID, questionSnap.Choices)
				if err != nil {
					return err
				}
				outcomes = append(outcomes, cResult.Outcomes...)
			}
		}
		return sm.Advance(statemachine.SavePhaseQuestionsChoices)
	})
	if txErr != nil {
		sm.Fail()
		coordinator.DiscardStored()
		return nil, txErr
	}
	if err := sm.Advance(statemachine.SavePhaseCommitted); err != nil {
		return nil, err
	}

	// 提交之后才发布事件：回滚路径上不会有任何清理动作
	if err := s.bus.Publish(ctx, eventbus.CourseEventSaved, eventbus.CourseEvent{
		Type: eventbus.CourseEventSaved, CourseID: course.ID, TeacherID: req.TeacherID, Status: course.Status,
	}); err != nil {
		klog.V(6).Infof("课程保存事件发布失败: courseID=%d, error=%v", course.ID, err)
	}
	if paths := coordinator.PendingCleanup(); len(paths) > 0 {
		if err := s.bus.Publish(ctx, eventbus.CourseEventAssetCleanup, eventbus.CourseEvent{
			Type: eventbus.CourseEventAssetCleanup, CourseID: course.ID, AssetPaths: paths,
		}); err != nil {
			klog.V(6).Infof("资产清理事件发布失败: courseID=%d, error=%v", course.ID, err)
		}
	}
	if err := sm.Advance(statemachine.SavePhaseCleanupScheduled); err != nil {
		return nil, err
	}

	klog.V(6).Infof("课程保存完成: courseID=%d, status=%s, outcomes=%d", course.ID, course.Status, len(outcomes))
	return &SaveResult{CourseID: course.ID, Status: course.Status, Outcomes: outcomes}, nil
}

// validateCourseFields 事务外的课程级快速失败校验
func (s *CourseService) validateCourseFields(snapshot domain.CourseSnapshot) error {
	if strings.TrimSpace(snapshot.Title) == "" {
		return fmt.Errorf("%w: course title is required", ErrInvalidSnapshot)
	}
	if snapshot.Status != "" && snapshot.Status != model.CourseStatusDraft && snapshot.Status != model.CourseStatusPublished {
		return fmt.Errorf("%w: unknown course status %q", ErrInvalidSnapshot, snapshot.Status)
	}
	if snapshot.LevelID == 0 || snapshot.CategoryID == 0 {
		return fmt.Errorf("%w: level and category are required", ErrInvalidSnapshot)
	}
	if ok, err := s.refRepo.LevelExists(snapshot.LevelID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: level %d does not exist", ErrInvalidSnapshot, snapshot.LevelID)
	}
	if ok, err := s.refRepo.CategoryExists(snapshot.CategoryID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: category %d does not exist", ErrInvalidSnapshot, snapshot.CategoryID)
	}
	return nil
}

// upsertCourse 写入课程行。发布状态迁移只盖一次时间戳：
// 已发布课程再次以 published 保存不会重写 published_at。
func (s *CourseService) upsertCourse(
	courseRepo repository.CourseRepository,
	coordinator *assets.Coordinator,
	course *model.Course,
	req SaveRequest,
) (*model.Course, error) {
	snapshot := req.Snapshot
	status := snapshot.Status
	if status == "" {
		status = model.CourseStatusDraft
	}

	existingImage := ""
	if course != nil {
		existingImage = course.ImagePath
	}
	imagePath := existingImage
	if snapshot.ImageUploadKey != "" {
		if up, ok := req.Files[snapshot.ImageUploadKey]; ok {
			final, err := coordinator.ReconcileSlot(existingImage, &up, assets.ImageExts, s.cfg.Upload.MaxImageBytes)
			if err != nil {
				return nil, err
			}
			imagePath = final
		}
	}

	now := time.Now()
	if course == nil {
		course = &model.Course{
			TeacherID:   req.TeacherID,
			Title:       snapshot.Title,
			Description: snapshot.Description,
			LevelID:     snapshot.LevelID,
			CategoryID:  snapshot.CategoryID,
			Price:       snapshot.Price,
			Status:      status,
			ImagePath:   imagePath,
		}
		if status == model.CourseStatusPublished {
			course.PublishedAt = &now
		}
		if err := courseRepo.Create(course); err != nil {
			return nil, err
		}
		return course, nil
	}

	course.Title = snapshot.Title
	course.Description = snapshot.Description
	course.LevelID = snapshot.LevelID
	course.CategoryID = snapshot.CategoryID
	course.Price = snapshot.Price
	course.ImagePath = imagePath
	if status == model.CourseStatusPublished && course.PublishedAt == nil {
		course.PublishedAt = &now
	}
	course.Status = status
	course.UpdatedAt = now
	if err := courseRepo.Save(course); err != nil {
		return nil, err
	}
	return course, nil
}

package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// SavePhase 定义课程保存流程的所有阶段
type SavePhase string

const (
	SavePhaseStart            SavePhase = "start"
	SavePhaseValidated        SavePhase = "validated"          // 课程字段校验通过（事务外）
	SavePhaseTxOpened         SavePhase = "tx_opened"          // 事务已开启
	SavePhaseCourseUpserted   SavePhase = "course_upserted"    // 课程行已写入
	SavePhaseSectionsDone     SavePhase = "sections_done"      // 小节调和完成
	SavePhaseChaptersQuizzes  SavePhase = "chapters_quizzes"   // 章节与测验调和完成
	SavePhaseQuestionsChoices SavePhase = "questions_choices"  // 题目与选项调和完成
	SavePhaseCommitted        SavePhase = "committed"          // 事务已提交
	SavePhaseCleanupScheduled SavePhase = "cleanup_scheduled"  // 旧资产清理已安排
	SavePhaseFailed           SavePhase = "failed"             // 任意阶段出错，整体回滚
)

// SaveTransition 阶段迁移
type SaveTransition struct {
	From SavePhase
	To   SavePhase
}

// SaveStateMachine 保存流程状态机。
// 阶段只能按依赖顺序推进：父级未入库之前子级不允许调和；
// 清理只能发生在提交之后。
type SaveStateMachine struct {
	current            SavePhase
	allowedTransitions map[SaveTransition]bool
}

func NewSaveStateMachine() *SaveStateMachine {
	sm := &SaveStateMachine{
		current:            SavePhaseStart,
		allowedTransitions: make(map[SaveTransition]bool),
	}

	transitions := []SaveTransition{
		{SavePhaseStart, SavePhaseValidated},
		{SavePhaseValidated, SavePhaseTxOpened},
		{SavePhaseTxOpened, SavePhaseCourseUpserted},
		{SavePhaseCourseUpserted, SavePhaseSectionsDone},
		{SavePhaseSectionsDone, SavePhaseChaptersQuizzes},
		{SavePhaseChaptersQuizzes, SavePhaseQuestionsChoices},
		{SavePhaseQuestionsChoices, SavePhaseCommitted},
		{SavePhaseCommitted, SavePhaseCleanupScheduled},

		// 失败可从除终态外的任意阶段进入
		{SavePhaseStart, SavePhaseFailed},
		{SavePhaseValidated, SavePhaseFailed},
		{SavePhaseTxOpened, SavePhaseFailed},
		{SavePhaseCourseUpserted, SavePhaseFailed},
		{SavePhaseSectionsDone, SavePhaseFailed},
		{SavePhaseChaptersQuizzes, SavePhaseFailed},
		{SavePhaseQuestionsChoices, SavePhaseFailed},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// Current 当前阶段
func (sm *SaveStateMachine) Current() SavePhase {
	return sm.current
}

// CanAdvance 检查阶段迁移是否合法
func (sm *SaveStateMachine) CanAdvance(to SavePhase) bool {
	if sm.current == to {
		return false
	}
	return sm.allowedTransitions[SaveTransition{From: sm.current, To: to}]
}

// Advance 推进到下一阶段，非法迁移返回类型化错误
func (sm *SaveStateMachine) Advance(to SavePhase) error {
	if !sm.CanAdvance(to) {
		return &InvalidPhaseTransitionError{
			From: string(sm.current),
			To:   string(to),
		}
	}
	klog.V(6).Infof("保存阶段推进: %s -> %s", sm.current, to)
	sm.current = to
	return nil
}

// Fail 进入失败态。已处于终态时保持不变。
func (sm *SaveStateMachine) Fail() {
	if sm.CanAdvance(SavePhaseFailed) {
		klog.V(6).Infof("保存阶段失败: %s -> %s", sm.current, SavePhaseFailed)
		sm.current = SavePhaseFailed
	}
}

// IsTerminal 判断阶段是否为终态
func IsTerminal(phase SavePhase) bool {
	return phase == SavePhaseCleanupScheduled || phase == SavePhaseFailed
}

// InvalidPhaseTransitionError 非法的阶段迁移
type InvalidPhaseTransitionError struct {
	From string
	To   string
}

func (e *InvalidPhaseTransitionError) Error() string {
	return fmt.Sprintf("invalid save phase transition: %s -> %s", e.From, e.To)
}

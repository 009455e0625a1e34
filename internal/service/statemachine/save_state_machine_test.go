package statemachine

import (
	"errors"
	"testing"
)

func TestSaveStateMachineHappyPath(t *testing.T) {
	sm := NewSaveStateMachine()

	phases := []SavePhase{
		SavePhaseValidated,
		SavePhaseTxOpened,
		SavePhaseCourseUpserted,
		SavePhaseSectionsDone,
		SavePhaseChaptersQuizzes,
		SavePhaseQuestionsChoices,
		SavePhaseCommitted,
		SavePhaseCleanupScheduled,
	}
	for _, phase := range phases {
		if err := sm.Advance(phase); err != nil {
			t.Fatalf("advance to %s error: %v", phase, err)
		}
	}
	if sm.Current() != SavePhaseCleanupScheduled {
		t.Fatalf("unexpected final phase: %s", sm.Current())
	}
	if !IsTerminal(sm.Current()) {
		t.Fatalf("expected terminal phase")
	}
}

func TestSaveStateMachineRejectsSkippedPhase(t *testing.T) {
	sm := NewSaveStateMachine()

	// 父级未入库之前不允许跳到子级调和
	err := sm.Advance(SavePhaseSectionsDone)
	if err == nil {
		t.Fatalf("expected error for skipped phase")
	}
	var invalid *InvalidPhaseTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidPhaseTransitionError, got %T", err)
	}
	if invalid.From != string(SavePhaseStart) || invalid.To != string(SavePhaseSectionsDone) {
		t.Fatalf("unexpected transition detail: %+v", invalid)
	}
	if sm.Current() != SavePhaseStart {
		t.Fatalf("failed advance must not change phase: %s", sm.Current())
	}
}

func TestSaveStateMachineFail(t *testing.T) {
	sm := NewSaveStateMachine()
	if err := sm.Advance(SavePhaseValidated); err != nil {
		t.Fatalf("advance error: %v", err)
	}
	sm.Fail()
	if sm.Current() != SavePhaseFailed {
		t.Fatalf("expected failed phase, got %s", sm.Current())
	}
	if !IsTerminal(sm.Current()) {
		t.Fatalf("failed phase must be terminal")
	}

	// 终态不可再推进
	if err := sm.Advance(SavePhaseTxOpened); err == nil {
		t.Fatalf("expected error when advancing from terminal phase")
	}
}

func TestSaveStateMachineFailAfterCommitIsNoop(t *testing.T) {
	sm := NewSaveStateMachine()
	for _, phase := range []SavePhase{
		SavePhaseValidated, SavePhaseTxOpened, SavePhaseCourseUpserted,
		SavePhaseSectionsDone, SavePhaseChaptersQuizzes, SavePhaseQuestionsChoices,
		SavePhaseCommitted, SavePhaseCleanupScheduled,
	} {
		if err := sm.Advance(phase); err != nil {
			t.Fatalf("advance to %s error: %v", phase, err)
		}
	}

	sm.Fail()
	if sm.Current() != SavePhaseCleanupScheduled {
		t.Fatalf("terminal phase must not regress to failed: %s", sm.Current())
	}
}

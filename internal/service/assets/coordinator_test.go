package assets

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sakuralearn/backend/internal/pkg/storage"
)

// memStore 记录落盘与删除调用的内存实现
type memStore struct {
	nextID  int
	stored  []string
	deleted []string
}

func (s *memStore) Store(up storage.Upload, allowedExts []string, maxSize int64) (string, error) {
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
		return "", &storage.ValidationError{Reason: "file too large"}
	}
	s.nextID++
	path := fmt.Sprintf("stored-%d%s", s.nextID, ext)
	s.stored = append(s.stored, path)
	return path, nil
}

func (s *memStore) Delete(relPath string) error {
	s.deleted = append(s.deleted, relPath)
	return nil
}

func TestReconcileSlotKeepsExistingWithoutUpload(t *testing.T) {
	store := &memStore{}
	c := NewCoordinator(store)

	final, err := c.ReconcileSlot("old.mp4", nil, VideoExts, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final != "old.mp4" {
		t.Fatalf("expected existing path kept, got %q", final)
	}
	if len(c.PendingCleanup()) != 0 {
		t.Fatalf("no cleanup expected: %v", c.PendingCleanup())
	}
}

func TestReconcileSlotReplacesAndSchedulesOldFile(t *testing.T) {
	store := &memStore{}
	c := NewCoordinator(store)

	up := storage.Upload{Filename: "lesson.mp4", Size: 100, Reader: strings.NewReader("x")}
	final, err := c.ReconcileSlot("old.mp4", &up, VideoExts, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final == "" || final == "old.mp4" {
		t.Fatalf("expected new path, got %q", final)
	}

	// 旧文件只登记，不立即删除
	cleanup := c.PendingCleanup()
	if len(cleanup) != 1 || cleanup[0] != "old.mp4" {
		t.Fatalf("unexpected cleanup list: %v", cleanup)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("old file must not be deleted before commit: %v", store.deleted)
	}
}

func TestReconcileSlotRejectsInvalidUpload(t *testing.T) {
	store := &memStore{}
	c := NewCoordinator(store)

	up := storage.Upload{Filename: "lesson.exe", Size: 100, Reader: strings.NewReader("x")}
	_, err := c.ReconcileSlot("", &up, VideoExts, 1000)
	if !storage.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	big := storage.Upload{Filename: "lesson.mp4", Size: 5000, Reader: strings.NewReader("x")}
	_, err = c.ReconcileSlot("", &big, VideoExts, 1000)
	if !storage.IsValidationError(err) {
		t.Fatalf("expected validation error for oversized file, got %v", err)
	}
}

func TestDiscardStoredRemovesOnlyNewFiles(t *testing.T) {
	store := &memStore{}
	c := NewCoordinator(store)

	up := storage.Upload{Filename: "cover.png", Size: 10, Reader: strings.NewReader("x")}
	newPath, err := c.ReconcileSlot("old-cover.png", &up, ImageExts, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.ScheduleCleanup("orphan.mp3")

	// 回滚：只丢弃本次新落盘的文件，旧文件原样保留
	c.DiscardStored()
	if len(store.deleted) != 1 || store.deleted[0] != newPath {
		t.Fatalf("expected only new file discarded, got %v", store.deleted)
	}
}

func TestScheduleCleanupIgnoresEmptyPaths(t *testing.T) {
	c := NewCoordinator(&memStore{})
	c.ScheduleCleanup("", "a.mp3", "")
	if got := c.PendingCleanup(); len(got) != 1 || got[0] != "a.mp3" {
		t.Fatalf("unexpected cleanup list: %v", got)
	}
}

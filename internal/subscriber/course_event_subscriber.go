package subscriber

import (
	"context"

	"github.com/sakuralearn/backend/internal/eventbus"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"k8s.io/klog/v2"
)

// CourseEventSubscriber 消费课程事件。
// 资产清理只能在这里发生：事件在事务提交后才会发布，
// 回滚路径上不会有清理事件，旧文件因此不会被误删。
type CourseEventSubscriber struct {
	store storage.Store
}

func NewCourseEventSubscriber(store storage.Store) *CourseEventSubscriber {
	return &CourseEventSubscriber{store: store}
}

func (s *CourseEventSubscriber) Register(bus *eventbus.CourseEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.CourseEventSaved, s.handleSaved)
	bus.Subscribe(eventbus.CourseEventAssetCleanup, s.handleAssetCleanup)
}

func (s *CourseEventSubscriber) handleSaved(ctx context.Context, event eventbus.CourseEvent) error {
	klog.V(6).Infof("课程保存事件: courseID=%d, teacherID=%d, status=%s", event.CourseID, event.TeacherID, event.Status)
	return nil
}

// handleAssetCleanup 删除被替换或被级联删除的资产文件，尽力而为
func (s *CourseEventSubscriber) handleAssetCleanup(ctx context.Context, event eventbus.CourseEvent) error {
	for _, path := range event.AssetPaths {
		if err := s.store.Delete(path); err != nil {
			klog.V(6).Infof("清理旧资产失败: courseID=%d, path=%s, error=%v", event.CourseID, path, err)
			continue
		}
		klog.V(6).Infof("清理旧资产成功: courseID=%d, path=%s", event.CourseID, path)
	}
	return nil
}

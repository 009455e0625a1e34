package assets

import (
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"k8s.io/klog/v2"
)

// 各资产槽允许的扩展名
var (
	ImageExts = []string{".jpg", ".jpeg", ".png", ".webp"}
	VideoExts = []string{".mp4", ".webm", ".mov"}
	AudioExts = []string{".mp3", ".wav", ".m4a", ".ogg"}
)

// Coordinator 协调一次保存请求内的资产槽位变更。
//
// 新文件在事务内落盘（路径要写进行里），但旧文件的删除只登记
// 不执行：清理列表在事务提交之后才交给事件总线。回滚时旧文件
// 必须原样保留，只有本次新写入的文件可以丢弃。
type Coordinator struct {
	store   storage.Store
	stored  []string // 本次请求新落盘的文件，回滚时丢弃
	cleanup []string // 提交后待删除的旧文件
}

func NewCoordinator(store storage.Store) *Coordinator {
	return &Coordinator{store: store}
}

// ReconcileSlot 调和单个资产槽位。
// upload 为 nil 表示客户端未提交新文件，槽位保持原值；
// 有新文件则落盘并登记旧文件待清理。校验失败的上传返回
// storage.ValidationError，由调用方中止整次保存。
func (c *Coordinator) ReconcileSlot(existing string, upload *storage.Upload, allowedExts []string, maxSize int64) (string, error) {
	if upload == nil {
		return existing, nil
	}

	newPath, err := c.store.Store(*upload, allowedExts, maxSize)
	if err != nil {
		return "", err
	}
	c.stored = append(c.stored, newPath)

	if existing != "" && existing != newPath {
		c.cleanup = append(c.cleanup, existing)
	}
	return newPath, nil
}

// ScheduleCleanup 登记因记录被删除而失去引用的资产
func (c *Coordinator) ScheduleCleanup(paths ...string) {
	for _, p := range paths {
		if p != "" {
			c.cleanup = append(c.cleanup, p)
		}
	}
}

// PendingCleanup 提交后待删除的旧资产路径
func (c *Coordinator) PendingCleanup() []string {
	return c.cleanup
}

// DiscardStored 回滚路径：丢弃本次新落盘的文件，旧资产不动
func (c *Coordinator) DiscardStored() {
	for _, p := range c.stored {
		if err := c.store.Delete(p); err != nil {
			klog.V(6).Infof("回滚丢弃新文件失败: path=%s, error=%v", p, err)
		}
	}
	c.stored = nil
}

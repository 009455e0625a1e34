package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// ValidationError 上传文件未通过类型/大小校验。
// 与普通存储错误不同，它会导致整次保存失败。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "upload rejected: " + e.Reason
}

// IsValidationError 判断是否为上传校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Upload 一次待存储的上传内容。Handler 层从 multipart 表单构造。
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// Store 资产存储能力。引擎只记录/遗忘相对路径，不关心存储机制。
type Store interface {
	// Store 校验并落盘，返回相对路径
	Store(up Upload, allowedExts []string, maxSize int64) (string, error)
	// Delete 按相对路径删除，尽力而为
	Delete(relPath string) error
}

// LocalStore 本地文件系统实现，所有文件存放在 baseDir 下，
// 文件名用 uuid 重新生成，并发上传不会互相覆盖。
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) Store(up Upload, allowedExts []string, maxSize int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !extAllowed(ext, allowedExts) {
		return "", &ValidationError{Reason: fmt.Sprintf("file type %q not allowed", ext)}
	}
	if maxSize > 0 && up.Size > maxSize {
		return "", &ValidationError{Reason: fmt.Sprintf("file exceeds size limit of %d bytes", maxSize)}
	}

	relPath := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.baseDir, relPath), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create stored file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, up.Reader); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write stored file: %w", err)
	}
	return relPath, nil
}

func (s *LocalStore) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid asset path %q", relPath)
	}
	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		klog.V(6).Infof("删除资产文件失败: path=%s, error=%v", relPath, err)
		return err
	}
	return nil
}

func extAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

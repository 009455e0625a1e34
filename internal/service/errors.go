package service

import "errors"

// ErrInvalidSnapshot 课程级字段校验失败（保存前快速失败，不触库）
var ErrInvalidSnapshot = errors.New("invalid course payload")

// ErrNotCourseOwner 调用者不是课程所有者
var ErrNotCourseOwner = errors.New("caller does not own this course")

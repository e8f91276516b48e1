package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrSessionConflict 门禁会话冲突：同一人员已存在未关闭的进出记录
var ErrSessionConflict = errors.New("该人员已存在未关闭的进出记录")

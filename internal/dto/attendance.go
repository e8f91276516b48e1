package dto

// ── 考勤模块 DTO ──

// ManualMarkRequest 手工标记请求
type ManualMarkRequest struct {
	AttendanceID string  `json:"attendance_id" binding:"required,uuid"`
	Status       string  `json:"status"        binding:"required"`
	Notes        *string `json:"notes"         binding:"omitempty,max=500"`
	ExcuseReason *string `json:"excuse_reason" binding:"omitempty,max=500"`
}

// BulkManualMarkRequest 批量手工标记请求
type BulkManualMarkRequest struct {
	Updates []BulkManualMarkItem `json:"updates" binding:"required,min=1,max=200,dive"`
}

// BulkManualMarkItem 批量手工标记单项
type BulkManualMarkItem struct {
	AttendanceID string  `json:"attendance_id" binding:"required,uuid"`
	Status       string  `json:"status"        binding:"required"`
	Notes        *string `json:"notes"         binding:"omitempty,max=500"`
	ExcuseReason *string `json:"excuse_reason" binding:"omitempty,max=500"`
}

// BulkManualMarkResult 批量手工标记单项结果
// 部分成功语义：每项独立落库，失败不影响其余项
type BulkManualMarkResult struct {
	AttendanceID string                    `json:"attendance_id"`
	OK           bool                      `json:"ok"`
	Error        string                    `json:"error,omitempty"`
	Record       *AttendanceRecordResponse `json:"record,omitempty"`
}

// OccurrenceListRequest 课次考勤列表查询参数
type OccurrenceListRequest struct {
	Date string `form:"date" binding:"required"`
}

// AttendanceRecordResponse 考勤记录响应
type AttendanceRecordResponse struct {
	ID             string        `json:"id"`
	LearnerID      string        `json:"learner_id"`
	Learner        *LearnerBrief `json:"learner,omitempty"`
	ScheduleID     string        `json:"schedule_id"`
	OccurrenceDate string        `json:"occurrence_date"`
	Status         string        `json:"status"`
	MarkedAt       *string       `json:"marked_at,omitempty"`
	IsManual       bool          `json:"is_manual"`
	MarkedBy       *string       `json:"marked_by,omitempty"`
	Notes          *string       `json:"notes,omitempty"`
	ExcuseReason   *string       `json:"excuse_reason,omitempty"`
}

// LearnerBrief 学员简要信息（含姓名，列表按姓氏排序展示用）
type LearnerBrief struct {
	ID         string `json:"id"`
	PersonID   string `json:"person_id"`
	DocumentID string `json:"document_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// ReconciliationResult 对账结果聚合
// 单课表级失败被隔离为 skipped/failures 条目，绝不中断整体流程
type ReconciliationResult struct {
	LearnerID string                     `json:"learner_id"`
	Updated   []AttendanceRecordResponse `json:"updated"`
	Skipped   []ReconciliationSkip       `json:"skipped"`
	Failures  []ReconciliationFailure    `json:"failures"`
}

// ReconciliationSkip 对账跳过条目
type ReconciliationSkip struct {
	ScheduleID string `json:"schedule_id"`
	Reason     string `json:"reason"` // manual_override_protected | already_marked | outside_window
}

// ReconciliationFailure 对账失败条目（依赖故障等，已被隔离）
type ReconciliationFailure struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	Reason     string `json:"reason"` // timeout | dependency_failure
	Detail     string `json:"detail,omitempty"`
}

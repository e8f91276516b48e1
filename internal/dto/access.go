package dto

// ── 门禁模块 DTO ──

// CheckInRequest 进入打卡请求
// At 缺省时取服务器当前时间（RFC3339）
type CheckInRequest struct {
	PersonID string `json:"person_id" binding:"required,uuid"`
	At       string `json:"at"        binding:"omitempty"`
}

// CheckOutRequest 离开打卡请求
type CheckOutRequest struct {
	PersonID string `json:"person_id" binding:"required,uuid"`
	At       string `json:"at"        binding:"omitempty"`
}

// ForceCloseRequest 管理员强制关闭会话请求
type ForceCloseRequest struct {
	PersonID string `json:"person_id" binding:"required,uuid"`
	At       string `json:"at"        binding:"omitempty"`
	Reason   string `json:"reason"    binding:"omitempty,max=500"`
}

// AccessRecordListRequest 进出记录列表查询参数
type AccessRecordListRequest struct {
	PersonID string `form:"person_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// AccessRecordResponse 进出记录响应
type AccessRecordResponse struct {
	ID              string  `json:"id"`
	PersonID        string  `json:"person_id"`
	EntryTime       string  `json:"entry_time"`
	ExitTime        *string `json:"exit_time,omitempty"`
	Status          string  `json:"status"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	CloseReason     *string `json:"close_reason,omitempty"`
}

package dto

// ── 课表模块 DTO ──

// CreateScheduleRequest 创建课表请求
// recurring 课表要求 day_of_week；dated 课表要求 session_date（YYYY-MM-DD）
type CreateScheduleRequest struct {
	CohortID             string  `json:"cohort_id"              binding:"required,uuid"`
	InstructorID         string  `json:"instructor_id"          binding:"required,uuid"`
	Subject              string  `json:"subject"                binding:"required,min=2,max=200"`
	ScheduleType         string  `json:"schedule_type"          binding:"required,oneof=recurring dated"`
	DayOfWeek            *int    `json:"day_of_week"            binding:"omitempty,min=0,max=6"`
	SessionDate          *string `json:"session_date"           binding:"omitempty"`
	StartTime            string  `json:"start_time"             binding:"required"`
	EndTime              string  `json:"end_time"               binding:"required"`
	LateToleranceMinutes *int    `json:"late_tolerance_minutes" binding:"omitempty,min=0,max=240"`
}

// UpdateScheduleRequest 修改课表请求
type UpdateScheduleRequest struct {
	InstructorID         *string `json:"instructor_id"          binding:"omitempty,uuid"`
	Subject              *string `json:"subject"                binding:"omitempty,min=2,max=200"`
	StartTime            *string `json:"start_time"             binding:"omitempty"`
	EndTime              *string `json:"end_time"               binding:"omitempty"`
	LateToleranceMinutes *int    `json:"late_tolerance_minutes" binding:"omitempty,min=0,max=240"`
}

// MaterializeOccurrenceRequest 物化课次请求
// dated 课表可缺省（取 session_date）；recurring 课表必填且须与 day_of_week 匹配
type MaterializeOccurrenceRequest struct {
	Date string `json:"date" binding:"omitempty"`
}

// ScheduleResponse 课表响应
type ScheduleResponse struct {
	ID                   string        `json:"id"`
	CohortID             string        `json:"cohort_id"`
	Instructor           *PersonBrief  `json:"instructor,omitempty"`
	Subject              string        `json:"subject"`
	ScheduleType         string        `json:"schedule_type"`
	DayOfWeek            *int          `json:"day_of_week,omitempty"`
	SessionDate          *string       `json:"session_date,omitempty"`
	StartTime            string        `json:"start_time"`
	EndTime              string        `json:"end_time"`
	LateToleranceMinutes int           `json:"late_tolerance_minutes"`
	IsActive             bool          `json:"is_active"`
	CreatedAt            string        `json:"created_at"`
	UpdatedAt            string        `json:"updated_at"`
}

// MaterializeOccurrenceResponse 物化课次响应
type MaterializeOccurrenceResponse struct {
	ScheduleID     string `json:"schedule_id"`
	OccurrenceDate string `json:"occurrence_date"`
	LearnerCount   int    `json:"learner_count"`
	CreatedCount   int    `json:"created_count"` // 实际新建条数（重复调用时为 0）
}

// PersonBrief 人员简要信息
type PersonBrief struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

package dto

// ── 目录模块 DTO（只读）──

// CohortResponse 编组响应
type CohortResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	ProgramName string `json:"program_name"`
	IsActive    bool   `json:"is_active"`
}

// LearnerResponse 学员响应
type LearnerResponse struct {
	ID       string       `json:"id"`
	CohortID string       `json:"cohort_id"`
	IsActive bool         `json:"is_active"`
	Person   *PersonBrief `json:"person,omitempty"`
}

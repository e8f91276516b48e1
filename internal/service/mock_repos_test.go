package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
	pkgerrors "github.com/hellstar-bit/Accesum-SENA-sub000/pkg/errors"
)

// ── 内存 Repository 桩实现（测试用）──

func newMockRepository() *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{users: map[string]*model.User{}},
		Directory:    &mockDirectoryRepo{cohorts: map[string]*model.Cohort{}, learners: map[string]*model.Learner{}},
		AccessRecord: &mockAccessRepo{records: map[string]*model.AccessRecord{}},
		Schedule:     &mockScheduleRepo{schedules: map[string]*model.Schedule{}},
		Attendance:   &mockAttendanceRepo{records: map[string]*model.AttendanceRecord{}},
		Notification: &mockNotificationRepo{},
	}
}

var mockSeq int

func nextID(prefix string) string {
	mockSeq++
	return fmt.Sprintf("%s-%04d", prefix, mockSeq)
}

// ── 用户 ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByDocumentID(_ context.Context, documentID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DocumentID == documentID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.UserID == "" {
		user.UserID = nextID("user")
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

// ── 目录 ──

type mockDirectoryRepo struct {
	mu       sync.Mutex
	cohorts  map[string]*model.Cohort
	learners map[string]*model.Learner
}

func (m *mockDirectoryRepo) ListCohorts(_ context.Context) ([]model.Cohort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Cohort, 0, len(m.cohorts))
	for _, c := range m.cohorts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockDirectoryRepo) GetCohortByID(_ context.Context, id string) (*model.Cohort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cohorts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockDirectoryRepo) GetLearnerByPersonID(_ context.Context, personID string) (*model.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.learners {
		if l.PersonID == personID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDirectoryRepo) ListActiveLearners(_ context.Context, cohortID string) ([]model.Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Learner{}
	for _, l := range m.learners {
		if l.CohortID == cohortID && l.IsActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LearnerID < out[j].LearnerID })
	return out, nil
}

// ── 门禁 ──

type mockAccessRepo struct {
	mu      sync.Mutex
	records map[string]*model.AccessRecord
}

func (m *mockAccessRepo) Create(_ context.Context, record *model.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 模拟部分唯一索引：同一人员最多一条开放记录
	for _, r := range m.records {
		if r.PersonID == record.PersonID && r.ExitTime == nil {
			return pkgerrors.ErrSessionConflict
		}
	}
	if record.AccessRecordID == "" {
		record.AccessRecordID = nextID("access")
	}
	record.Version = 1
	cp := *record
	m.records[record.AccessRecordID] = &cp
	return nil
}

func (m *mockAccessRepo) GetByID(_ context.Context, id string) (*model.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockAccessRepo) GetOpenByPerson(_ context.Context, personID string) (*model.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.PersonID == personID && r.ExitTime == nil {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccessRepo) Update(_ context.Context, record *model.AccessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[record.AccessRecordID]
	if !ok || cur.Version != record.Version {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version++
	cp := *record
	m.records[record.AccessRecordID] = &cp
	return nil
}

func (m *mockAccessRepo) ListByPerson(_ context.Context, personID string, offset, limit int) ([]model.AccessRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []model.AccessRecord{}
	for _, r := range m.records {
		if personID == "" || r.PersonID == personID {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EntryTime.After(all[j].EntryTime) })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.AccessRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── 课表 ──

type mockScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*model.Schedule
	findErr   error // 注入 FindActiveOccurrences 故障
}

func (m *mockScheduleRepo) Create(_ context.Context, schedule *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if schedule.ScheduleID == "" {
		schedule.ScheduleID = nextID("schedule")
	}
	schedule.Version = 1
	cp := *schedule
	m.schedules[schedule.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockScheduleRepo) ListByCohort(_ context.Context, cohortID string) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Schedule{}
	for _, s := range m.schedules {
		if s.CohortID == cohortID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out, nil
}

func (m *mockScheduleRepo) FindActiveOccurrences(ctx context.Context, cohortID string, date time.Time, dayOfWeek int) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Schedule{}
	for _, s := range m.schedules {
		if s.CohortID != cohortID || !s.IsActive {
			continue
		}
		if s.OccursOn(date) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, schedule *model.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.schedules[schedule.ScheduleID]
	if !ok || cur.Version != schedule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version++
	cp := *schedule
	m.schedules[schedule.ScheduleID] = &cp
	return nil
}

// ── 考勤 ──

type mockAttendanceRepo struct {
	mu        sync.Mutex
	records   map[string]*model.AttendanceRecord
	updateErr error // 注入 Update 故障
}

func occurrenceKey(learnerID, scheduleID string, date time.Time) string {
	return strings.Join([]string{learnerID, scheduleID, date.Format("2006-01-02")}, "|")
}

func (m *mockAttendanceRepo) BatchUpsertAbsent(_ context.Context, records []model.AttendanceRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := map[string]bool{}
	for _, r := range m.records {
		existing[occurrenceKey(r.LearnerID, r.ScheduleID, r.OccurrenceDate)] = true
	}
	var created int64
	for i := range records {
		r := records[i]
		key := occurrenceKey(r.LearnerID, r.ScheduleID, r.OccurrenceDate)
		if existing[key] {
			continue
		}
		existing[key] = true
		r.AttendanceRecordID = nextID("att")
		r.Version = 1
		m.records[r.AttendanceRecordID] = &r
		created++
	}
	return created, nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockAttendanceRepo) GetByOccurrence(_ context.Context, learnerID, scheduleID string, date time.Time) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := occurrenceKey(learnerID, scheduleID, date)
	for _, r := range m.records {
		if occurrenceKey(r.LearnerID, r.ScheduleID, r.OccurrenceDate) == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListByScheduleOccurrence(_ context.Context, scheduleID string, date time.Time) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.AttendanceRecord{}
	for _, r := range m.records {
		if r.ScheduleID == scheduleID && r.OccurrenceDate.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LearnerID < out[j].LearnerID })
	return out, nil
}

func (m *mockAttendanceRepo) Update(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cur, ok := m.records[record.AttendanceRecordID]
	if !ok || cur.Version != record.Version {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version++
	cp := *record
	m.records[record.AttendanceRecordID] = &cp
	return nil
}

// ── 通知 ──

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []model.Notification
	createErr     error // 注入落库故障
}

func (m *mockNotificationRepo) CreateDedup(_ context.Context, notification *model.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return false, m.createErr
	}
	for _, n := range m.notifications {
		if n.UserID == notification.UserID && n.DedupKey == notification.DedupKey {
			return false, nil
		}
	}
	notification.NotificationID = nextID("notif")
	notification.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *notification)
	return true, nil
}

func (m *mockNotificationRepo) ListRecentByUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for i := len(m.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if m.notifications[i].UserID == userID {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) ListByIDs(_ context.Context, userID string, ids []string) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.Notification{}
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && want[m.notifications[i].NotificationID] {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].NotificationID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) TrimHistory(_ context.Context, userID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine, others []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			mine = append(mine, n)
		} else {
			others = append(others, n)
		}
	}
	if len(mine) > keep {
		mine = mine[len(mine)-keep:]
	}
	m.notifications = append(others, mine...)
	return nil
}

func (m *mockNotificationRepo) byUser(userID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

type fakeMemberships struct {
	memberships []models.ClassMembership
	links       []models.GuardianLink
	err         error
	countErr    error
}

func (f *fakeMemberships) ResolveClassMemberships(_ context.Context, id string) ([]models.ClassMembership, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ClassMembership
	for _, m := range f.memberships {
		if m.TeacherID == id || m.StudentID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberships) ResolveClassRosters(_ context.Context, classIDs []string) ([]models.ClassMembership, error) {
	if f.err != nil {
		return nil, f.err
	}
	classes := models.NewIDSet(classIDs...)
	var out []models.ClassMembership
	for _, m := range f.memberships {
		if classes.Has(m.ClassID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberships) CountEnrolment(context.Context) (models.EnrolmentTotals, error) {
	if f.countErr != nil {
		return models.EnrolmentTotals{}, f.countErr
	}
	students, classes := models.NewIDSet(), models.NewIDSet()
	for _, m := range f.memberships {
		students.Add(m.StudentID)
		classes.Add(m.ClassID)
	}
	return models.EnrolmentTotals{Students: len(students), Classes: len(classes)}, nil
}

func (f *fakeMemberships) ResolveGuardianLinks(_ context.Context, guardianID string) ([]models.GuardianLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.GuardianLink
	for _, l := range f.links {
		if l.GuardianID == guardianID {
			out = append(out, l)
		}
	}
	return out, nil
}

// fakeRecords returns its records unfiltered so tests can check the collectors' own scope checks.
type fakeRecords struct {
	mu sync.Mutex

	attendance  []models.AttendanceEvent
	grades      []models.GradeEntry
	tasks       []models.TaskRecord
	submissions []models.SubmissionRecord

	attendanceErr  error
	gradesErr      error
	tasksErr       error
	submissionsErr error
	block          map[string]bool

	calls map[string]int
}

func (f *fakeRecords) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeRecords) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRecords) wait(ctx context.Context, name string) error {
	if !f.block[name] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeRecords) FindAttendance(ctx context.Context, _ *models.Scope, _ models.TimeRange) ([]models.AttendanceEvent, error) {
	f.record("attendance")
	if err := f.wait(ctx, "attendance"); err != nil {
		return nil, err
	}
	return f.attendance, f.attendanceErr
}

func (f *fakeRecords) FindGrades(ctx context.Context, _ *models.Scope, _ models.TimeRange) ([]models.GradeEntry, error) {
	f.record("grades")
	if err := f.wait(ctx, "grades"); err != nil {
		return nil, err
	}
	return f.grades, f.gradesErr
}

func (f *fakeRecords) FindTasks(ctx context.Context, _ *models.Scope, _ models.TimeRange) ([]models.TaskRecord, error) {
	f.record("tasks")
	if err := f.wait(ctx, "tasks"); err != nil {
		return nil, err
	}
	return f.tasks, f.tasksErr
}

func (f *fakeRecords) FindSubmissions(ctx context.Context, _ *models.Scope, _ models.TimeRange) ([]models.SubmissionRecord, error) {
	f.record("submissions")
	if err := f.wait(ctx, "submissions"); err != nil {
		return nil, err
	}
	return f.submissions, f.submissionsErr
}

type stubCacheRepo struct {
	mu     sync.Mutex
	store  map[string][]byte
	getErr error
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.store))
	for k := range s.store {
		out = append(out, k)
	}
	return out
}

func strPtr(v string) *string {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

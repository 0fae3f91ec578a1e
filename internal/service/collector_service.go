package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

// Dashboard sections, one per collector.
const (
	SectionAttendance = "attendance"
	SectionGrades     = "grades"
	SectionTasks      = "tasks"
)

// AnalyticsRepository reads raw analytics records restricted to a scope and window.
type AnalyticsRepository interface {
	FindAttendance(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.AttendanceEvent, error)
	FindGrades(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.GradeEntry, error)
	FindTasks(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.TaskRecord, error)
	FindSubmissions(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.SubmissionRecord, error)
}

// TaskRecords pairs the tasks in scope with the submissions made against them.
type TaskRecords struct {
	Tasks       []models.TaskRecord
	Submissions []models.SubmissionRecord
}

// CollectorService reads analytics records and re-applies the scope and window to everything
// the repository returns. Records that fail the checks are dropped, never aggregated.
type CollectorService struct {
	repo    AnalyticsRepository
	metrics *MetricsService
	logger  *zap.Logger
	timeout time.Duration
}

// NewCollectorService constructs the collectors. A non-positive timeout defaults to three seconds.
func NewCollectorService(repo AnalyticsRepository, metrics *MetricsService, logger *zap.Logger, timeout time.Duration) *CollectorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &CollectorService{repo: repo, metrics: metrics, logger: logger, timeout: timeout}
}

// Attendance returns the scoped attendance events of the window, one per session.
func (s *CollectorService) Attendance(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.AttendanceEvent, error) {
	if scope.Empty() {
		return []models.AttendanceEvent{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.repo.FindAttendance(ctx, scope, window)
	s.metrics.ObserveCollector(SectionAttendance, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("collect attendance: %w", err)
	}

	var drops dropCounter
	seen := make(map[string]struct{}, len(raw))
	events := make([]models.AttendanceEvent, 0, len(raw))
	loc := window.Start.Location()
	for _, event := range raw {
		if event.SubjectID != nil && *event.SubjectID == "" {
			event.SubjectID = nil
		}
		event.Date = calendarDay(event.Date, loc)
		switch {
		case event.StudentID == "" || event.ClassID == "" || !event.Status.Valid():
			drops.invalid++
		case !scope.Permits(event.StudentID, event.ClassID):
			drops.outOfScope++
		case !window.Contains(event.Date):
			drops.outOfWindow++
		default:
			key := event.SessionKey()
			if _, dup := seen[key]; dup {
				drops.duplicate++
				continue
			}
			seen[key] = struct{}{}
			events = append(events, event)
		}
	}
	s.logDrops(SectionAttendance, scope, drops)
	return events, nil
}

// Grades returns the scoped grade entries recorded inside the window with a score in [0,100].
func (s *CollectorService) Grades(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.GradeEntry, error) {
	if scope.Empty() {
		return []models.GradeEntry{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.repo.FindGrades(ctx, scope, window)
	s.metrics.ObserveCollector(SectionGrades, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("collect grades: %w", err)
	}

	var drops dropCounter
	entries := make([]models.GradeEntry, 0, len(raw))
	for _, entry := range raw {
		switch {
		case entry.StudentID == "" || entry.ClassID == "" || entry.SubjectID == "" || !validScore(entry.Score):
			drops.invalid++
		case !scope.Permits(entry.StudentID, entry.ClassID):
			drops.outOfScope++
		case !window.Contains(entry.RecordedAt):
			drops.outOfWindow++
		default:
			entries = append(entries, entry)
		}
	}
	s.logDrops(SectionGrades, scope, drops)
	return entries, nil
}

// Tasks returns the tasks of the scoped classes due on or after the window start, with the
// scoped students' submissions against them. Both reads must succeed.
func (s *CollectorService) Tasks(ctx context.Context, scope *models.Scope, window models.TimeRange) (TaskRecords, error) {
	empty := TaskRecords{Tasks: []models.TaskRecord{}, Submissions: []models.SubmissionRecord{}}
	if scope.Empty() || (!scope.Unrestricted && len(scope.ClassIDs) == 0) {
		return empty, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var rawTasks []models.TaskRecord
	var rawSubmissions []models.SubmissionRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawTasks, err = s.repo.FindTasks(gctx, scope, window)
		return err
	})
	g.Go(func() error {
		var err error
		rawSubmissions, err = s.repo.FindSubmissions(gctx, scope, window)
		return err
	})
	err := g.Wait()
	s.metrics.ObserveCollector(SectionTasks, time.Since(start), err)
	if err != nil {
		return empty, fmt.Errorf("collect tasks: %w", err)
	}

	var drops dropCounter
	known := make(map[string]struct{}, len(rawTasks))
	out := TaskRecords{
		Tasks:       make([]models.TaskRecord, 0, len(rawTasks)),
		Submissions: make([]models.SubmissionRecord, 0, len(rawSubmissions)),
	}
	for _, task := range rawTasks {
		switch {
		case task.TaskID == "" || task.ClassID == "" || task.SubjectID == "":
			drops.invalid++
		case !scope.PermitsClass(task.ClassID):
			drops.outOfScope++
		case task.Deadline.Before(window.Start):
			drops.outOfWindow++
		default:
			if _, dup := known[task.TaskID]; dup {
				drops.duplicate++
				continue
			}
			known[task.TaskID] = struct{}{}
			out.Tasks = append(out.Tasks, task)
		}
	}
	for _, submission := range rawSubmissions {
		if submission.Grade != nil && !validScore(*submission.Grade) {
			submission.Grade = nil
			drops.invalid++
		}
		switch {
		case submission.TaskID == "" || submission.StudentID == "":
			drops.invalid++
		case !scope.PermitsStudent(submission.StudentID):
			drops.outOfScope++
		default:
			if _, ok := known[submission.TaskID]; !ok {
				drops.outOfWindow++
				continue
			}
			out.Submissions = append(out.Submissions, submission)
		}
	}
	s.logDrops(SectionTasks, scope, drops)
	return out, nil
}

type dropCounter struct {
	invalid     int
	outOfScope  int
	outOfWindow int
	duplicate   int
}

func (s *CollectorService) logDrops(collector string, scope *models.Scope, drops dropCounter) {
	if drops == (dropCounter{}) {
		return
	}
	fields := []zap.Field{
		zap.String("collector", collector),
		zap.String("role", string(scope.Role)),
		zap.String("user_id", scope.UserID),
		zap.Int("invalid", drops.invalid),
		zap.Int("out_of_scope", drops.outOfScope),
		zap.Int("out_of_window", drops.outOfWindow),
		zap.Int("duplicate", drops.duplicate),
	}
	if drops.outOfScope > 0 {
		s.logger.Warn("collector dropped records outside caller scope", fields...)
		return
	}
	s.logger.Warn("collector dropped records", fields...)
}

func validScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= 100
}

// calendarDay reinterprets the calendar date of t as midnight in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

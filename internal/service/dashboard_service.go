package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

type scopeResolver interface {
	Resolve(ctx context.Context, role models.UserRole, userID string) (*models.Scope, error)
}

type recordCollector interface {
	Attendance(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.AttendanceEvent, error)
	Grades(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.GradeEntry, error)
	Tasks(ctx context.Context, scope *models.Scope, window models.TimeRange) (TaskRecords, error)
}

type enrolmentCounter interface {
	CountEnrolment(ctx context.Context) (models.EnrolmentTotals, error)
}

// SectionEnrolment names the school-wide totals read for the admin view.
const SectionEnrolment = "enrolment"

// DashboardRequest identifies the caller and the requested range token.
type DashboardRequest struct {
	Caller models.Caller
	Range  string
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL               time.Duration
	Location               *time.Location
	AtRiskAttendanceRate   float64
	PassThreshold          float64
	RecentActivityLimit    int
	UpcomingDeadlinesLimit int
}

// DashboardService composes role dashboards from scope, collectors and aggregators.
type DashboardService struct {
	scopes     scopeResolver
	collectors recordCollector
	enrolment  enrolmentCounter
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
	views      map[models.UserRole]dashboardView
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Scopes     scopeResolver
	Collectors recordCollector
	Enrolment  enrolmentCounter
	Cache      *CacheService
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// dashboardView builds one role's dashboard from collected records.
type dashboardView func(in composeInput) *dto.Dashboard

type composeInput struct {
	header dto.DashboardHeader
	scope  *models.Scope
	window models.TimeRange
	now    time.Time
	data   collected
}

type collected struct {
	attendance []models.AttendanceEvent
	grades     []models.GradeEntry
	tasks      TaskRecords
	enrolment  models.EnrolmentTotals
	failed     []string
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.AtRiskAttendanceRate <= 0 {
		cfg.AtRiskAttendanceRate = 75
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 60
	}
	if cfg.RecentActivityLimit <= 0 {
		cfg.RecentActivityLimit = 10
	}
	if cfg.UpcomingDeadlinesLimit <= 0 {
		cfg.UpcomingDeadlinesLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	s := &DashboardService{
		scopes:     params.Scopes,
		collectors: params.Collectors,
		enrolment:  params.Enrolment,
		cache:      params.Cache,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
	s.views = map[models.UserRole]dashboardView{
		models.RoleAdmin:   s.adminView,
		models.RoleTeacher: s.teacherView,
		models.RoleStudent: s.studentView,
		models.RoleParent:  s.parentView,
	}
	return s
}

// Compose returns the caller's dashboard and whether it was served from cache. Unknown range
// tokens fall back to a week and set RangeFallback. Unknown roles yield ErrUnauthorizedScope.
func (s *DashboardService) Compose(ctx context.Context, req DashboardRequest) (*dto.Dashboard, bool, error) {
	if err := s.validator.Struct(req.Caller); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "caller identity incomplete")
	}
	caller := req.Caller
	view, ok := s.views[caller.Role]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrUnauthorizedScope, fmt.Sprintf("role %q has no analytics scope", caller.Role))
	}

	now := s.now().In(s.cfg.Location)
	window, fallback := ResolveRangeOrDefault(req.Range, now)

	cacheKey := dashboardCacheKey(caller, window.Token, now)
	var cached dto.Dashboard
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.RangeFallback = fallback
		s.metrics.ObserveDashboard(caller.Role, cached.Header().Partial, true)
		return &cached, true, nil
	}

	scope, err := s.scopes.Resolve(ctx, caller.Role, caller.UserID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrUnauthorizedScope) {
			return nil, false, err
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve analytics scope")
	}

	data := s.collect(ctx, scope, window)
	in := composeInput{
		header: dto.DashboardHeader{
			Role:           caller.Role,
			Range:          window,
			Partial:        len(data.failed) > 0,
			FailedSections: data.failed,
		},
		scope:  scope,
		window: window,
		now:    now,
		data:   data,
	}
	dashboard := view(in)
	s.metrics.ObserveDashboard(caller.Role, in.header.Partial, false)

	if !in.header.Partial {
		s.cache.Set(ctx, cacheKey, dashboard, s.cfg.CacheTTL)
	}
	dashboard.RangeFallback = fallback
	return dashboard, false, nil
}

// collect runs the three collectors concurrently, plus the enrolment count for unrestricted
// scopes. A failing read leaves its section empty and is named in failed; it never cancels
// the others.
func (s *DashboardService) collect(ctx context.Context, scope *models.Scope, window models.TimeRange) collected {
	out := collected{
		attendance: []models.AttendanceEvent{},
		grades:     []models.GradeEntry{},
		tasks:      TaskRecords{Tasks: []models.TaskRecord{}, Submissions: []models.SubmissionRecord{}},
		failed:     []string{},
	}
	var mu sync.Mutex
	fail := func(section string, err error) error {
		s.logger.Warn("analytics collector failed",
			zap.String("collector", section),
			zap.String("role", string(scope.Role)),
			zap.String("user_id", scope.UserID),
			zap.Error(err),
		)
		mu.Lock()
		out.failed = append(out.failed, section)
		mu.Unlock()
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		events, err := s.collectors.Attendance(ctx, scope, window)
		if err != nil {
			return fail(SectionAttendance, err)
		}
		out.attendance = events
		return nil
	})
	g.Go(func() error {
		entries, err := s.collectors.Grades(ctx, scope, window)
		if err != nil {
			return fail(SectionGrades, err)
		}
		out.grades = entries
		return nil
	})
	g.Go(func() error {
		records, err := s.collectors.Tasks(ctx, scope, window)
		if err != nil {
			return fail(SectionTasks, err)
		}
		out.tasks = records
		return nil
	})
	if scope.Unrestricted && s.enrolment != nil {
		g.Go(func() error {
			totals, err := s.enrolment.CountEnrolment(ctx)
			if err != nil {
				return fail(SectionEnrolment, err)
			}
			out.enrolment = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Debug("dashboard composed with failed sections", zap.Strings("sections", out.failed))
	}
	sort.Strings(out.failed)
	return out
}

func (s *DashboardService) adminView(in composeInput) *dto.Dashboard {
	data := in.data
	return &dto.Dashboard{Admin: &dto.AdminDashboard{
		DashboardHeader: in.header,
		TotalStudents:   data.enrolment.Students,
		TotalClasses:    data.enrolment.Classes,
		ActiveStudents:  countStudents(data),
		ActiveClasses:   countClasses(data),
		Attendance:      AggregateAttendance(data.attendance, in.window),
		Grades:          AggregateGrades(data.grades),
		Tasks:           AggregateTasks(data.tasks.Tasks, data.tasks.Submissions, "", in.now),
		SubjectRanking:  RankSubjects(data.grades),
		RecentActivity:  RecentActivity(data.attendance, data.grades, data.tasks.Submissions, s.cfg.RecentActivityLimit),
	}}
}

func (s *DashboardService) teacherView(in composeInput) *dto.Dashboard {
	data := in.data
	classIDs := in.scope.ClassIDs.Sorted()
	students := in.scope.StudentIDs.Sorted()
	thresholds := AtRiskThresholds{AttendanceRate: s.cfg.AtRiskAttendanceRate, PassThreshold: s.cfg.PassThreshold}
	return &dto.Dashboard{Teacher: &dto.TeacherDashboard{
		DashboardHeader: in.header,
		TeacherID:       in.scope.TeacherID,
		ClassCount:      len(classIDs),
		StudentCount:    len(students),
		Attendance:      AggregateAttendance(data.attendance, in.window),
		Grades:          AggregateGrades(data.grades),
		Tasks:           AggregateTasks(data.tasks.Tasks, data.tasks.Submissions, "", in.now),
		Classes:         SummarizeClasses(classIDs, data.attendance, data.grades, data.tasks.Tasks),
		AtRiskStudents:  DetectAtRisk(students, data.attendance, data.grades, thresholds),
	}}
}

func (s *DashboardService) studentView(in composeInput) *dto.Dashboard {
	data := in.data
	studentID := in.scope.UserID
	return &dto.Dashboard{Student: &dto.StudentDashboard{
		DashboardHeader: in.header,
		StudentID:       studentID,
		MyProgress: dto.StudentProgress{
			Attendance: AggregateAttendance(data.attendance, in.window),
			Grades:     AggregateGrades(data.grades),
			Tasks:      AggregateTasks(data.tasks.Tasks, data.tasks.Submissions, studentID, in.now),
		},
		UpcomingDeadlines: UpcomingDeadlines(data.tasks.Tasks, data.tasks.Submissions, studentID, in.now, s.cfg.UpcomingDeadlinesLimit),
	}}
}

func (s *DashboardService) parentView(in composeInput) *dto.Dashboard {
	data := in.data
	children := in.scope.StudentIDs.Sorted()
	performance := make([]dto.ChildPerformance, 0, len(children))
	for _, childID := range children {
		classes := in.scope.ClassesOf(childID)
		tasks := make([]models.TaskRecord, 0)
		for _, task := range data.tasks.Tasks {
			if classes.Has(task.ClassID) {
				tasks = append(tasks, task)
			}
		}
		performance = append(performance, dto.ChildPerformance{
			StudentID:  childID,
			Attendance: AggregateAttendance(attendanceOf(data.attendance, childID), in.window),
			Grades:     AggregateGrades(gradesOf(data.grades, childID)),
			Tasks:      AggregateTasks(tasks, submissionsOf(data.tasks.Submissions, childID), childID, in.now),
		})
	}
	return &dto.Dashboard{Parent: &dto.ParentDashboard{
		DashboardHeader:     in.header,
		GuardianID:          in.scope.UserID,
		ChildrenAverage:     MeanOfAverages(data.grades, children),
		ChildrenPerformance: performance,
	}}
}

// dashboardCacheKey buckets dashboards by the hour of now.
func dashboardCacheKey(caller models.Caller, token models.RangeToken, now time.Time) string {
	hour := now.UTC().Truncate(time.Hour).Format("2006010215")
	return fmt.Sprintf("dash:%s:%s:%s:%s", strings.ToLower(string(caller.Role)), caller.UserID, token, hour)
}

func countStudents(data collected) int {
	students := models.NewIDSet()
	for _, event := range data.attendance {
		students.Add(event.StudentID)
	}
	for _, entry := range data.grades {
		students.Add(entry.StudentID)
	}
	for _, submission := range data.tasks.Submissions {
		students.Add(submission.StudentID)
	}
	return len(students)
}

func countClasses(data collected) int {
	classes := models.NewIDSet()
	for _, event := range data.attendance {
		classes.Add(event.ClassID)
	}
	for _, entry := range data.grades {
		classes.Add(entry.ClassID)
	}
	for _, task := range data.tasks.Tasks {
		classes.Add(task.ClassID)
	}
	return len(classes)
}

func attendanceOf(events []models.AttendanceEvent, studentID string) []models.AttendanceEvent {
	out := make([]models.AttendanceEvent, 0)
	for _, event := range events {
		if event.StudentID == studentID {
			out = append(out, event)
		}
	}
	return out
}

func gradesOf(entries []models.GradeEntry, studentID string) []models.GradeEntry {
	out := make([]models.GradeEntry, 0)
	for _, entry := range entries {
		if entry.StudentID == studentID {
			out = append(out, entry)
		}
	}
	return out
}

func submissionsOf(submissions []models.SubmissionRecord, studentID string) []models.SubmissionRecord {
	out := make([]models.SubmissionRecord, 0)
	for _, submission := range submissions {
		if submission.StudentID == studentID {
			out = append(out, submission)
		}
	}
	return out
}

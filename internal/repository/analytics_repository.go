package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

// AnalyticsRepository exposes scope and window restricted reads of raw analytics records.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// FindAttendance returns attendance events dated inside the window. Dates compare as calendar
// days in the window's timezone.
func (r *AnalyticsRepository) FindAttendance(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.AttendanceEvent, error) {
	q := newQuery("SELECT a.student_id, a.class_id, a.subject_id, a.date, a.status FROM attendance_events a WHERE 1=1")
	q.where("a.date >= $%d", window.Start.Format(dateLayout))
	q.where("a.date < $%d", window.End.Format(dateLayout))
	q.scope(scope, "a.student_id", "a.class_id")
	q.builder.WriteString(" ORDER BY a.date, a.student_id, a.class_id")

	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, q.String(), q.args...); err != nil {
		return nil, fmt.Errorf("query attendance events: %w", err)
	}
	return events, nil
}

// FindGrades returns grade entries recorded inside the window.
func (r *AnalyticsRepository) FindGrades(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.GradeEntry, error) {
	q := newQuery("SELECT g.student_id, g.subject_id, g.class_id, g.task_id, g.score, g.recorded_at FROM grade_entries g WHERE 1=1")
	q.where("g.recorded_at >= $%d", window.Start)
	q.where("g.recorded_at < $%d", window.End)
	q.scope(scope, "g.student_id", "g.class_id")
	q.builder.WriteString(" ORDER BY g.recorded_at, g.student_id, g.subject_id")

	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, q.String(), q.args...); err != nil {
		return nil, fmt.Errorf("query grade entries: %w", err)
	}
	return entries, nil
}

// FindTasks returns tasks still relevant to the window: those due on or after its start.
func (r *AnalyticsRepository) FindTasks(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.TaskRecord, error) {
	q := newQuery("SELECT t.id AS task_id, t.class_id, t.subject_id, t.teacher_id, t.title, t.deadline, t.status FROM tasks t WHERE 1=1")
	q.where("t.deadline >= $%d", window.Start)
	q.classScope(scope, "t.class_id")
	q.builder.WriteString(" ORDER BY t.deadline, t.id")

	var tasks []models.TaskRecord
	if err := r.db.SelectContext(ctx, &tasks, q.String(), q.args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

// FindSubmissions returns submissions for the tasks FindTasks would return.
func (r *AnalyticsRepository) FindSubmissions(ctx context.Context, scope *models.Scope, window models.TimeRange) ([]models.SubmissionRecord, error) {
	q := newQuery("SELECT s.task_id, s.student_id, s.submitted_at, s.grade FROM task_submissions s JOIN tasks t ON t.id = s.task_id WHERE 1=1")
	q.where("t.deadline >= $%d", window.Start)
	q.studentScope(scope, "s.student_id")
	q.builder.WriteString(" ORDER BY s.submitted_at, s.task_id, s.student_id")

	var submissions []models.SubmissionRecord
	if err := r.db.SelectContext(ctx, &submissions, q.String(), q.args...); err != nil {
		return nil, fmt.Errorf("query task submissions: %w", err)
	}
	return submissions, nil
}

const dateLayout = "2006-01-02"

type query struct {
	builder strings.Builder
	args    []interface{}
}

func newQuery(base string) *query {
	q := &query{}
	q.builder.WriteString(base)
	return q
}

// where appends an AND condition whose %d placeholder receives the next bind index.
func (q *query) where(condition string, arg interface{}) {
	q.args = append(q.args, arg)
	q.builder.WriteString(" AND ")
	q.builder.WriteString(fmt.Sprintf(condition, len(q.args)))
}

// scope restricts student/class records by the scope basis. A nil scope admits nothing.
func (q *query) scope(scope *models.Scope, studentCol, classCol string) {
	if scope != nil && !scope.Unrestricted && scope.Basis == models.ScopeByClass {
		q.classScope(scope, classCol)
		return
	}
	q.studentScope(scope, studentCol)
}

func (q *query) classScope(scope *models.Scope, col string) {
	switch {
	case scope == nil:
		q.builder.WriteString(" AND 1=0")
	case !scope.Unrestricted:
		q.where(col+" = ANY($%d)", pq.Array(scope.ClassIDs.Sorted()))
	}
}

func (q *query) studentScope(scope *models.Scope, col string) {
	switch {
	case scope == nil:
		q.builder.WriteString(" AND 1=0")
	case !scope.Unrestricted:
		q.where(col+" = ANY($%d)", pq.Array(scope.StudentIDs.Sorted()))
	}
}

func (q *query) String() string {
	return q.builder.String()
}

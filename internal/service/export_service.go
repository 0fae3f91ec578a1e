package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type dashboardComposer interface {
	Compose(ctx context.Context, req DashboardRequest) (*dto.Dashboard, bool, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportRequest asks for the caller's dashboard rendered as a file.
type ExportRequest struct {
	Dashboard DashboardRequest `validate:"-"`
	Format    string           `validate:"required,oneof=csv pdf"`
}

// ExportResult is a rendered dashboard export.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders dashboards through the CSV and PDF exporters.
type ExportService struct {
	dashboards dashboardComposer
	csv        reportRenderer
	pdf        reportRenderer
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(dashboards dashboardComposer, validate *validator.Validate, logger *zap.Logger, csv, pdf reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{dashboards: dashboards, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Export composes the caller's dashboard and renders it in the requested format.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	dashboard, _, err := s.dashboards.Compose(ctx, req.Dashboard)
	if err != nil {
		return nil, err
	}

	report := BuildDashboardReport(dashboard)
	header := dashboard.Header()
	filename := fmt.Sprintf("dashboard-%s-%s-%s.%s",
		strings.ToLower(string(header.Role)),
		header.Range.Token,
		header.Range.End.Format(dateLayout),
		req.Format,
	)

	var payload []byte
	var contentType string
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(report)
		contentType = "text/csv"
	default:
		payload, err = s.pdf.Render(report)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render dashboard export")
	}
	s.logger.Info("dashboard exported",
		zap.String("role", string(header.Role)),
		zap.String("format", req.Format),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

// BuildDashboardReport flattens a dashboard into a summary table, the attendance trend and
// the role specific lists.
func BuildDashboardReport(d *dto.Dashboard) export.Report {
	header := d.Header()
	report := export.Report{Title: fmt.Sprintf("%s dashboard %s", strings.ToLower(string(header.Role)), header.Range.Token)}
	summary := export.Table{Title: "Summary", Headers: []string{"metric", "value"}}
	summary.Rows = append(summary.Rows,
		[]string{"range_start", header.Range.Start.Format(dateLayout)},
		[]string{"range_end", header.Range.End.Format(dateLayout)},
		[]string{"partial", strconv.FormatBool(header.Partial)},
	)

	var trend []dto.AttendanceTrendPoint
	var extra []export.Table
	switch {
	case d.Admin != nil:
		v := d.Admin
		summary.Rows = append(summary.Rows,
			[]string{"total_students", strconv.Itoa(v.TotalStudents)},
			[]string{"total_classes", strconv.Itoa(v.TotalClasses)},
			[]string{"active_students", strconv.Itoa(v.ActiveStudents)},
			[]string{"active_classes", strconv.Itoa(v.ActiveClasses)},
		)
		summary.Rows = append(summary.Rows, headlineRows(v.Attendance, v.Grades, v.Tasks)...)
		trend = v.Attendance.Trend
		ranking := export.Table{Title: "Subject ranking", Headers: []string{"rank", "subject", "average", "grades"}}
		for _, r := range v.SubjectRanking {
			ranking.Rows = append(ranking.Rows, []string{strconv.Itoa(r.Rank), r.SubjectID, formatScore(r.Average), strconv.Itoa(r.Count)})
		}
		extra = append(extra, distributionTable(v.Grades), ranking)
	case d.Teacher != nil:
		v := d.Teacher
		summary.Rows = append(summary.Rows,
			[]string{"classes", strconv.Itoa(v.ClassCount)},
			[]string{"students", strconv.Itoa(v.StudentCount)},
		)
		summary.Rows = append(summary.Rows, headlineRows(v.Attendance, v.Grades, v.Tasks)...)
		trend = v.Attendance.Trend
		classes := export.Table{Title: "Classes", Headers: []string{"class", "attendance_rate", "average_grade", "tasks", "completed"}}
		for _, c := range v.Classes {
			classes.Rows = append(classes.Rows, []string{c.ClassID, strconv.Itoa(c.AttendanceRate), formatScore(c.AverageGrade), strconv.Itoa(c.TotalTasks), strconv.Itoa(c.CompletedTasks)})
		}
		atRisk := export.Table{Title: "At-risk students", Headers: []string{"student", "attendance_rate", "average_grade", "low_attendance", "low_grades"}}
		for _, a := range v.AtRiskStudents {
			atRisk.Rows = append(atRisk.Rows, []string{a.StudentID, strconv.Itoa(a.AttendanceRate), formatScore(a.AverageGrade), strconv.FormatBool(a.LowAttendance), strconv.FormatBool(a.LowGrades)})
		}
		extra = append(extra, distributionTable(v.Grades), classes, atRisk)
	case d.Student != nil:
		v := d.Student
		summary.Rows = append(summary.Rows, headlineRows(v.MyProgress.Attendance, v.MyProgress.Grades, v.MyProgress.Tasks)...)
		trend = v.MyProgress.Attendance.Trend
		upcoming := export.Table{Title: "Upcoming deadlines", Headers: []string{"task", "title", "subject", "deadline"}}
		for _, u := range v.UpcomingDeadlines {
			upcoming.Rows = append(upcoming.Rows, []string{u.TaskID, u.Title, u.SubjectID, u.Deadline.Format("2006-01-02 15:04")})
		}
		extra = append(extra, distributionTable(v.MyProgress.Grades), upcoming)
	case d.Parent != nil:
		v := d.Parent
		summary.Rows = append(summary.Rows, []string{"children_average", formatScore(v.ChildrenAverage)})
		children := export.Table{Title: "Children", Headers: []string{"student", "attendance_rate", "average_grade", "completion_rate", "pending_tasks"}}
		for _, c := range v.ChildrenPerformance {
			pending := ""
			if c.Tasks.PendingTasks != nil {
				pending = strconv.Itoa(*c.Tasks.PendingTasks)
			}
			children.Rows = append(children.Rows, []string{c.StudentID, strconv.Itoa(c.Attendance.Rate), formatScore(c.Grades.Average), strconv.Itoa(c.Tasks.CompletionRate), pending})
		}
		extra = append(extra, children)
	}

	report.Tables = append(report.Tables, summary)
	if trend != nil {
		table := export.Table{Title: "Attendance trend", Headers: []string{"date", "present", "absent"}}
		for _, p := range trend {
			table.Rows = append(table.Rows, []string{p.Date, strconv.Itoa(p.Present), strconv.Itoa(p.Absent)})
		}
		report.Tables = append(report.Tables, table)
	}
	report.Tables = append(report.Tables, extra...)
	return report
}

func headlineRows(attendance dto.AttendanceSummary, grades dto.GradeSummary, tasks dto.TaskSummary) [][]string {
	return [][]string{
		{"attendance_rate", strconv.Itoa(attendance.Rate)},
		{"attendance_events", strconv.Itoa(attendance.Total)},
		{"average_grade", formatScore(grades.Average)},
		{"highest_grade", formatScore(grades.Highest)},
		{"lowest_grade", formatScore(grades.Lowest)},
		{"total_tasks", strconv.Itoa(tasks.TotalTasks)},
		{"completed_tasks", strconv.Itoa(tasks.CompletedTasks)},
		{"completion_rate", strconv.Itoa(tasks.CompletionRate)},
	}
}

func distributionTable(grades dto.GradeSummary) export.Table {
	table := export.Table{Title: "Grade distribution", Headers: []string{"bucket", "count"}}
	for _, bin := range grades.Distribution {
		table.Rows = append(table.Rows, []string{bin.Bucket, strconv.Itoa(bin.Count)})
	}
	return table
}

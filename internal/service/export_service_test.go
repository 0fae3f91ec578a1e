package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
	"github.com/noah-isme/sma-analytics-api/pkg/export"
)

type composerStub struct {
	dashboard *dto.Dashboard
	err       error
	requests  []DashboardRequest
}

func (c *composerStub) Compose(_ context.Context, req DashboardRequest) (*dto.Dashboard, bool, error) {
	c.requests = append(c.requests, req)
	return c.dashboard, false, c.err
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Report) ([]byte, error) {
	return nil, errors.New("render failed")
}

func studentDashboard() *dto.Dashboard {
	window := weekWindow()
	return &dto.Dashboard{Student: &dto.StudentDashboard{
		DashboardHeader: dto.DashboardHeader{Role: models.RoleStudent, Range: window, FailedSections: []string{}},
		StudentID:       "s1",
		MyProgress: dto.StudentProgress{
			Attendance: AggregateAttendance([]models.AttendanceEvent{event("s1", "c1", 8, models.AttendanceStatusPresent)}, window),
			Grades:     AggregateGrades([]models.GradeEntry{grade("s1", "c1", "math", 84)}),
			Tasks:      AggregateTasks(nil, nil, "s1", dashboardNow),
		},
		UpcomingDeadlines: []dto.UpcomingDeadline{{
			TaskID:    "k1",
			SubjectID: "math",
			Title:     "Essay",
			Deadline:  time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC),
		}},
	}}
}

func TestExportServiceCSV(t *testing.T) {
	composer := &composerStub{dashboard: studentDashboard()}
	svc := NewExportService(composer, nil, nil, nil, nil)
	req := ExportRequest{Dashboard: request(models.RoleStudent, "s1", "week"), Format: " CSV "}

	result, err := svc.Export(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "dashboard-student-week-2024-03-15.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	body := string(result.Payload)
	assert.Contains(t, body, "Summary\nmetric,value\n")
	assert.Contains(t, body, "average_grade,84\n")
	assert.Contains(t, body, "2024-03-08,1,0\n")
	assert.Contains(t, body, "k1,Essay,math,2024-03-16 10:00\n")
	require.Len(t, composer.requests, 1)
	assert.Equal(t, "s1", composer.requests[0].Caller.UserID)
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(&composerStub{dashboard: studentDashboard()}, nil, nil, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{Dashboard: request(models.RoleStudent, "s1", "week"), Format: "pdf"})

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportServiceErrors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		composer := &composerStub{dashboard: studentDashboard()}
		svc := NewExportService(composer, nil, nil, nil, nil)
		_, err := svc.Export(context.Background(), ExportRequest{Dashboard: request(models.RoleStudent, "s1", "week"), Format: "xlsx"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
		assert.Empty(t, composer.requests)
	})

	t.Run("compose failure passes through", func(t *testing.T) {
		svc := NewExportService(&composerStub{err: appErrors.ErrUnauthorizedScope}, nil, nil, nil, nil)
		_, err := svc.Export(context.Background(), ExportRequest{Dashboard: request(models.UserRole("X"), "x", "week"), Format: "csv"})
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorizedScope))
	})

	t.Run("render failure", func(t *testing.T) {
		svc := NewExportService(&composerStub{dashboard: studentDashboard()}, nil, nil, failingRenderer{}, nil)
		_, err := svc.Export(context.Background(), ExportRequest{Dashboard: request(models.RoleStudent, "s1", "week"), Format: "csv"})
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
	})
}

func TestBuildDashboardReportParent(t *testing.T) {
	pending := 2
	d := &dto.Dashboard{Parent: &dto.ParentDashboard{
		DashboardHeader: dto.DashboardHeader{Role: models.RoleParent, Range: weekWindow(), Partial: true, FailedSections: []string{SectionTasks}},
		GuardianID:      "p1",
		ChildrenAverage: 70,
		ChildrenPerformance: []dto.ChildPerformance{{
			StudentID:  "s1",
			Attendance: dto.AttendanceSummary{Rate: 90},
			Grades:     dto.GradeSummary{Average: 80},
			Tasks:      dto.TaskSummary{CompletionRate: 50, PendingTasks: &pending},
		}},
	}}

	report := BuildDashboardReport(d)

	assert.Equal(t, "parent dashboard week", report.Title)
	require.Len(t, report.Tables, 2)
	assert.Contains(t, report.Tables[0].Rows, []string{"partial", "true"})
	assert.Contains(t, report.Tables[0].Rows, []string{"children_average", "70"})
	assert.Equal(t, "Children", report.Tables[1].Title)
	assert.Equal(t, [][]string{{"s1", "90", "80", "50", "2"}}, report.Tables[1].Rows)
}

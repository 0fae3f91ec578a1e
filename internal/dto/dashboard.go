package dto

import (
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

// AttendanceTrendPoint is one calendar day of the attendance trend. Excused, sick and absent
// marks all count as absent.
type AttendanceTrendPoint struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// AttendanceBreakdown keeps every attendance status distinct.
type AttendanceBreakdown struct {
	Present int `json:"present"`
	Excused int `json:"excused"`
	Sick    int `json:"sick"`
	Absent  int `json:"absent"`
}

// AttendanceSummary aggregates attendance over a window.
type AttendanceSummary struct {
	Rate      int                    `json:"rate"`
	Total     int                    `json:"total"`
	Trend     []AttendanceTrendPoint `json:"trend"`
	Breakdown AttendanceBreakdown    `json:"breakdown"`
}

// GradeDistributionBin captures grade bucket counts.
type GradeDistributionBin struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// SubjectAverage is the rounded grade average of one subject.
type SubjectAverage struct {
	SubjectID string  `json:"subjectId"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// GradeSummary aggregates grade entries.
type GradeSummary struct {
	Count        int                    `json:"count"`
	Average      float64                `json:"average"`
	Highest      float64                `json:"highest"`
	Lowest       float64                `json:"lowest"`
	Distribution []GradeDistributionBin `json:"distribution"`
	BySubject    []SubjectAverage       `json:"bySubject"`
}

// TaskSummary aggregates task completion. PendingTasks is set only for a single student.
type TaskSummary struct {
	TotalTasks     int  `json:"totalTasks"`
	CompletedTasks int  `json:"completedTasks"`
	CompletionRate int  `json:"completionRate"`
	PendingTasks   *int `json:"pendingTasks,omitempty"`
}

// UpcomingDeadline is an open task the student has not submitted yet.
type UpcomingDeadline struct {
	TaskID    string    `json:"taskId"`
	ClassID   string    `json:"classId"`
	SubjectID string    `json:"subjectId"`
	Title     string    `json:"title"`
	Deadline  time.Time `json:"deadline"`
}

// SubjectRank places a subject by grade average. Equal averages share a rank.
type SubjectRank struct {
	Rank      int     `json:"rank"`
	SubjectID string  `json:"subjectId"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// ActivityKind names the record an activity item came from.
type ActivityKind string

const (
	ActivityAttendance ActivityKind = "attendance"
	ActivityGrade      ActivityKind = "grade"
	ActivitySubmission ActivityKind = "submission"
)

// ActivityItem is one entry of the recent activity feed.
type ActivityItem struct {
	Kind      ActivityKind `json:"kind"`
	StudentID string       `json:"studentId"`
	ClassID   string       `json:"classId,omitempty"`
	SubjectID string       `json:"subjectId,omitempty"`
	TaskID    string       `json:"taskId,omitempty"`
	Detail    string       `json:"detail"`
	Timestamp time.Time    `json:"timestamp"`
}

// ClassSummary is the per-class view of a teacher's dashboard.
type ClassSummary struct {
	ClassID        string  `json:"classId"`
	AttendanceRate int     `json:"attendanceRate"`
	AverageGrade   float64 `json:"averageGrade"`
	GradeCount     int     `json:"gradeCount"`
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
}

// AtRiskStudent flags a student with low attendance or a failing average.
type AtRiskStudent struct {
	StudentID      string  `json:"studentId"`
	AttendanceRate int     `json:"attendanceRate"`
	AverageGrade   float64 `json:"averageGrade"`
	LowAttendance  bool    `json:"lowAttendance"`
	LowGrades      bool    `json:"lowGrades"`
}

// ChildPerformance is one linked child of a parent dashboard.
type ChildPerformance struct {
	StudentID  string            `json:"studentId"`
	Attendance AttendanceSummary `json:"attendance"`
	Grades     GradeSummary      `json:"grades"`
	Tasks      TaskSummary       `json:"tasks"`
}

// StudentProgress is the student's own metrics.
type StudentProgress struct {
	Attendance AttendanceSummary `json:"attendance"`
	Grades     GradeSummary      `json:"grades"`
	Tasks      TaskSummary       `json:"tasks"`
}

// DashboardHeader is shared by every role view. FailedSections lists the collectors that
// failed; their sections hold defaults.
type DashboardHeader struct {
	Role           models.UserRole  `json:"role"`
	Range          models.TimeRange `json:"range"`
	Partial        bool             `json:"partial"`
	FailedSections []string         `json:"failedSections"`
}

// AdminDashboard is the school-wide view. Totals count enrolment; active counts cover the
// students and classes with records in the window.
type AdminDashboard struct {
	DashboardHeader
	TotalStudents  int               `json:"totalStudents"`
	TotalClasses   int               `json:"totalClasses"`
	ActiveStudents int               `json:"activeStudents"`
	ActiveClasses  int               `json:"activeClasses"`
	Attendance     AttendanceSummary `json:"attendance"`
	Grades         GradeSummary      `json:"grades"`
	Tasks          TaskSummary       `json:"tasks"`
	SubjectRanking []SubjectRank     `json:"subjectRanking"`
	RecentActivity []ActivityItem    `json:"recentActivity"`
}

// TeacherDashboard covers the classes the teacher teaches.
type TeacherDashboard struct {
	DashboardHeader
	TeacherID      string            `json:"teacherId"`
	ClassCount     int               `json:"classCount"`
	StudentCount   int               `json:"studentCount"`
	Attendance     AttendanceSummary `json:"attendance"`
	Grades         GradeSummary      `json:"grades"`
	Tasks          TaskSummary       `json:"tasks"`
	Classes        []ClassSummary    `json:"classes"`
	AtRiskStudents []AtRiskStudent   `json:"atRiskStudents"`
}

// StudentDashboard covers the caller only.
type StudentDashboard struct {
	DashboardHeader
	StudentID         string             `json:"studentId"`
	MyProgress        StudentProgress    `json:"myProgress"`
	UpcomingDeadlines []UpcomingDeadline `json:"upcomingDeadlines"`
}

// ParentDashboard covers the guardian's confirmed children.
type ParentDashboard struct {
	DashboardHeader
	GuardianID          string             `json:"guardianId"`
	ChildrenAverage     float64            `json:"childrenAverage"`
	ChildrenPerformance []ChildPerformance `json:"childrenPerformance"`
}

// Dashboard holds exactly one role view.
type Dashboard struct {
	Admin   *AdminDashboard   `json:"admin,omitempty"`
	Teacher *TeacherDashboard `json:"teacher,omitempty"`
	Student *StudentDashboard `json:"student,omitempty"`
	Parent  *ParentDashboard  `json:"parent,omitempty"`

	// RangeFallback is request metadata and is not cached with the dashboard.
	RangeFallback bool `json:"-"`
}

// Header returns the role view's shared header.
func (d *Dashboard) Header() DashboardHeader {
	switch {
	case d == nil:
		return DashboardHeader{}
	case d.Admin != nil:
		return d.Admin.DashboardHeader
	case d.Teacher != nil:
		return d.Teacher.DashboardHeader
	case d.Student != nil:
		return d.Student.DashboardHeader
	case d.Parent != nil:
		return d.Parent.DashboardHeader
	default:
		return DashboardHeader{}
	}
}

// Payload returns the role view for rendering.
func (d *Dashboard) Payload() interface{} {
	switch {
	case d == nil:
		return nil
	case d.Admin != nil:
		return d.Admin
	case d.Teacher != nil:
		return d.Teacher
	case d.Student != nil:
		return d.Student
	case d.Parent != nil:
		return d.Parent
	default:
		return nil
	}
}

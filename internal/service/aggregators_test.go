package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
)

func weekWindow() models.TimeRange {
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return models.TimeRange{Token: models.RangeWeek, Start: end.AddDate(0, 0, -7), End: end}
}

func event(student, class string, day int, status models.AttendanceStatus) models.AttendanceEvent {
	return models.AttendanceEvent{
		StudentID: student,
		ClassID:   class,
		Date:      time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Status:    status,
	}
}

func grade(student, class, subject string, score float64) models.GradeEntry {
	return models.GradeEntry{
		StudentID:  student,
		ClassID:    class,
		SubjectID:  subject,
		Score:      score,
		RecordedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestAggregateAttendanceTrendCoversEveryDay(t *testing.T) {
	events := []models.AttendanceEvent{
		event("s1", "c1", 8, models.AttendanceStatusPresent),
		event("s2", "c1", 8, models.AttendanceStatusSick),
		event("s1", "c1", 9, models.AttendanceStatusPresent),
		event("s2", "c1", 9, models.AttendanceStatusExcused),
		event("s3", "c1", 14, models.AttendanceStatusAbsent),
	}

	summary := AggregateAttendance(events, weekWindow())

	require.Len(t, summary.Trend, 7)
	assert.Equal(t, "2024-03-08", summary.Trend[0].Date)
	assert.Equal(t, "2024-03-14", summary.Trend[6].Date)
	assert.Equal(t, dto.AttendanceTrendPoint{Date: "2024-03-08", Present: 1, Absent: 1}, summary.Trend[0])
	assert.Equal(t, dto.AttendanceTrendPoint{Date: "2024-03-11"}, summary.Trend[3])
	assert.Equal(t, dto.AttendanceTrendPoint{Date: "2024-03-14", Absent: 1}, summary.Trend[6])
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 40, summary.Rate)
	assert.Equal(t, dto.AttendanceBreakdown{Present: 2, Excused: 1, Sick: 1, Absent: 1}, summary.Breakdown)
}

func TestAggregateAttendanceKeepsRecordedDayWestOfUTC(t *testing.T) {
	newYork := time.FixedZone("EST", -5*60*60)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, newYork)
	window := models.TimeRange{Token: models.RangeWeek, Start: end.AddDate(0, 0, -7), End: end}
	events := []models.AttendanceEvent{
		event("s1", "c1", 8, models.AttendanceStatusPresent),
		event("s1", "c1", 14, models.AttendanceStatusAbsent),
	}

	summary := AggregateAttendance(events, window)

	require.Len(t, summary.Trend, 7)
	assert.Equal(t, dto.AttendanceTrendPoint{Date: "2024-03-08", Present: 1}, summary.Trend[0])
	assert.Equal(t, dto.AttendanceTrendPoint{Date: "2024-03-14", Absent: 1}, summary.Trend[6])
	assert.Equal(t, 2, summary.Total)
}

func TestAggregateAttendanceEmpty(t *testing.T) {
	summary := AggregateAttendance(nil, weekWindow())

	assert.Zero(t, summary.Rate)
	assert.Zero(t, summary.Total)
	require.Len(t, summary.Trend, 7)
	for _, point := range summary.Trend {
		assert.Zero(t, point.Present)
		assert.Zero(t, point.Absent)
	}
}

func TestAggregateGrades(t *testing.T) {
	entries := []models.GradeEntry{
		grade("s1", "c1", "math", 95),
		grade("s2", "c1", "math", 82),
		grade("s3", "c1", "bio", 71),
		grade("s4", "c1", "bio", 65),
		grade("s5", "c1", "art", 40),
	}

	summary := AggregateGrades(entries)

	assert.Equal(t, 5, summary.Count)
	assert.Equal(t, 71.0, summary.Average)
	assert.Equal(t, 95.0, summary.Highest)
	assert.Equal(t, 40.0, summary.Lowest)
	require.Len(t, summary.Distribution, 5)
	for i, bucket := range []string{"A", "B", "C", "D", "F"} {
		assert.Equal(t, dto.GradeDistributionBin{Bucket: bucket, Count: 1}, summary.Distribution[i])
	}
	assert.Equal(t, []dto.SubjectAverage{
		{SubjectID: "art", Average: 40, Count: 1},
		{SubjectID: "bio", Average: 68, Count: 2},
		{SubjectID: "math", Average: 89, Count: 2},
	}, summary.BySubject)
}

func TestAggregateGradesBucketBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		bucket string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"}, {70, "C"}, {69.5, "D"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		summary := AggregateGrades([]models.GradeEntry{grade("s1", "c1", "math", tc.score)})
		for _, bin := range summary.Distribution {
			want := 0
			if bin.Bucket == tc.bucket {
				want = 1
			}
			assert.Equalf(t, want, bin.Count, "score %v bucket %s", tc.score, bin.Bucket)
		}
	}
}

func TestAggregateGradesEmpty(t *testing.T) {
	summary := AggregateGrades(nil)

	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Average)
	assert.Zero(t, summary.Highest)
	assert.Zero(t, summary.Lowest)
	assert.Len(t, summary.Distribution, 5)
	assert.NotNil(t, summary.BySubject)
}

func TestAggregateTasks(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	tasks := []models.TaskRecord{
		{TaskID: "t1", ClassID: "c1", SubjectID: "math", Deadline: now.Add(-time.Hour), Status: models.TaskStatusCompleted},
		{TaskID: "t2", ClassID: "c1", SubjectID: "math", Deadline: now.Add(48 * time.Hour), Status: models.TaskStatusOpen},
		{TaskID: "t3", ClassID: "c1", SubjectID: "bio", Deadline: now.Add(24 * time.Hour), Status: models.TaskStatusOpen},
	}
	submissions := []models.SubmissionRecord{{TaskID: "t2", StudentID: "s1", SubmittedAt: now}}

	summary := AggregateTasks(tasks, submissions, "", now)
	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 1, summary.CompletedTasks)
	assert.Equal(t, 33, summary.CompletionRate)
	assert.Nil(t, summary.PendingTasks)

	mine := AggregateTasks(tasks, submissions, "s1", now)
	require.NotNil(t, mine.PendingTasks)
	assert.Equal(t, 1, *mine.PendingTasks)

	empty := AggregateTasks(nil, nil, "", now)
	assert.Equal(t, dto.TaskSummary{}, empty)
}

func TestUpcomingDeadlines(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	tasks := []models.TaskRecord{
		{TaskID: "t1", Title: "Past", Deadline: now.Add(-time.Minute)},
		{TaskID: "t2", Title: "Later", Deadline: now.Add(72 * time.Hour)},
		{TaskID: "t3", Title: "Soon", Deadline: now.Add(time.Hour)},
		{TaskID: "t4", Title: "Done", Deadline: now.Add(2 * time.Hour)},
		{TaskID: "t5", Title: "Also soon", Deadline: now.Add(time.Hour)},
	}
	submissions := []models.SubmissionRecord{{TaskID: "t4", StudentID: "s1"}}

	upcoming := UpcomingDeadlines(tasks, submissions, "s1", now, 2)

	require.Len(t, upcoming, 2)
	assert.Equal(t, "t3", upcoming[0].TaskID)
	assert.Equal(t, "t5", upcoming[1].TaskID)

	all := UpcomingDeadlines(tasks, submissions, "s1", now, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "t2", all[2].TaskID)
}

func TestRankSubjectsSharesTiedRanks(t *testing.T) {
	entries := []models.GradeEntry{
		grade("s1", "c1", "math", 90),
		grade("s1", "c1", "bio", 80),
		grade("s2", "c1", "bio", 100),
		grade("s1", "c1", "art", 70),
		grade("s1", "c1", "chem", 90.4),
	}

	ranking := RankSubjects(entries)

	assert.Equal(t, []dto.SubjectRank{
		{Rank: 1, SubjectID: "chem", Average: 90, Count: 1},
		{Rank: 2, SubjectID: "bio", Average: 90, Count: 2},
		{Rank: 2, SubjectID: "math", Average: 90, Count: 1},
		{Rank: 4, SubjectID: "art", Average: 70, Count: 1},
	}, ranking)
	assert.Empty(t, RankSubjects(nil))
}

func TestDetectAtRisk(t *testing.T) {
	events := []models.AttendanceEvent{
		event("s1", "c1", 8, models.AttendanceStatusPresent),
		event("s1", "c1", 9, models.AttendanceStatusAbsent),
		event("s2", "c1", 8, models.AttendanceStatusPresent),
		event("s2", "c1", 9, models.AttendanceStatusPresent),
		event("s2", "c1", 10, models.AttendanceStatusPresent),
		event("s2", "c1", 11, models.AttendanceStatusSick),
	}
	entries := []models.GradeEntry{
		grade("s2", "c1", "math", 80),
		grade("s3", "c1", "math", 59.6),
		grade("s4", "c1", "math", 60),
	}
	thresholds := AtRiskThresholds{AttendanceRate: 75, PassThreshold: 60}

	flagged := DetectAtRisk([]string{"s4", "s5", "s3", "s2", "s1"}, events, entries, thresholds)

	assert.Equal(t, []dto.AtRiskStudent{
		{StudentID: "s1", AttendanceRate: 50, LowAttendance: true},
		{StudentID: "s3", AverageGrade: 60, LowGrades: true},
	}, flagged)
}

func TestDetectAtRiskIgnoresUnlistedStudents(t *testing.T) {
	events := []models.AttendanceEvent{
		event("s1", "c1", 8, models.AttendanceStatusPresent),
		event("outsider", "c1", 8, models.AttendanceStatusAbsent),
	}
	entries := []models.GradeEntry{grade("outsider", "c1", "bio", 30)}
	thresholds := AtRiskThresholds{AttendanceRate: 75, PassThreshold: 60}

	assert.Empty(t, DetectAtRisk([]string{"s1"}, events, entries, thresholds))
}

func TestSummarizeClasses(t *testing.T) {
	events := []models.AttendanceEvent{
		event("s1", "c1", 8, models.AttendanceStatusPresent),
		event("s2", "c1", 8, models.AttendanceStatusAbsent),
		event("s3", "c9", 8, models.AttendanceStatusPresent),
	}
	entries := []models.GradeEntry{grade("s1", "c1", "math", 70), grade("s2", "c1", "math", 81)}
	tasks := []models.TaskRecord{
		{TaskID: "t1", ClassID: "c1", Status: models.TaskStatusCompleted},
		{TaskID: "t2", ClassID: "c2", Status: models.TaskStatusOpen},
	}

	summaries := SummarizeClasses([]string{"c1", "c2"}, events, entries, tasks)

	assert.Equal(t, []dto.ClassSummary{
		{ClassID: "c1", AttendanceRate: 50, AverageGrade: 76, GradeCount: 2, TotalTasks: 1, CompletedTasks: 1},
		{ClassID: "c2", TotalTasks: 1},
	}, summaries)
}

func TestRecentActivityOrdersAndLimits(t *testing.T) {
	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	events := []models.AttendanceEvent{
		{StudentID: "s2", ClassID: "c1", Date: at, Status: models.AttendanceStatusPresent},
		{StudentID: "s1", ClassID: "c1", Date: at.Add(-time.Hour), Status: models.AttendanceStatusAbsent},
	}
	entries := []models.GradeEntry{{StudentID: "s1", ClassID: "c1", SubjectID: "math", Score: 88.5, RecordedAt: at}}
	submissions := []models.SubmissionRecord{
		{TaskID: "t1", StudentID: "s1", SubmittedAt: at.Add(time.Hour), Grade: floatPtr(90)},
		{TaskID: "t2", StudentID: "s3", SubmittedAt: at},
	}

	feed := RecentActivity(events, entries, submissions, 4)

	require.Len(t, feed, 4)
	assert.Equal(t, dto.ActivitySubmission, feed[0].Kind)
	assert.Equal(t, "graded 90", feed[0].Detail)
	assert.Equal(t, dto.ActivityAttendance, feed[1].Kind)
	assert.Equal(t, "s2", feed[1].StudentID)
	assert.Equal(t, dto.ActivityGrade, feed[2].Kind)
	assert.Equal(t, "88.5", feed[2].Detail)
	assert.Equal(t, dto.ActivitySubmission, feed[3].Kind)
	assert.Equal(t, "submitted", feed[3].Detail)

	assert.Len(t, RecentActivity(events, entries, submissions, 0), 5)
	assert.Empty(t, RecentActivity(nil, nil, nil, 10))
}

func TestMeanOfAverages(t *testing.T) {
	entries := []models.GradeEntry{
		grade("s1", "c1", "math", 90),
		grade("s1", "c1", "bio", 70),
		grade("s2", "c2", "math", 60),
	}

	assert.Equal(t, 70.0, MeanOfAverages(entries, []string{"s1", "s2"}))
	assert.Equal(t, 80.0, MeanOfAverages(entries, []string{"s1", "s3"}))
	assert.Zero(t, MeanOfAverages(entries, []string{"s3"}))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 0, percentage(0, 3))
	assert.Equal(t, 100, percentage(3, 3))
	assert.Equal(t, 67, percentage(2, 3))
	assert.Equal(t, 50, percentage(1, 2))
}

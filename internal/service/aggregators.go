package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/noah-isme/sma-analytics-api/internal/dto"
	"github.com/noah-isme/sma-analytics-api/internal/models"
)

const dateLayout = "2006-01-02"

var gradeBuckets = []string{"A", "B", "C", "D", "F"}

// AggregateAttendance folds events into one trend point per calendar day of the window.
func AggregateAttendance(events []models.AttendanceEvent, window models.TimeRange) dto.AttendanceSummary {
	days := window.Days()
	summary := dto.AttendanceSummary{Trend: make([]dto.AttendanceTrendPoint, len(days))}
	index := make(map[string]int, len(days))
	for i, d := range days {
		key := d.Format(dateLayout)
		summary.Trend[i] = dto.AttendanceTrendPoint{Date: key}
		index[key] = i
	}

	for _, event := range events {
		i, ok := index[event.Date.Format(dateLayout)]
		if !ok {
			continue
		}
		summary.Total++
		switch event.Status {
		case models.AttendanceStatusPresent:
			summary.Trend[i].Present++
			summary.Breakdown.Present++
			continue
		case models.AttendanceStatusExcused:
			summary.Breakdown.Excused++
		case models.AttendanceStatusSick:
			summary.Breakdown.Sick++
		default:
			summary.Breakdown.Absent++
		}
		summary.Trend[i].Absent++
	}
	summary.Rate = percentage(summary.Breakdown.Present, summary.Total)
	return summary
}

// AggregateGrades summarises scores. Empty input yields zeros and five empty buckets.
func AggregateGrades(entries []models.GradeEntry) dto.GradeSummary {
	summary := dto.GradeSummary{
		Distribution: make([]dto.GradeDistributionBin, len(gradeBuckets)),
		BySubject:    []dto.SubjectAverage{},
	}
	for i, bucket := range gradeBuckets {
		summary.Distribution[i].Bucket = bucket
	}
	if len(entries) == 0 {
		return summary
	}

	var total float64
	summary.Highest = entries[0].Score
	summary.Lowest = entries[0].Score
	for _, entry := range entries {
		total += entry.Score
		summary.Highest = math.Max(summary.Highest, entry.Score)
		summary.Lowest = math.Min(summary.Lowest, entry.Score)
		summary.Distribution[gradeBucketIndex(entry.Score)].Count++
	}
	summary.Count = len(entries)
	summary.Average = math.Round(total / float64(len(entries)))

	for _, acc := range subjectAverages(entries) {
		summary.BySubject = append(summary.BySubject, dto.SubjectAverage{
			SubjectID: acc.subjectID,
			Average:   math.Round(acc.mean()),
			Count:     acc.count,
		})
	}
	return summary
}

// AggregateTasks counts completion. When studentID is set the summary also carries the
// number of tasks still due that the student has not submitted.
func AggregateTasks(tasks []models.TaskRecord, submissions []models.SubmissionRecord, studentID string, now time.Time) dto.TaskSummary {
	summary := dto.TaskSummary{TotalTasks: len(tasks)}
	for _, task := range tasks {
		if task.Status == models.TaskStatusCompleted {
			summary.CompletedTasks++
		}
	}
	summary.CompletionRate = percentage(summary.CompletedTasks, summary.TotalTasks)
	if studentID != "" {
		pending := len(pendingTasks(tasks, submissions, studentID, now))
		summary.PendingTasks = &pending
	}
	return summary
}

// UpcomingDeadlines lists the student's pending tasks by nearest deadline, at most limit.
func UpcomingDeadlines(tasks []models.TaskRecord, submissions []models.SubmissionRecord, studentID string, now time.Time, limit int) []dto.UpcomingDeadline {
	pending := pendingTasks(tasks, submissions, studentID, now)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]dto.UpcomingDeadline, 0, len(pending))
	for _, task := range pending {
		out = append(out, dto.UpcomingDeadline{
			TaskID:    task.TaskID,
			ClassID:   task.ClassID,
			SubjectID: task.SubjectID,
			Title:     task.Title,
			Deadline:  task.Deadline,
		})
	}
	return out
}

// RankSubjects orders subjects by unrounded grade average, highest first. Ties share the
// rank and the next distinct average skips the shared places.
func RankSubjects(entries []models.GradeEntry) []dto.SubjectRank {
	accs := subjectAverages(entries)
	sort.SliceStable(accs, func(i, j int) bool {
		if accs[i].mean() == accs[j].mean() {
			return accs[i].subjectID < accs[j].subjectID
		}
		return accs[i].mean() > accs[j].mean()
	})
	ranking := make([]dto.SubjectRank, 0, len(accs))
	for i, acc := range accs {
		rank := i + 1
		if i > 0 && acc.mean() == accs[i-1].mean() {
			rank = ranking[i-1].Rank
		}
		ranking = append(ranking, dto.SubjectRank{
			Rank:      rank,
			SubjectID: acc.subjectID,
			Average:   math.Round(acc.mean()),
			Count:     acc.count,
		})
	}
	return ranking
}

// AtRiskThresholds configures DetectAtRisk. Both are percentages.
type AtRiskThresholds struct {
	AttendanceRate float64
	PassThreshold  float64
}

// DetectAtRisk flags students whose attendance rate is below the attendance threshold or whose
// grade average is below the pass threshold. A student without attendance or grades in the
// window cannot fail the corresponding test. Records of students outside students are
// ignored. Results are ordered by student id.
func DetectAtRisk(students []string, events []models.AttendanceEvent, entries []models.GradeEntry, thresholds AtRiskThresholds) []dto.AtRiskStudent {
	type tally struct {
		present, events int
		gradeTotal      float64
		grades          int
	}
	tallies := make(map[string]*tally, len(students))
	for _, id := range students {
		tallies[id] = &tally{}
	}
	for _, event := range events {
		t, ok := tallies[event.StudentID]
		if !ok {
			continue
		}
		t.events++
		if event.Status == models.AttendanceStatusPresent {
			t.present++
		}
	}
	for _, entry := range entries {
		t, ok := tallies[entry.StudentID]
		if !ok {
			continue
		}
		t.grades++
		t.gradeTotal += entry.Score
	}

	ids := make([]string, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	flagged := []dto.AtRiskStudent{}
	for _, id := range ids {
		t := tallies[id]
		var rate, average float64
		if t.events > 0 {
			rate = float64(t.present) / float64(t.events) * 100
		}
		if t.grades > 0 {
			average = t.gradeTotal / float64(t.grades)
		}
		lowAttendance := t.events > 0 && rate < thresholds.AttendanceRate
		lowGrades := t.grades > 0 && average < thresholds.PassThreshold
		if !lowAttendance && !lowGrades {
			continue
		}
		flagged = append(flagged, dto.AtRiskStudent{
			StudentID:      id,
			AttendanceRate: percentage(t.present, t.events),
			AverageGrade:   math.Round(average),
			LowAttendance:  lowAttendance,
			LowGrades:      lowGrades,
		})
	}
	return flagged
}

// SummarizeClasses returns one summary per class id, in the order given.
func SummarizeClasses(classIDs []string, events []models.AttendanceEvent, entries []models.GradeEntry, tasks []models.TaskRecord) []dto.ClassSummary {
	type tally struct {
		present, events int
		gradeTotal      float64
		grades          int
		tasks, done     int
	}
	tallies := make(map[string]*tally, len(classIDs))
	for _, id := range classIDs {
		tallies[id] = &tally{}
	}
	for _, event := range events {
		if t, ok := tallies[event.ClassID]; ok {
			t.events++
			if event.Status == models.AttendanceStatusPresent {
				t.present++
			}
		}
	}
	for _, entry := range entries {
		if t, ok := tallies[entry.ClassID]; ok {
			t.grades++
			t.gradeTotal += entry.Score
		}
	}
	for _, task := range tasks {
		if t, ok := tallies[task.ClassID]; ok {
			t.tasks++
			if task.Status == models.TaskStatusCompleted {
				t.done++
			}
		}
	}

	summaries := make([]dto.ClassSummary, 0, len(classIDs))
	for _, id := range classIDs {
		t := tallies[id]
		var average float64
		if t.grades > 0 {
			average = math.Round(t.gradeTotal / float64(t.grades))
		}
		summaries = append(summaries, dto.ClassSummary{
			ClassID:        id,
			AttendanceRate: percentage(t.present, t.events),
			AverageGrade:   average,
			GradeCount:     t.grades,
			TotalTasks:     t.tasks,
			CompletedTasks: t.done,
		})
	}
	return summaries
}

// RecentActivity merges attendance, grade and submission records into a feed of the limit most
// recent items. Items with equal timestamps are ordered by kind, student and reference.
func RecentActivity(events []models.AttendanceEvent, entries []models.GradeEntry, submissions []models.SubmissionRecord, limit int) []dto.ActivityItem {
	items := make([]dto.ActivityItem, 0, len(events)+len(entries)+len(submissions))
	for _, event := range events {
		item := dto.ActivityItem{
			Kind:      dto.ActivityAttendance,
			StudentID: event.StudentID,
			ClassID:   event.ClassID,
			Detail:    string(event.Status),
			Timestamp: event.Date,
		}
		if event.SubjectID != nil {
			item.SubjectID = *event.SubjectID
		}
		items = append(items, item)
	}
	for _, entry := range entries {
		item := dto.ActivityItem{
			Kind:      dto.ActivityGrade,
			StudentID: entry.StudentID,
			ClassID:   entry.ClassID,
			SubjectID: entry.SubjectID,
			Detail:    formatScore(entry.Score),
			Timestamp: entry.RecordedAt,
		}
		if entry.TaskID != nil {
			item.TaskID = *entry.TaskID
		}
		items = append(items, item)
	}
	for _, submission := range submissions {
		detail := "submitted"
		if submission.Graded() {
			detail = "graded " + formatScore(*submission.Grade)
		}
		items = append(items, dto.ActivityItem{
			Kind:      dto.ActivitySubmission,
			StudentID: submission.StudentID,
			TaskID:    submission.TaskID,
			Detail:    detail,
			Timestamp: submission.SubmittedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.ClassID+a.SubjectID+a.TaskID < b.ClassID+b.SubjectID+b.TaskID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// MeanOfAverages averages the unrounded per-student grade means, skipping students without
// grades, and rounds once.
func MeanOfAverages(entries []models.GradeEntry, students []string) float64 {
	var total float64
	var counted int
	for _, id := range students {
		var sum float64
		var n int
		for _, entry := range entries {
			if entry.StudentID == id {
				sum += entry.Score
				n++
			}
		}
		if n == 0 {
			continue
		}
		total += sum / float64(n)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return math.Round(total / float64(counted))
}

// percentage returns round(part/total*100), or 0 when total is 0.
func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

func gradeBucketIndex(score float64) int {
	switch {
	case score >= 90:
		return 0
	case score >= 80:
		return 1
	case score >= 70:
		return 2
	case score >= 60:
		return 3
	default:
		return 4
	}
}

type subjectAccumulator struct {
	subjectID string
	total     float64
	count     int
}

func (a subjectAccumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.total / float64(a.count)
}

// subjectAverages groups entries by subject, sorted by subject id.
func subjectAverages(entries []models.GradeEntry) []subjectAccumulator {
	bySubject := make(map[string]*subjectAccumulator)
	for _, entry := range entries {
		acc, ok := bySubject[entry.SubjectID]
		if !ok {
			acc = &subjectAccumulator{subjectID: entry.SubjectID}
			bySubject[entry.SubjectID] = acc
		}
		acc.total += entry.Score
		acc.count++
	}
	out := make([]subjectAccumulator, 0, len(bySubject))
	for _, acc := range bySubject {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].subjectID < out[j].subjectID })
	return out
}

func pendingTasks(tasks []models.TaskRecord, submissions []models.SubmissionRecord, studentID string, now time.Time) []models.TaskRecord {
	submitted := make(map[string]struct{})
	for _, submission := range submissions {
		if submission.StudentID == studentID {
			submitted[submission.TaskID] = struct{}{}
		}
	}
	pending := []models.TaskRecord{}
	for _, task := range tasks {
		if task.Deadline.Before(now) {
			continue
		}
		if _, ok := submitted[task.TaskID]; ok {
			continue
		}
		pending = append(pending, task)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Deadline.Equal(pending[j].Deadline) {
			return pending[i].TaskID < pending[j].TaskID
		}
		return pending[i].Deadline.Before(pending[j].Deadline)
	})
	return pending
}

func formatScore(score float64) string {
	return fmt.Sprintf("%g", score)
}

package models

import "time"

// TaskStatus tracks whether grading has been closed for a task.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// TaskRecord is an assignment handed out to a class.
type TaskRecord struct {
	TaskID    string     `db:"task_id" json:"task_id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	SubjectID string     `db:"subject_id" json:"subject_id"`
	TeacherID string     `db:"teacher_id" json:"teacher_id"`
	Title     string     `db:"title" json:"title"`
	Deadline  time.Time  `db:"deadline" json:"deadline"`
	Status    TaskStatus `db:"status" json:"status"`
}

// SubmissionRecord links a student to a task. A non-nil Grade means the submission was graded.
type SubmissionRecord struct {
	TaskID      string    `db:"task_id" json:"task_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
	Grade       *float64  `db:"grade" json:"grade,omitempty"`
}

// Graded reports whether the submission received a grade.
func (s SubmissionRecord) Graded() bool {
	return s.Grade != nil
}

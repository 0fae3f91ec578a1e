package models

import "time"

// GradeEntry is a single recorded score.
type GradeEntry struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	TaskID     *string   `db:"task_id" json:"task_id,omitempty"`
	Score      float64   `db:"score" json:"score"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

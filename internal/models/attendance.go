package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusExcused AttendanceStatus = "excused"
	AttendanceStatusSick    AttendanceStatus = "sick"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusSick, AttendanceStatusExcused, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceEvent is one attendance mark for a student in a session.
type AttendanceEvent struct {
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	SubjectID *string          `db:"subject_id" json:"subject_id,omitempty"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
}

// SessionKey identifies the session an event belongs to. At most one event exists per key.
func (e AttendanceEvent) SessionKey() string {
	subject := ""
	if e.SubjectID != nil {
		subject = *e.SubjectID
	}
	return e.StudentID + "|" + e.ClassID + "|" + subject + "|" + e.Date.Format("2006-01-02")
}

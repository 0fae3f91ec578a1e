package models

// ClassMembership relates a student, a class, its teacher and the subject taught.
type ClassMembership struct {
	StudentID string `db:"student_id" json:"student_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}

// GuardianLink relates a parent account to a student.
type GuardianLink struct {
	GuardianID string `db:"guardian_id" json:"guardian_id"`
	StudentID  string `db:"student_id" json:"student_id"`
	Confirmed  bool   `db:"confirmed" json:"confirmed"`
}

// EnrolmentTotals counts the distinct students and classes with any membership.
type EnrolmentTotals struct {
	Students int `db:"students" json:"students"`
	Classes  int `db:"classes" json:"classes"`
}

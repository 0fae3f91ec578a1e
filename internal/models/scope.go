package models

import "sort"

// ScopeBasis selects which identifier a restricted scope filters records by.
type ScopeBasis string

const (
	// ScopeByClass admits records belonging to the scope's classes.
	ScopeByClass ScopeBasis = "class"
	// ScopeByStudent admits records belonging to the scope's students.
	ScopeByStudent ScopeBasis = "student"
)

// IDSet is a set of entity identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from the non-empty ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add inserts id unless it is empty.
func (s IDSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Scope is the set of identifiers a caller may see.
//
// An unrestricted scope admits every record without enumerating ids. A restricted scope with
// no ids admits nothing.
type Scope struct {
	Role         UserRole
	UserID       string
	Unrestricted bool
	Basis        ScopeBasis
	StudentIDs   IDSet
	ClassIDs     IDSet
	SubjectIDs   IDSet
	TeacherID    string

	// Enrolments maps each scoped student to their classes. Only student-based scopes fill it.
	Enrolments map[string]IDSet
}

// UnrestrictedScope returns the administrator sentinel scope.
func UnrestrictedScope(userID string) *Scope {
	return &Scope{Role: RoleAdmin, UserID: userID, Unrestricted: true}
}

// Empty reports whether the scope can admit no records at all.
func (s *Scope) Empty() bool {
	if s == nil {
		return true
	}
	if s.Unrestricted {
		return false
	}
	switch s.Basis {
	case ScopeByClass:
		return len(s.ClassIDs) == 0
	default:
		return len(s.StudentIDs) == 0
	}
}

// Permits reports whether a student/class record is visible under the scope.
func (s *Scope) Permits(studentID, classID string) bool {
	if s == nil {
		return false
	}
	if s.Unrestricted {
		return true
	}
	if s.Basis == ScopeByClass {
		return s.ClassIDs.Has(classID)
	}
	return s.StudentIDs.Has(studentID)
}

// PermitsClass reports whether class-level records such as tasks are visible.
func (s *Scope) PermitsClass(classID string) bool {
	if s == nil {
		return false
	}
	return s.Unrestricted || s.ClassIDs.Has(classID)
}

// ClassesOf returns the classes studentID is enrolled in within the scope.
func (s *Scope) ClassesOf(studentID string) IDSet {
	if s == nil || s.Enrolments == nil {
		return IDSet{}
	}
	if classes, ok := s.Enrolments[studentID]; ok {
		return classes
	}
	return IDSet{}
}

// PermitsStudent reports whether student-level records such as submissions are visible.
func (s *Scope) PermitsStudent(studentID string) bool {
	if s == nil {
		return false
	}
	return s.Unrestricted || s.StudentIDs.Has(studentID)
}

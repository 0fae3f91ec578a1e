package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-analytics-api/internal/models"
)

// MembershipRepository reads the class and guardian relationships scopes are derived from.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository instantiates the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ResolveClassMemberships returns memberships where the identifier is the teacher or the student.
func (r *MembershipRepository) ResolveClassMemberships(ctx context.Context, teacherOrStudentID string) ([]models.ClassMembership, error) {
	const query = `SELECT m.student_id, m.class_id, m.teacher_id, m.subject_id
FROM class_memberships m
WHERE m.teacher_id = $1 OR m.student_id = $1
ORDER BY m.class_id, m.subject_id, m.student_id`

	var memberships []models.ClassMembership
	if err := r.db.SelectContext(ctx, &memberships, query, teacherOrStudentID); err != nil {
		return nil, fmt.Errorf("query class memberships: %w", err)
	}
	return memberships, nil
}

// ResolveClassRosters returns every membership of the given classes, whoever teaches them.
func (r *MembershipRepository) ResolveClassRosters(ctx context.Context, classIDs []string) ([]models.ClassMembership, error) {
	if len(classIDs) == 0 {
		return []models.ClassMembership{}, nil
	}
	const query = `SELECT m.student_id, m.class_id, m.teacher_id, m.subject_id
FROM class_memberships m
WHERE m.class_id = ANY($1)
ORDER BY m.class_id, m.student_id`

	var memberships []models.ClassMembership
	if err := r.db.SelectContext(ctx, &memberships, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("query class rosters: %w", err)
	}
	return memberships, nil
}

// CountEnrolment returns the distinct students and classes recorded school-wide.
func (r *MembershipRepository) CountEnrolment(ctx context.Context) (models.EnrolmentTotals, error) {
	const query = `SELECT COUNT(DISTINCT m.student_id) AS students, COUNT(DISTINCT m.class_id) AS classes
FROM class_memberships m`

	var totals models.EnrolmentTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return models.EnrolmentTotals{}, fmt.Errorf("count enrolment: %w", err)
	}
	return totals, nil
}

// ResolveGuardianLinks returns every link recorded for the guardian, confirmed or not.
func (r *MembershipRepository) ResolveGuardianLinks(ctx context.Context, guardianID string) ([]models.GuardianLink, error) {
	const query = `SELECT l.guardian_id, l.student_id, l.confirmed
FROM guardian_links l
WHERE l.guardian_id = $1
ORDER BY l.student_id`

	var links []models.GuardianLink
	if err := r.db.SelectContext(ctx, &links, query, guardianID); err != nil {
		return nil, fmt.Errorf("query guardian links: %w", err)
	}
	return links, nil
}

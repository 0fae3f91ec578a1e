package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-analytics-api/internal/models"
	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

// MembershipRepository resolves the relationships scopes are built from.
type MembershipRepository interface {
	ResolveClassMemberships(ctx context.Context, teacherOrStudentID string) ([]models.ClassMembership, error)
	ResolveClassRosters(ctx context.Context, classIDs []string) ([]models.ClassMembership, error)
	ResolveGuardianLinks(ctx context.Context, guardianID string) ([]models.GuardianLink, error)
}

// ScopeService computes the data scope a caller is authorised to read.
type ScopeService struct {
	memberships MembershipRepository
	logger      *zap.Logger
}

// NewScopeService constructs a scope resolver.
func NewScopeService(memberships MembershipRepository, logger *zap.Logger) *ScopeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScopeService{memberships: memberships, logger: logger}
}

// Resolve returns the scope for the caller. Unknown roles yield ErrUnauthorizedScope.
func (s *ScopeService) Resolve(ctx context.Context, role models.UserRole, userID string) (*models.Scope, error) {
	switch role {
	case models.RoleAdmin:
		return models.UnrestrictedScope(userID), nil
	case models.RoleTeacher:
		return s.teacherScope(ctx, userID)
	case models.RoleStudent:
		return s.studentScope(ctx, userID)
	case models.RoleParent:
		return s.parentScope(ctx, userID)
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorizedScope, fmt.Sprintf("role %q has no analytics scope", role))
	}
}

func (s *ScopeService) teacherScope(ctx context.Context, teacherID string) (*models.Scope, error) {
	memberships, err := s.loadMemberships(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	scope := newRestrictedScope(models.RoleTeacher, teacherID, models.ScopeByClass)
	scope.TeacherID = teacherID
	for _, m := range memberships {
		if m.TeacherID != teacherID {
			continue
		}
		scope.ClassIDs.Add(m.ClassID)
		scope.SubjectIDs.Add(m.SubjectID)
	}
	if len(scope.ClassIDs) == 0 {
		return scope, nil
	}
	// Students come from the whole roster: class filtering admits every enrolled student.
	roster, err := s.memberships.ResolveClassRosters(ctx, scope.ClassIDs.Sorted())
	if err != nil {
		return nil, fmt.Errorf("resolve class rosters: %w", err)
	}
	for _, m := range roster {
		if scope.ClassIDs.Has(m.ClassID) {
			scope.StudentIDs.Add(m.StudentID)
		}
	}
	return scope, nil
}

func (s *ScopeService) studentScope(ctx context.Context, studentID string) (*models.Scope, error) {
	memberships, err := s.loadMemberships(ctx, studentID)
	if err != nil {
		return nil, err
	}
	scope := newRestrictedScope(models.RoleStudent, studentID, models.ScopeByStudent)
	scope.StudentIDs.Add(studentID)
	addEnrolment(scope, studentID, memberships)
	return scope, nil
}

func (s *ScopeService) parentScope(ctx context.Context, guardianID string) (*models.Scope, error) {
	if s.memberships == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "membership repository unavailable")
	}
	links, err := s.memberships.ResolveGuardianLinks(ctx, guardianID)
	if err != nil {
		return nil, fmt.Errorf("resolve guardian links: %w", err)
	}
	scope := newRestrictedScope(models.RoleParent, guardianID, models.ScopeByStudent)
	for _, link := range links {
		if link.GuardianID != guardianID || !link.Confirmed {
			continue
		}
		scope.StudentIDs.Add(link.StudentID)
	}
	if len(scope.StudentIDs) == 0 {
		s.logger.Debug("guardian has no confirmed links", zap.String("guardian_id", guardianID))
		return scope, nil
	}
	for _, childID := range scope.StudentIDs.Sorted() {
		memberships, err := s.loadMemberships(ctx, childID)
		if err != nil {
			return nil, err
		}
		addEnrolment(scope, childID, memberships)
	}
	return scope, nil
}

func (s *ScopeService) loadMemberships(ctx context.Context, id string) ([]models.ClassMembership, error) {
	if s.memberships == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "membership repository unavailable")
	}
	memberships, err := s.memberships.ResolveClassMemberships(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve class memberships: %w", err)
	}
	return memberships, nil
}

func newRestrictedScope(role models.UserRole, userID string, basis models.ScopeBasis) *models.Scope {
	return &models.Scope{
		Role:       role,
		UserID:     userID,
		Basis:      basis,
		StudentIDs: models.NewIDSet(),
		ClassIDs:   models.NewIDSet(),
		SubjectIDs: models.NewIDSet(),
		Enrolments: map[string]models.IDSet{},
	}
}

// addEnrolment adds the classes and subjects studentID is enrolled in.
func addEnrolment(scope *models.Scope, studentID string, memberships []models.ClassMembership) {
	classes := models.NewIDSet()
	for _, m := range memberships {
		if m.StudentID != studentID {
			continue
		}
		classes.Add(m.ClassID)
		scope.ClassIDs.Add(m.ClassID)
		scope.SubjectIDs.Add(m.SubjectID)
	}
	scope.Enrolments[studentID] = classes
}

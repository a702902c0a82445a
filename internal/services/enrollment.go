package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type EnrollmentService interface {
	// Enroll is idempotent: a second call returns the stored enrollment.
	// Free diplomas activate immediately, paid ones wait for Activate.
	Enroll(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.Enrollment, error)
	// Activate is called by the payment collaborator.
	Activate(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.Enrollment, error)
	// BackfillDiploma fans out course enrollments for courses linked after
	// students activated. Returns the number of course enrollments created.
	BackfillDiploma(ctx context.Context, diplomaID uuid.UUID) (int, error)
	LinkCourse(ctx context.Context, diplomaID, courseID uuid.UUID, position int) (bool, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*types.Enrollment, error)
}

type enrollmentService struct {
	db           *gorm.DB
	log          *logger.Logger
	diplomas     repos.DiplomaRepo
	courses      repos.CourseRepo
	enrollment   repos.EnrollmentRepo
	certificates repos.CertificateRepo
	now          func() time.Time
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	diplomas repos.DiplomaRepo,
	courses repos.CourseRepo,
	enrollment repos.EnrollmentRepo,
	certificates repos.CertificateRepo,
) EnrollmentService {
	return &enrollmentService{
		db:           db,
		log:          baseLog.With("service", "EnrollmentService"),
		diplomas:     diplomas,
		courses:      courses,
		enrollment:   enrollment,
		certificates: certificates,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.Enrollment, error) {
	if studentID == uuid.Nil {
		return nil, apierr.InvalidArgument("student_required", "student id required")
	}
	diploma, err := s.diplomas.GetByID(dbctx.Context{Ctx: ctx}, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return nil, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}

	var out *types.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		now := s.now()
		row := &types.Enrollment{
			StudentID:  studentID,
			ScopeType:  types.ScopeDiploma,
			ScopeID:    diplomaID,
			Status:     types.EnrollmentPendingPayment,
			EnrolledAt: now,
		}
		if diploma.IsFree() {
			row.Status = types.EnrollmentActive
			row.ActivatedAt = &now
		}
		stored, created, err := s.enrollment.CreateIfAbsent(dbc, row)
		if err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		if _, err := s.certificates.Ensure(dbc, studentID, diplomaID); err != nil {
			return fmt.Errorf("ensure certificate record: %w", err)
		}
		if created {
			observability.Current().IncEnrollment(string(types.ScopeDiploma), string(stored.Status))
		}
		if stored.IsActive() {
			if _, err := s.fanOut(dbc, stored, now); err != nil {
				return err
			}
		}
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("diploma enrollment", "student_id", studentID, "diploma_id", diplomaID, "status", out.Status)
	return out, nil
}

func (s *enrollmentService) Activate(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.Enrollment, error) {
	var out *types.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		e, err := s.enrollment.Get(dbc, studentID, types.ScopeDiploma, diplomaID)
		if err != nil {
			return fmt.Errorf("load enrollment: %w", err)
		}
		if e == nil {
			return apierr.NotFound("enrollment_not_found", "no diploma enrollment for %s", diplomaID)
		}
		now := s.now()
		if !e.IsActive() {
			flipped, err := s.enrollment.Activate(dbc, e.ID, now)
			if err != nil {
				return fmt.Errorf("activate enrollment: %w", err)
			}
			if flipped {
				e.Status = types.EnrollmentActive
				e.ActivatedAt = &now
				observability.Current().IncEnrollment(string(types.ScopeDiploma), string(types.EnrollmentActive))
			} else if e, err = s.enrollment.Get(dbc, studentID, types.ScopeDiploma, diplomaID); err != nil {
				return fmt.Errorf("reload enrollment: %w", err)
			}
		}
		if _, err := s.fanOut(dbc, e, now); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *enrollmentService) BackfillDiploma(ctx context.Context, diplomaID uuid.UUID) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	diploma, err := s.diplomas.GetByID(dbc, diplomaID)
	if err != nil {
		return 0, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return 0, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}
	active, err := s.enrollment.ListActiveByScope(dbc, types.ScopeDiploma, diplomaID)
	if err != nil {
		return 0, fmt.Errorf("list diploma enrollments: %w", err)
	}
	total := 0
	for _, e := range active {
		n, err := s.fanOut(dbc, e, s.now())
		if err != nil {
			return total, err
		}
		total += n
	}
	s.log.Info("diploma backfill", "diploma_id", diplomaID, "students", len(active), "created", total)
	return total, nil
}

func (s *enrollmentService) LinkCourse(ctx context.Context, diplomaID, courseID uuid.UUID, position int) (bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	diploma, err := s.diplomas.GetByID(dbc, diplomaID)
	if err != nil {
		return false, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return false, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}
	course, err := s.courses.GetByID(dbc, courseID)
	if err != nil {
		return false, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return false, apierr.NotFound("course_not_found", "course %s", courseID)
	}
	linked, err := s.diplomas.LinkCourse(dbc, diplomaID, courseID, position)
	if err != nil {
		return false, fmt.Errorf("link course: %w", err)
	}
	if linked {
		s.log.Info("course linked to diploma", "diploma_id", diplomaID, "course_id", courseID, "position", position)
	}
	return linked, nil
}

func (s *enrollmentService) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]*types.Enrollment, error) {
	return s.enrollment.ListByStudent(dbctx.Context{Ctx: ctx}, studentID)
}

// fanOut creates or activates a course enrollment for every course the
// diploma currently links.
func (s *enrollmentService) fanOut(dbc dbctx.Context, parent *types.Enrollment, now time.Time) (int, error) {
	if !parent.IsActive() {
		return 0, nil
	}
	courseIDs, err := s.diplomas.ListCourseIDs(dbc, parent.ScopeID)
	if err != nil {
		return 0, fmt.Errorf("list diploma courses: %w", err)
	}
	created := 0
	for _, cid := range courseIDs {
		ok, err := s.enrollment.EnsureActiveCourse(dbc, parent.StudentID, cid, parent.ID, now)
		if err != nil {
			return created, fmt.Errorf("fan out course %s: %w", cid, err)
		}
		if ok {
			created++
			observability.Current().IncEnrollment(string(types.ScopeCourse), string(types.EnrollmentActive))
		}
	}
	return created, nil
}

package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// CreateIfAbsent inserts e unless a row for the same (student, scope)
	// exists. It always returns the stored row and whether it was created.
	CreateIfAbsent(dbc dbctx.Context, e *types.Enrollment) (*types.Enrollment, bool, error)
	Get(dbc dbctx.Context, studentID uuid.UUID, scopeType types.ScopeType, scopeID uuid.UUID) (*types.Enrollment, error)
	// Activate moves pending_payment to active. It reports false when the row
	// was already active or does not exist.
	Activate(dbc dbctx.Context, id uuid.UUID, now time.Time) (bool, error)
	// EnsureActiveCourse gives the student an active course enrollment under
	// parentID, creating or activating as needed.
	EnsureActiveCourse(dbc dbctx.Context, studentID, courseID, parentID uuid.UUID, now time.Time) (bool, error)
	// IsCourseCovered reports an active course enrollment, or an active
	// diploma enrollment whose diploma currently links the course.
	IsCourseCovered(dbc dbctx.Context, studentID, courseID uuid.UUID) (bool, error)
	ListActiveByScope(dbc dbctx.Context, scopeType types.ScopeType, scopeID uuid.UUID) ([]*types.Enrollment, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

var scopeConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "student_id"}, {Name: "scope_type"}, {Name: "scope_id"}},
	DoNothing: true,
}

func (r *enrollmentRepo) CreateIfAbsent(dbc dbctx.Context, e *types.Enrollment) (*types.Enrollment, bool, error) {
	if e == nil || e.StudentID == uuid.Nil || e.ScopeID == uuid.Nil || e.ScopeType == "" {
		return nil, false, errors.New("enrollment requires student, scope type and scope id")
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	res := dbc.DB(r.db).Clauses(scopeConflict).Create(e)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return e, true, nil
	}
	existing, err := r.Get(dbc, e.StudentID, e.ScopeType, e.ScopeID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("enrollment conflict without existing row")
	}
	return existing, false, nil
}

func (r *enrollmentRepo) Get(dbc dbctx.Context, studentID uuid.UUID, scopeType types.ScopeType, scopeID uuid.UUID) (*types.Enrollment, error) {
	if studentID == uuid.Nil || scopeID == uuid.Nil {
		return nil, nil
	}
	var e types.Enrollment
	err := dbc.DB(r.db).
		Where("student_id = ? AND scope_type = ? AND scope_id = ?", studentID, scopeType, scopeID).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

func (r *enrollmentRepo) Activate(dbc dbctx.Context, id uuid.UUID, now time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("id = ? AND status = ?", id, types.EnrollmentPendingPayment).
		Updates(map[string]interface{}{
			"status":       types.EnrollmentActive,
			"activated_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) EnsureActiveCourse(dbc dbctx.Context, studentID, courseID, parentID uuid.UUID, now time.Time) (bool, error) {
	row := &types.Enrollment{
		StudentID:   studentID,
		ScopeType:   types.ScopeCourse,
		ScopeID:     courseID,
		Status:      types.EnrollmentActive,
		EnrolledAt:  now,
		ActivatedAt: &now,
	}
	if parentID != uuid.Nil {
		p := parentID
		row.ParentEnrollmentID = &p
	}
	stored, created, err := r.CreateIfAbsent(dbc, row)
	if err != nil {
		return false, err
	}
	if created || stored.IsActive() {
		return created, nil
	}
	return r.Activate(dbc, stored.ID, now)
}

func (r *enrollmentRepo) IsCourseCovered(dbc dbctx.Context, studentID, courseID uuid.UUID) (bool, error) {
	if studentID == uuid.Nil || courseID == uuid.Nil {
		return false, nil
	}
	linked := dbc.DB(r.db).
		Model(&types.DiplomaCourse{}).
		Select("diploma_id").
		Where("course_id = ?", courseID)
	var n int64
	err := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("student_id = ? AND status = ?", studentID, types.EnrollmentActive).
		Where("(scope_type = ? AND scope_id = ?) OR (scope_type = ? AND scope_id IN (?))",
			types.ScopeCourse, courseID, types.ScopeDiploma, linked).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *enrollmentRepo) ListActiveByScope(dbc dbctx.Context, scopeType types.ScopeType, scopeID uuid.UUID) ([]*types.Enrollment, error) {
	out := []*types.Enrollment{}
	if scopeID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("scope_type = ? AND scope_id = ? AND status = ?", scopeType, scopeID, types.EnrollmentActive).
		Order("enrolled_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.Enrollment, error) {
	out := []*types.Enrollment{}
	if studentID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("student_id = ?", studentID).
		Order("enrolled_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

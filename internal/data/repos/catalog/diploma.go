package catalog

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

type DiplomaRepo interface {
	Create(dbc dbctx.Context, d *types.Diploma) (*types.Diploma, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Diploma, error)
	// LinkCourse adds a course to a diploma's current composition. Linking an
	// already linked course is a no-op and reports created=false.
	LinkCourse(dbc dbctx.Context, diplomaID, courseID uuid.UUID, position int) (bool, error)
	ListCourseIDs(dbc dbctx.Context, diplomaID uuid.UUID) ([]uuid.UUID, error)
}

type diplomaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiplomaRepo(db *gorm.DB, baseLog *logger.Logger) DiplomaRepo {
	return &diplomaRepo{db: db, log: baseLog.With("repo", "DiplomaRepo")}
}

func (r *diplomaRepo) Create(dbc dbctx.Context, d *types.Diploma) (*types.Diploma, error) {
	if d == nil {
		return nil, errors.New("nil diploma")
	}
	if err := dbc.DB(r.db).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *diplomaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Diploma, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var d types.Diploma
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *diplomaRepo) LinkCourse(dbc dbctx.Context, diplomaID, courseID uuid.UUID, position int) (bool, error) {
	if diplomaID == uuid.Nil || courseID == uuid.Nil {
		return false, errors.New("diploma and course ids required")
	}
	link := &types.DiplomaCourse{DiplomaID: diplomaID, CourseID: courseID, Position: position, LinkedAt: time.Now().UTC()}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "diploma_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *diplomaRepo) ListCourseIDs(dbc dbctx.Context, diplomaID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if diplomaID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Model(&types.DiplomaCourse{}).
		Where("diploma_id = ?", diplomaID).
		Order("position ASC, linked_at ASC").
		Pluck("course_id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

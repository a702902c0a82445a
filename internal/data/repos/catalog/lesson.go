package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	// ListByCourse returns the course's current lessons in display order.
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	for _, l := range lessons {
		if l == nil || l.CourseID == uuid.Nil {
			return nil, errors.New("lesson requires course_id")
		}
	}
	if err := dbc.DB(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var l types.Lesson
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&l).Error; err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *lessonRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	out := []*types.Lesson{}
	if courseID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("position ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

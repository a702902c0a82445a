package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// AssessmentRepo covers lesson quizzes and course exams.
type AssessmentRepo interface {
	CreateQuiz(dbc dbctx.Context, q *types.Quiz) (*types.Quiz, error)
	CreateExam(dbc dbctx.Context, e *types.Exam) (*types.Exam, error)
	GetQuiz(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error)
	GetExam(dbc dbctx.Context, id uuid.UUID) (*types.Exam, error)
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{db: db, log: baseLog.With("repo", "AssessmentRepo")}
}

func (r *assessmentRepo) CreateQuiz(dbc dbctx.Context, q *types.Quiz) (*types.Quiz, error) {
	if q == nil || q.LessonID == uuid.Nil || q.CourseID == uuid.Nil {
		return nil, errors.New("quiz requires lesson_id and course_id")
	}
	if err := dbc.DB(r.db).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

func (r *assessmentRepo) CreateExam(dbc dbctx.Context, e *types.Exam) (*types.Exam, error) {
	if e == nil || e.CourseID == uuid.Nil {
		return nil, errors.New("exam requires course_id")
	}
	if err := dbc.DB(r.db).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *assessmentRepo) GetQuiz(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var q types.Quiz
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&q).Error; err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *assessmentRepo) GetExam(dbc dbctx.Context, id uuid.UUID) (*types.Exam, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var e types.Exam
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&e).Error; err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

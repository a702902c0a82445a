package progress

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

type LessonProgressRepo interface {
	Get(dbc dbctx.Context, studentID, lessonID uuid.UUID) (*types.LessonProgressRecord, error)
	// Insert creates the first record for (student, lesson). It reports false
	// when another writer created it first.
	Insert(dbc dbctx.Context, rec *types.LessonProgressRecord) (bool, error)
	// UpdateIfVersion writes rec's state when the stored version still equals
	// rec.Version, bumping the version. It reports false on a lost race.
	UpdateIfVersion(dbc dbctx.Context, rec *types.LessonProgressRecord) (bool, error)
	ListByStudentLessons(dbc dbctx.Context, studentID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgressRecord, error)
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) Get(dbc dbctx.Context, studentID, lessonID uuid.UUID) (*types.LessonProgressRecord, error) {
	if studentID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var rec types.LessonProgressRecord
	err := dbc.DB(r.db).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *lessonProgressRepo) Insert(dbc dbctx.Context, rec *types.LessonProgressRecord) (bool, error) {
	if rec == nil || rec.StudentID == uuid.Nil || rec.LessonID == uuid.Nil {
		return false, errors.New("lesson progress requires student_id and lesson_id")
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lessonProgressRepo) UpdateIfVersion(dbc dbctx.Context, rec *types.LessonProgressRecord) (bool, error) {
	if rec == nil || rec.ID == uuid.Nil {
		return false, errors.New("lesson progress requires id")
	}
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.LessonProgressRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]interface{}{
			"status":            rec.Status,
			"content_completed": rec.ContentCompleted,
			"quiz_passed":       rec.QuizPassed,
			"started_at":        rec.StartedAt,
			"completed_at":      rec.CompletedAt,
			"corrected_at":      rec.CorrectedAt,
			"version":           rec.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rec.Version++
	rec.UpdatedAt = now
	return true, nil
}

func (r *lessonProgressRepo) ListByStudentLessons(dbc dbctx.Context, studentID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgressRecord, error) {
	out := []*types.LessonProgressRecord{}
	if studentID == uuid.Nil || len(lessonIDs) == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("student_id = ? AND lesson_id IN ?", studentID, lessonIDs).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

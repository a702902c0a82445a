package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/domain/progress"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// ProgressAggregator recomputes from stored records on every call. There is
// no cache, so a lesson event is visible on the next read.
type ProgressAggregator interface {
	GetCourseProgress(ctx context.Context, studentID, courseID uuid.UUID) (*types.CourseProgress, error)
	GetDiplomaProgress(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.DiplomaProgress, error)
}

type progressAggregator struct {
	log      *logger.Logger
	courses  repos.CourseRepo
	diplomas repos.DiplomaRepo
	lessons  repos.LessonRepo
	records  repos.LessonProgressRepo
}

func NewProgressAggregator(
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	diplomas repos.DiplomaRepo,
	lessons repos.LessonRepo,
	records repos.LessonProgressRepo,
) ProgressAggregator {
	return &progressAggregator{
		log:      baseLog.With("service", "ProgressAggregator"),
		courses:  courses,
		diplomas: diplomas,
		lessons:  lessons,
		records:  records,
	}
}

func (a *progressAggregator) GetCourseProgress(ctx context.Context, studentID, courseID uuid.UUID) (*types.CourseProgress, error) {
	dbc := dbctx.Context{Ctx: ctx}
	course, err := a.courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", "course %s", courseID)
	}
	cp, err := a.courseProgress(dbc, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (a *progressAggregator) GetDiplomaProgress(ctx context.Context, studentID, diplomaID uuid.UUID) (*types.DiplomaProgress, error) {
	dbc := dbctx.Context{Ctx: ctx}
	diploma, err := a.diplomas.GetByID(dbc, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("load diploma: %w", err)
	}
	if diploma == nil {
		return nil, apierr.NotFound("diploma_not_found", "diploma %s", diplomaID)
	}
	courseIDs, err := a.diplomas.ListCourseIDs(dbc, diplomaID)
	if err != nil {
		return nil, fmt.Errorf("list diploma courses: %w", err)
	}
	courses := make([]types.CourseProgress, 0, len(courseIDs))
	for _, cid := range courseIDs {
		cp, err := a.courseProgress(dbc, studentID, cid)
		if err != nil {
			return nil, err
		}
		courses = append(courses, cp)
	}
	dp := progress.ComputeDiplomaProgress(diplomaID, courses)
	return &dp, nil
}

func (a *progressAggregator) courseProgress(dbc dbctx.Context, studentID, courseID uuid.UUID) (types.CourseProgress, error) {
	lessons, err := a.lessons.ListByCourse(dbc, courseID)
	if err != nil {
		return types.CourseProgress{}, fmt.Errorf("list lessons: %w", err)
	}
	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	recs, err := a.records.ListByStudentLessons(dbc, studentID, lessonIDs)
	if err != nil {
		return types.CourseProgress{}, fmt.Errorf("list lesson progress: %w", err)
	}
	flat := make([]types.LessonProgressRecord, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			flat = append(flat, *r)
		}
	}
	return progress.ComputeCourseProgress(courseID, lessonIDs, flat), nil
}

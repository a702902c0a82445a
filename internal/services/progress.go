package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/domain/progress"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

// maxProgressAttempts bounds the CAS loop. Each retry re-reads the winner's
// state, so contention on one (student, lesson) pair converges quickly.
const maxProgressAttempts = 8

type LessonCorrection struct {
	StudentID        uuid.UUID
	LessonID         uuid.UUID
	Status           types.ProgressStatus
	ContentCompleted bool
	QuizPassed       bool
	Reason           string
}

type ProgressService interface {
	RecordLessonEvent(ctx context.Context, studentID, lessonID uuid.UUID, event types.LessonEvent) (*types.LessonProgressRecord, error)
	// CorrectLessonProgress is the administrative override; it is the only
	// path that may lower a completed record.
	CorrectLessonProgress(ctx context.Context, c LessonCorrection) (*types.LessonProgressRecord, error)
}

type progressService struct {
	db         *gorm.DB
	log        *logger.Logger
	lessons    repos.LessonRepo
	enrollment repos.EnrollmentRepo
	records    repos.LessonProgressRepo
	now        func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessons repos.LessonRepo,
	enrollment repos.EnrollmentRepo,
	records repos.LessonProgressRepo,
) ProgressService {
	return &progressService{
		db:         db,
		log:        baseLog.With("service", "ProgressService"),
		lessons:    lessons,
		enrollment: enrollment,
		records:    records,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressService) RecordLessonEvent(ctx context.Context, studentID, lessonID uuid.UUID, event types.LessonEvent) (*types.LessonProgressRecord, error) {
	if _, ok := progress.ParseLessonEvent(string(event)); !ok {
		return nil, apierr.InvalidArgument("invalid_event", "unsupported lesson event %q", event)
	}
	dbc := dbctx.Context{Ctx: ctx}
	lesson, err := s.lessons.GetByID(dbc, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson_not_found", "lesson %s", lessonID)
	}
	covered, err := s.enrollment.IsCourseCovered(dbc, studentID, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !covered {
		observability.Current().IncLessonEvent(string(event), "forbidden")
		return nil, apierr.Forbidden("not_enrolled", "no active enrollment covers course %s", lesson.CourseID)
	}

	for attempt := 1; attempt <= maxProgressAttempts; attempt++ {
		cur, err := s.records.Get(dbc, studentID, lessonID)
		if err != nil {
			return nil, fmt.Errorf("load lesson progress: %w", err)
		}
		if cur == nil {
			fresh := types.LessonProgressRecord{
				StudentID: studentID,
				LessonID:  lessonID,
				CourseID:  lesson.CourseID,
				Status:    types.ProgressNotStarted,
			}
			next, _ := progress.Apply(fresh, event, lesson.HasQuiz, s.now())
			inserted, err := s.records.Insert(dbc, &next)
			if err != nil {
				return nil, fmt.Errorf("insert lesson progress: %w", err)
			}
			if inserted {
				observability.Current().IncLessonEvent(string(event), "applied")
				return &next, nil
			}
			// another writer created the row first; merge into theirs
			observability.Current().IncProgressRetry()
			continue
		}

		next, changed := progress.Apply(*cur, event, lesson.HasQuiz, s.now())
		if !changed {
			observability.Current().IncLessonEvent(string(event), "noop")
			return cur, nil
		}
		ok, err := s.records.UpdateIfVersion(dbc, &next)
		if err != nil {
			return nil, fmt.Errorf("update lesson progress: %w", err)
		}
		if ok {
			observability.Current().IncLessonEvent(string(event), "applied")
			return &next, nil
		}
		observability.Current().IncProgressRetry()
		s.log.Debug("lesson progress version conflict", "student_id", studentID, "lesson_id", lessonID, "attempt", attempt)
	}
	observability.Current().IncLessonEvent(string(event), "conflict")
	return nil, apierr.Conflict("progress_contention", "lesson progress for %s kept changing", lessonID)
}

func (s *progressService) CorrectLessonProgress(ctx context.Context, c LessonCorrection) (*types.LessonProgressRecord, error) {
	if !c.Status.Valid() {
		return nil, apierr.InvalidArgument("invalid_status", "unsupported status %q", c.Status)
	}
	if strings.TrimSpace(c.Reason) == "" {
		return nil, apierr.InvalidArgument("reason_required", "a correction needs a reason")
	}
	dbc := dbctx.Context{Ctx: ctx}
	lesson, err := s.lessons.GetByID(dbc, c.LessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson_not_found", "lesson %s", c.LessonID)
	}
	if c.Status == types.ProgressCompleted && !(c.ContentCompleted && (c.QuizPassed || !lesson.HasQuiz)) {
		return nil, apierr.InvalidArgument("inconsistent_status", "completed requires content and, when the lesson has a quiz, a passed quiz")
	}

	for attempt := 1; attempt <= maxProgressAttempts; attempt++ {
		now := s.now()
		cur, err := s.records.Get(dbc, c.StudentID, c.LessonID)
		if err != nil {
			return nil, fmt.Errorf("load lesson progress: %w", err)
		}
		next := types.LessonProgressRecord{
			StudentID: c.StudentID,
			LessonID:  c.LessonID,
			CourseID:  lesson.CourseID,
		}
		if cur != nil {
			next = *cur
		}
		next.Status = c.Status
		next.ContentCompleted = c.ContentCompleted
		next.QuizPassed = c.QuizPassed
		next.CorrectedAt = &now
		switch c.Status {
		case types.ProgressNotStarted:
			next.StartedAt = nil
			next.CompletedAt = nil
		case types.ProgressInProgress:
			if next.StartedAt == nil {
				next.StartedAt = &now
			}
			next.CompletedAt = nil
		case types.ProgressCompleted:
			if next.StartedAt == nil {
				next.StartedAt = &now
			}
			if next.CompletedAt == nil {
				next.CompletedAt = &now
			}
		}

		var ok bool
		if cur == nil {
			ok, err = s.records.Insert(dbc, &next)
		} else {
			ok, err = s.records.UpdateIfVersion(dbc, &next)
		}
		if err != nil {
			return nil, fmt.Errorf("write lesson correction: %w", err)
		}
		if ok {
			s.log.Info("lesson progress corrected",
				"student_id", c.StudentID,
				"lesson_id", c.LessonID,
				"status", c.Status,
				"reason", c.Reason,
			)
			return &next, nil
		}
		observability.Current().IncProgressRetry()
	}
	return nil, apierr.Conflict("progress_contention", "lesson progress for %s kept changing", c.LessonID)
}

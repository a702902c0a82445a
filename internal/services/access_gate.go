package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type TargetType string

const (
	TargetLesson TargetType = "lesson"
	TargetQuiz   TargetType = "quiz"
	TargetExam   TargetType = "exam"
)

func ParseTargetType(raw string) (TargetType, bool) {
	switch t := TargetType(raw); t {
	case TargetLesson, TargetQuiz, TargetExam:
		return t, true
	}
	return "", false
}

type Decision string

const (
	DecisionAllowed         Decision = "ALLOWED"
	DecisionForbidden       Decision = "FORBIDDEN"
	DecisionUnauthenticated Decision = "UNAUTHENTICATED"
)

const (
	ReasonNotEnrolled = "not_enrolled"
	ReasonExamLocked  = "exam_locked"
)

type AccessDecision struct {
	Decision Decision  `json:"decision"`
	Reason   string    `json:"reason,omitempty"`
	CourseID uuid.UUID `json:"course_id,omitempty"`
}

func (d AccessDecision) Allowed() bool { return d.Decision == DecisionAllowed }

type AccessGate interface {
	// Authorize decides access for the session carried by ctx (nil means
	// anonymous). Unknown targets are a NotFound error, not a decision.
	Authorize(ctx context.Context, targetType TargetType, targetID uuid.UUID) (AccessDecision, error)
}

type accessGate struct {
	log         *logger.Logger
	lessons     repos.LessonRepo
	assessments repos.AssessmentRepo
	enrollment  repos.EnrollmentRepo
	aggregator  ProgressAggregator
}

func NewAccessGate(
	baseLog *logger.Logger,
	lessons repos.LessonRepo,
	assessments repos.AssessmentRepo,
	enrollment repos.EnrollmentRepo,
	aggregator ProgressAggregator,
) AccessGate {
	return &accessGate{
		log:         baseLog.With("service", "AccessGate"),
		lessons:     lessons,
		assessments: assessments,
		enrollment:  enrollment,
		aggregator:  aggregator,
	}
}

func (g *accessGate) Authorize(ctx context.Context, targetType TargetType, targetID uuid.UUID) (AccessDecision, error) {
	if _, ok := ParseTargetType(string(targetType)); !ok {
		return AccessDecision{}, apierr.InvalidArgument("invalid_target_type", "unsupported target type %q", targetType)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return g.decide(targetType, AccessDecision{Decision: DecisionUnauthenticated}), nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	courseID, err := g.resolveCourse(dbc, targetType, targetID)
	if err != nil {
		return AccessDecision{}, err
	}
	covered, err := g.enrollment.IsCourseCovered(dbc, rd.UserID, courseID)
	if err != nil {
		return AccessDecision{}, fmt.Errorf("check enrollment: %w", err)
	}
	if !covered {
		return g.decide(targetType, AccessDecision{Decision: DecisionForbidden, Reason: ReasonNotEnrolled, CourseID: courseID}), nil
	}
	if targetType == TargetExam {
		cp, err := g.aggregator.GetCourseProgress(ctx, rd.UserID, courseID)
		if err != nil {
			return AccessDecision{}, err
		}
		if cp.OverallProgress < 100 {
			return g.decide(targetType, AccessDecision{Decision: DecisionForbidden, Reason: ReasonExamLocked, CourseID: courseID}), nil
		}
	}
	return g.decide(targetType, AccessDecision{Decision: DecisionAllowed, CourseID: courseID}), nil
}

func (g *accessGate) resolveCourse(dbc dbctx.Context, targetType TargetType, targetID uuid.UUID) (uuid.UUID, error) {
	switch targetType {
	case TargetLesson:
		l, err := g.lessons.GetByID(dbc, targetID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("load lesson: %w", err)
		}
		if l == nil {
			return uuid.Nil, apierr.NotFound("lesson_not_found", "lesson %s", targetID)
		}
		return l.CourseID, nil
	case TargetQuiz:
		q, err := g.assessments.GetQuiz(dbc, targetID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("load quiz: %w", err)
		}
		if q == nil {
			return uuid.Nil, apierr.NotFound("quiz_not_found", "quiz %s", targetID)
		}
		return q.CourseID, nil
	default:
		e, err := g.assessments.GetExam(dbc, targetID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("load exam: %w", err)
		}
		if e == nil {
			return uuid.Nil, apierr.NotFound("exam_not_found", "exam %s", targetID)
		}
		return e.CourseID, nil
	}
}

func (g *accessGate) decide(targetType TargetType, d AccessDecision) AccessDecision {
	observability.Current().IncAccessDecision(string(targetType), string(d.Decision), d.Reason)
	return d
}

package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
)

func TestAuthorize_Lesson(t *testing.T) {
	env := newEnv(t)
	student, _, course, lessons := env.enrolledDiploma(t, 2)

	d, err := env.gate.Authorize(env.ctx, TargetLesson, lessons[0].ID)
	require.NoError(t, err)
	require.Equal(t, DecisionUnauthenticated, d.Decision)

	d, err = env.gate.Authorize(asStudent(env.ctx, student.ID), TargetLesson, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, d.Allowed())
	require.Equal(t, course.ID, d.CourseID)

	stranger := testutil.SeedStudent(t, env.ctx, env.db)
	d, err = env.gate.Authorize(asStudent(env.ctx, stranger.ID), TargetLesson, lessons[0].ID)
	require.NoError(t, err)
	require.Equal(t, DecisionForbidden, d.Decision)
	require.Equal(t, ReasonNotEnrolled, d.Reason)
}

func TestAuthorize_ExamLockedUntilCourseComplete(t *testing.T) {
	env := newEnv(t)
	student, _, course, lessons := env.enrolledDiploma(t, 5)
	exam := testutil.SeedExam(t, env.ctx, env.db, course.ID)
	ctx := asStudent(env.ctx, student.ID)

	env.completeLessons(t, student.ID, lessons[:4])
	d, err := env.gate.Authorize(ctx, TargetExam, exam.ID)
	require.NoError(t, err)
	require.Equal(t, DecisionForbidden, d.Decision)
	require.Equal(t, ReasonExamLocked, d.Reason)

	stranger := testutil.SeedStudent(t, env.ctx, env.db)
	d, err = env.gate.Authorize(asStudent(env.ctx, stranger.ID), TargetExam, exam.ID)
	require.NoError(t, err)
	require.Equal(t, ReasonNotEnrolled, d.Reason, "enrollment is checked before progress")

	env.completeLessons(t, student.ID, lessons[4:])
	d, err = env.gate.Authorize(ctx, TargetExam, exam.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed())
}

func TestAuthorize_Quiz(t *testing.T) {
	env := newEnv(t)
	student, _, course, lessons := env.enrolledDiploma(t, 1, 0)
	var q types.Quiz
	require.NoError(t, env.db.Where("lesson_id = ?", lessons[0].ID).First(&q).Error)

	d, err := env.gate.Authorize(asStudent(env.ctx, student.ID), TargetQuiz, q.ID)
	require.NoError(t, err)
	require.True(t, d.Allowed())
	require.Equal(t, course.ID, d.CourseID)

	stranger := testutil.SeedStudent(t, env.ctx, env.db)
	d, err = env.gate.Authorize(asStudent(env.ctx, stranger.ID), TargetQuiz, q.ID)
	require.NoError(t, err)
	require.Equal(t, DecisionForbidden, d.Decision)
	require.Equal(t, ReasonNotEnrolled, d.Reason)
}

func TestAuthorize_Errors(t *testing.T) {
	env := newEnv(t)
	student := testutil.SeedStudent(t, env.ctx, env.db)
	ctx := asStudent(env.ctx, student.ID)

	_, err := env.gate.Authorize(ctx, TargetLesson, uuid.New())
	require.ErrorIs(t, err, apierr.ErrNotFound)
	_, err = env.gate.Authorize(ctx, TargetExam, uuid.New())
	require.ErrorIs(t, err, apierr.ErrNotFound)
	_, err = env.gate.Authorize(ctx, TargetType("video"), uuid.New())
	require.ErrorIs(t, err, apierr.ErrInvalidArgument)
}

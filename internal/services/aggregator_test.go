package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
)

func TestCourseProgress_ZeroLessons(t *testing.T) {
	env := newEnv(t)
	student := testutil.SeedStudent(t, env.ctx, env.db)
	course, _ := testutil.SeedCourse(t, env.ctx, env.db, 0)

	cp, err := env.aggregator.GetCourseProgress(env.ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 0, cp.OverallProgress)
	require.Equal(t, types.ProgressNotStarted, cp.Status)
	require.Empty(t, cp.Lessons)
}

func TestCourseProgress_PartialAndLessonOrder(t *testing.T) {
	env := newEnv(t)
	student, _, course, lessons := env.enrolledDiploma(t, 3)
	env.completeLessons(t, student.ID, lessons[:1])
	_, err := env.progress.RecordLessonEvent(env.ctx, student.ID, lessons[1].ID, types.LessonEventStarted)
	require.NoError(t, err)

	cp, err := env.aggregator.GetCourseProgress(env.ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 33, cp.OverallProgress)
	require.Equal(t, types.ProgressInProgress, cp.Status)
	require.Equal(t, 1, cp.CompletedLessons)
	require.Equal(t, 3, cp.TotalLessons)
	require.Len(t, cp.Lessons, 3)
	for i, l := range lessons {
		require.Equal(t, l.ID, cp.Lessons[i].LessonID)
	}
	require.Equal(t, types.ProgressCompleted, cp.Lessons[0].Status)
	require.Equal(t, types.ProgressInProgress, cp.Lessons[1].Status)
	require.Equal(t, types.ProgressNotStarted, cp.Lessons[2].Status)
}

func TestDiplomaProgress_AddingCourseLowersPercentage(t *testing.T) {
	env := newEnv(t)
	student, diploma, _, lessons := env.enrolledDiploma(t, 4)
	env.completeLessons(t, student.ID, lessons)

	dp, err := env.aggregator.GetDiplomaProgress(env.ctx, student.ID, diploma.ID)
	require.NoError(t, err)
	require.Equal(t, 100, dp.Progress)
	require.True(t, dp.Eligible)

	extra, _ := testutil.SeedCourse(t, env.ctx, env.db, 2)
	testutil.LinkCourse(t, env.ctx, env.db, diploma.ID, extra.ID, 1)

	dp, err = env.aggregator.GetDiplomaProgress(env.ctx, student.ID, diploma.ID)
	require.NoError(t, err)
	require.Equal(t, 50, dp.Progress)
	require.False(t, dp.Eligible)
	require.Len(t, dp.Courses, 2)
}

func TestDiplomaProgress_NoCourses(t *testing.T) {
	env := newEnv(t)
	student := testutil.SeedStudent(t, env.ctx, env.db)
	diploma := testutil.SeedDiploma(t, env.ctx, env.db, 0)

	dp, err := env.aggregator.GetDiplomaProgress(env.ctx, student.ID, diploma.ID)
	require.NoError(t, err)
	require.Equal(t, 0, dp.Progress)
	require.False(t, dp.Eligible)
}

func TestAggregator_UnknownIDs(t *testing.T) {
	env := newEnv(t)
	_, err := env.aggregator.GetCourseProgress(env.ctx, uuid.New(), uuid.New())
	require.ErrorIs(t, err, apierr.ErrNotFound)
	_, err = env.aggregator.GetDiplomaProgress(env.ctx, uuid.New(), uuid.New())
	require.ErrorIs(t, err, apierr.ErrNotFound)
}

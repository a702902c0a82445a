package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func applyAll(rec LessonProgressRecord, hasQuiz bool, events ...LessonEvent) LessonProgressRecord {
	for i, ev := range events {
		rec, _ = Apply(rec, ev, hasQuiz, t0.Add(time.Duration(i)*time.Minute))
	}
	return rec
}

func TestApply_CompletesWithQuiz(t *testing.T) {
	rec := applyAll(LessonProgressRecord{Status: StatusNotStarted}, true, EventStarted, EventContentCompleted)
	require.Equal(t, StatusInProgress, rec.Status)
	require.Nil(t, rec.CompletedAt)

	rec = applyAll(rec, true, EventQuizPassed)
	require.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	require.NotNil(t, rec.StartedAt)
}

func TestApply_NoQuizCompletesOnContent(t *testing.T) {
	rec := applyAll(LessonProgressRecord{Status: StatusNotStarted}, false, EventContentCompleted)
	require.Equal(t, StatusCompleted, rec.Status)
}

func TestApply_QuizAloneIsNotCompletion(t *testing.T) {
	rec := applyAll(LessonProgressRecord{Status: StatusNotStarted}, true, EventQuizPassed)
	require.Equal(t, StatusInProgress, rec.Status)
	require.True(t, rec.QuizPassed)
	require.False(t, rec.ContentCompleted)
}

func TestApply_OrderIndependentAndIdempotent(t *testing.T) {
	orders := [][]LessonEvent{
		{EventStarted, EventContentCompleted, EventQuizPassed},
		{EventQuizPassed, EventContentCompleted, EventStarted},
		{EventContentCompleted, EventQuizPassed, EventQuizPassed, EventStarted, EventContentCompleted},
	}
	for _, order := range orders {
		rec := applyAll(LessonProgressRecord{Status: StatusNotStarted}, true, order...)
		require.Equal(t, StatusCompleted, rec.Status, "order %v", order)
	}
}

func TestApply_CompletedIsStable(t *testing.T) {
	done := applyAll(LessonProgressRecord{Status: StatusNotStarted}, false, EventContentCompleted)
	completedAt := *done.CompletedAt

	for _, ev := range []LessonEvent{EventStarted, EventContentCompleted, EventQuizPassed} {
		next, changed := Apply(done, ev, false, t0.Add(time.Hour))
		require.False(t, changed)
		require.Equal(t, StatusCompleted, next.Status)
		require.Equal(t, completedAt, *next.CompletedAt)
	}
}

func TestApply_ReplayReportsNoChange(t *testing.T) {
	rec := applyAll(LessonProgressRecord{Status: StatusNotStarted}, true, EventStarted)
	_, changed := Apply(rec, EventStarted, true, t0.Add(time.Hour))
	require.False(t, changed)
}

func TestParseLessonEvent(t *testing.T) {
	ev, ok := ParseLessonEvent("quiz_passed")
	require.True(t, ok)
	require.Equal(t, EventQuizPassed, ev)
	_, ok = ParseLessonEvent("finished")
	require.False(t, ok)
}

func lessons(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func completed(student uuid.UUID, ids ...uuid.UUID) []LessonProgressRecord {
	out := make([]LessonProgressRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, LessonProgressRecord{StudentID: student, LessonID: id, Status: StatusCompleted, ContentCompleted: true})
	}
	return out
}

func TestComputeCourseProgress_ZeroLessons(t *testing.T) {
	cp := ComputeCourseProgress(uuid.New(), nil, nil)
	require.Equal(t, 0, cp.OverallProgress)
	require.Equal(t, StatusNotStarted, cp.Status)
	require.Empty(t, cp.Lessons)
}

func TestComputeCourseProgress_Partial(t *testing.T) {
	ids := lessons(5)
	student := uuid.New()
	recs := completed(student, ids[:4]...)
	cp := ComputeCourseProgress(uuid.New(), ids, recs)
	require.Equal(t, 80, cp.OverallProgress)
	require.Equal(t, StatusInProgress, cp.Status)
	require.Equal(t, 4, cp.CompletedLessons)
	require.Len(t, cp.Lessons, 5)
	require.Equal(t, StatusNotStarted, cp.Lessons[4].Status)

	cp = ComputeCourseProgress(uuid.New(), ids, completed(student, ids...))
	require.Equal(t, 100, cp.OverallProgress)
	require.Equal(t, StatusCompleted, cp.Status)
}

func TestComputeCourseProgress_NeverRoundsUpToHundred(t *testing.T) {
	ids := lessons(200)
	cp := ComputeCourseProgress(uuid.New(), ids, completed(uuid.New(), ids[:199]...))
	require.Equal(t, 99, cp.OverallProgress)
	require.Equal(t, StatusInProgress, cp.Status)
}

func TestComputeCourseProgress_IgnoresRemovedLessons(t *testing.T) {
	ids := lessons(2)
	recs := completed(uuid.New(), uuid.New(), ids[0])
	cp := ComputeCourseProgress(uuid.New(), ids, recs)
	require.Equal(t, 1, cp.CompletedLessons)
	require.Equal(t, 50, cp.OverallProgress)
}

func TestComputeCourseProgress_NotStartedWhenUntouched(t *testing.T) {
	ids := lessons(3)
	cp := ComputeCourseProgress(uuid.New(), ids, nil)
	require.Equal(t, StatusNotStarted, cp.Status)
	require.Equal(t, 0, cp.OverallProgress)

	started := []LessonProgressRecord{{LessonID: ids[0], Status: StatusInProgress}}
	cp = ComputeCourseProgress(uuid.New(), ids, started)
	require.Equal(t, StatusInProgress, cp.Status)
	require.Equal(t, 0, cp.OverallProgress)
}

func TestComputeDiplomaProgress(t *testing.T) {
	d := uuid.New()
	dp := ComputeDiplomaProgress(d, nil)
	require.Equal(t, 0, dp.Progress)
	require.False(t, dp.Eligible)

	full := CourseProgress{OverallProgress: 100}
	dp = ComputeDiplomaProgress(d, []CourseProgress{full, full})
	require.Equal(t, 100, dp.Progress)
	require.True(t, dp.Eligible)

	dp = ComputeDiplomaProgress(d, []CourseProgress{full, {OverallProgress: 99}})
	require.Equal(t, 99, dp.Progress)
	require.False(t, dp.Eligible)

	dp = ComputeDiplomaProgress(d, []CourseProgress{{OverallProgress: 80}, {OverallProgress: 85}})
	require.Equal(t, 82, dp.Progress)
}

func TestComputeDiplomaProgress_AddingCourseLowersPercentage(t *testing.T) {
	d := uuid.New()
	courses := []CourseProgress{{OverallProgress: 100}, {OverallProgress: 60}}
	before := ComputeDiplomaProgress(d, courses).Progress
	after := ComputeDiplomaProgress(d, append(courses, CourseProgress{})).Progress
	require.Equal(t, 80, before)
	require.Equal(t, 53, after)
	require.Less(t, after, before)

	require.Equal(t, 0, ComputeDiplomaProgress(d, []CourseProgress{{}, {}}).Progress)
}

package progress

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/dbctx"
)

func TestInsertAndVersionedUpdate(t *testing.T) {
	db := testutil.DB(t)
	repo := NewLessonProgressRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	student, lesson, course := uuid.New(), uuid.New(), uuid.New()
	rec := &types.LessonProgressRecord{StudentID: student, LessonID: lesson, CourseID: course, Status: types.ProgressInProgress}
	created, err := repo.Insert(dbc, rec)
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.Insert(dbc, &types.LessonProgressRecord{StudentID: student, LessonID: lesson, CourseID: course, Status: types.ProgressCompleted})
	require.NoError(t, err)
	require.False(t, created)

	a, err := repo.Get(dbc, student, lesson)
	require.NoError(t, err)
	b := *a

	a.Status = types.ProgressCompleted
	ok, err := repo.UpdateIfVersion(dbc, a)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), a.Version)

	// b still carries version 0 and must lose
	b.ContentCompleted = true
	ok, err = repo.UpdateIfVersion(dbc, &b)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.Get(dbc, student, lesson)
	require.NoError(t, err)
	require.Equal(t, types.ProgressCompleted, got.Status)
	require.Equal(t, int64(1), got.Version)
}

func TestListByStudentLessons(t *testing.T) {
	db := testutil.DB(t)
	repo := NewLessonProgressRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	student, other := uuid.New(), uuid.New()
	l1, l2, l3 := uuid.New(), uuid.New(), uuid.New()
	for _, r := range []*types.LessonProgressRecord{
		{StudentID: student, LessonID: l1, CourseID: uuid.New(), Status: types.ProgressCompleted},
		{StudentID: student, LessonID: l3, CourseID: uuid.New(), Status: types.ProgressInProgress},
		{StudentID: other, LessonID: l2, CourseID: uuid.New(), Status: types.ProgressCompleted},
	} {
		_, err := repo.Insert(dbc, r)
		require.NoError(t, err)
	}

	rows, err := repo.ListByStudentLessons(dbc, student, []uuid.UUID{l1, l2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, l1, rows[0].LessonID)

	rows, err = repo.ListByStudentLessons(dbc, student, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

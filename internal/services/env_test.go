package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
)

type recordingNotifier struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	statuses []types.CertificateStatus
}

func (n *recordingNotifier) JobEnqueued(_ context.Context, rec *types.CertificateRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enqueued = append(n.enqueued, *rec.JobID)
}

func (n *recordingNotifier) StatusChanged(_ context.Context, rec *types.CertificateRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, rec.Status)
}

func (n *recordingNotifier) enqueuedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.enqueued)
}

type testEnv struct {
	ctx context.Context
	db  *gorm.DB

	lessons      repos.LessonRepo
	enrollments  repos.EnrollmentRepo
	records      repos.LessonProgressRepo
	certificates repos.CertificateRepo

	progress    ProgressService
	aggregator  ProgressAggregator
	gate        AccessGate
	enrollment  EnrollmentService
	certificate CertificateService
	notifier    *recordingNotifier
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	diplomas := repos.NewDiplomaRepo(db, log)
	courses := repos.NewCourseRepo(db, log)
	lessons := repos.NewLessonRepo(db, log)
	assessments := repos.NewAssessmentRepo(db, log)
	enrollments := repos.NewEnrollmentRepo(db, log)
	records := repos.NewLessonProgressRepo(db, log)
	certificates := repos.NewCertificateRepo(db, log)

	agg := NewProgressAggregator(log, courses, diplomas, lessons, records)
	notifier := &recordingNotifier{}
	return &testEnv{
		ctx:          context.Background(),
		db:           db,
		lessons:      lessons,
		enrollments:  enrollments,
		records:      records,
		certificates: certificates,
		progress:     NewProgressService(db, log, lessons, enrollments, records),
		aggregator:   agg,
		gate:         NewAccessGate(log, lessons, assessments, enrollments, agg),
		enrollment:   NewEnrollmentService(db, log, diplomas, courses, enrollments, certificates),
		certificate:  NewCertificateService(log, diplomas, enrollments, certificates, agg, notifier),
		notifier:     notifier,
	}
}

// enrolledDiploma seeds a free diploma with one course of n lessons and an
// active, fanned-out enrollment for a new student.
func (e *testEnv) enrolledDiploma(t *testing.T, n int, quizAt ...int) (*types.Student, *types.Diploma, *types.Course, []*types.Lesson) {
	t.Helper()
	student := testutil.SeedStudent(t, e.ctx, e.db)
	diploma := testutil.SeedDiploma(t, e.ctx, e.db, 0)
	course, lessons := testutil.SeedCourse(t, e.ctx, e.db, n, quizAt...)
	testutil.LinkCourse(t, e.ctx, e.db, diploma.ID, course.ID, 0)
	_, err := e.enrollment.Enroll(e.ctx, student.ID, diploma.ID)
	require.NoError(t, err)
	return student, diploma, course, lessons
}

func (e *testEnv) completeLessons(t *testing.T, studentID uuid.UUID, lessons []*types.Lesson) {
	t.Helper()
	for _, l := range lessons {
		_, err := e.progress.RecordLessonEvent(e.ctx, studentID, l.ID, types.LessonEventContentCompleted)
		require.NoError(t, err)
		if l.HasQuiz {
			_, err = e.progress.RecordLessonEvent(e.ctx, studentID, l.ID, types.LessonEventQuizPassed)
			require.NoError(t, err)
		}
	}
}

func asStudent(ctx context.Context, id uuid.UUID) context.Context {
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: id, Role: "student"})
}

func (e *testEnv) now() time.Time { return time.Now().UTC() }

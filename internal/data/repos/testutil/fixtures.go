package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursepass-backend/internal/domain"
)

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Student {
	tb.Helper()
	s := &types.Student{
		ID:        uuid.New(),
		Email:     "student-" + uuid.NewString()[:8] + "@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return s
}

func SeedDiploma(tb testing.TB, ctx context.Context, tx *gorm.DB, priceCents int64) *types.Diploma {
	tb.Helper()
	d := &types.Diploma{
		ID:          uuid.New(),
		Title:       "Diploma in Testing",
		PriceCents:  priceCents,
		Currency:    "EUR",
		TemplateKey: "default",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed diploma: %v", err)
	}
	return d
}

// SeedCourse creates a course with n lessons. Lessons whose index is in
// quizAt get a quiz.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, n int, quizAt ...int) (*types.Course, []*types.Lesson) {
	tb.Helper()
	c := &types.Course{ID: uuid.New(), Title: "Course " + uuid.NewString()[:6]}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	hasQuiz := map[int]bool{}
	for _, i := range quizAt {
		hasQuiz[i] = true
	}
	lessons := make([]*types.Lesson, 0, n)
	for i := 0; i < n; i++ {
		l := &types.Lesson{
			ID:       uuid.New(),
			CourseID: c.ID,
			Title:    fmt.Sprintf("Lesson %d", i+1),
			Position: i,
			HasQuiz:  hasQuiz[i],
		}
		if err := tx.WithContext(ctx).Create(l).Error; err != nil {
			tb.Fatalf("seed lesson: %v", err)
		}
		if l.HasQuiz {
			q := &types.Quiz{ID: uuid.New(), LessonID: l.ID, CourseID: c.ID, Title: "Quiz"}
			if err := tx.WithContext(ctx).Create(q).Error; err != nil {
				tb.Fatalf("seed quiz: %v", err)
			}
		}
		lessons = append(lessons, l)
	}
	return c, lessons
}

func SeedExam(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID) *types.Exam {
	tb.Helper()
	e := &types.Exam{ID: uuid.New(), CourseID: courseID, Title: "Final exam"}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed exam: %v", err)
	}
	return e
}

func LinkCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, diplomaID, courseID uuid.UUID, position int) {
	tb.Helper()
	link := &types.DiplomaCourse{DiplomaID: diplomaID, CourseID: courseID, Position: position, LinkedAt: time.Now().UTC()}
	if err := tx.WithContext(ctx).Create(link).Error; err != nil {
		tb.Fatalf("link course: %v", err)
	}
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, scope types.ScopeType, scopeID uuid.UUID, status types.EnrollmentStatus) *types.Enrollment {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.Enrollment{
		ID:         uuid.New(),
		StudentID:  studentID,
		ScopeType:  scope,
		ScopeID:    scopeID,
		Status:     status,
		EnrolledAt: now,
	}
	if status == types.EnrollmentActive {
		e.ActivatedAt = &now
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedLessonProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID uuid.UUID, lesson *types.Lesson, status types.ProgressStatus) *types.LessonProgressRecord {
	tb.Helper()
	now := time.Now().UTC()
	rec := &types.LessonProgressRecord{
		ID:        uuid.New(),
		StudentID: studentID,
		LessonID:  lesson.ID,
		CourseID:  lesson.CourseID,
		Status:    status,
		StartedAt: &now,
	}
	if status == types.ProgressCompleted {
		rec.ContentCompleted = true
		rec.QuizPassed = lesson.HasQuiz
		rec.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed lesson progress: %v", err)
	}
	return rec
}

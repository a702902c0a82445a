package progress

import (
	"math"

	"github.com/google/uuid"
)

type LessonView struct {
	LessonID   uuid.UUID `json:"lesson_id"`
	Status     Status    `json:"status"`
	QuizPassed bool      `json:"quiz_passed"`
}

type CourseProgress struct {
	CourseID         uuid.UUID    `json:"course_id"`
	OverallProgress  int          `json:"overall_progress"`
	Status           Status       `json:"status"`
	CompletedLessons int          `json:"completed_lessons"`
	TotalLessons     int          `json:"total_lessons"`
	Lessons          []LessonView `json:"lessons"`
}

type DiplomaProgress struct {
	DiplomaID uuid.UUID        `json:"diploma_id"`
	Progress  int              `json:"diploma_progress"`
	Eligible  bool             `json:"eligible"`
	Courses   []CourseProgress `json:"courses"`
}

// ComputeCourseProgress derives course progress from the course's current
// lesson ids (in display order) and the student's records. Records for
// lessons no longer in the course are ignored.
//
// overall_progress is round(100*completed/total), except that it stays at 99
// until every lesson is completed: 100 always means "all lessons done".
func ComputeCourseProgress(courseID uuid.UUID, lessonIDs []uuid.UUID, records []LessonProgressRecord) CourseProgress {
	byLesson := make(map[uuid.UUID]LessonProgressRecord, len(records))
	for _, r := range records {
		byLesson[r.LessonID] = r
	}

	out := CourseProgress{
		CourseID:     courseID,
		Status:       StatusNotStarted,
		TotalLessons: len(lessonIDs),
		Lessons:      make([]LessonView, 0, len(lessonIDs)),
	}
	touched := 0
	for _, id := range lessonIDs {
		view := LessonView{LessonID: id, Status: StatusNotStarted}
		if r, ok := byLesson[id]; ok {
			view.Status = r.Status
			view.QuizPassed = r.QuizPassed
			if r.Status != StatusNotStarted || r.ContentCompleted || r.QuizPassed {
				touched++
			}
			if r.Status == StatusCompleted {
				out.CompletedLessons++
			}
		}
		out.Lessons = append(out.Lessons, view)
	}

	if out.TotalLessons == 0 {
		return out
	}
	pct := int(math.Round(100 * float64(out.CompletedLessons) / float64(out.TotalLessons)))
	if out.CompletedLessons < out.TotalLessons && pct > 99 {
		pct = 99
	}
	out.OverallProgress = pct

	switch {
	case out.CompletedLessons == out.TotalLessons:
		out.Status = StatusCompleted
	case touched > 0:
		out.Status = StatusInProgress
	}
	return out
}

// ComputeDiplomaProgress is floor(mean(course overall_progress)) over the
// diploma's current courses. No courses means 0 and never eligible.
func ComputeDiplomaProgress(diplomaID uuid.UUID, courses []CourseProgress) DiplomaProgress {
	out := DiplomaProgress{DiplomaID: diplomaID, Courses: courses}
	if len(courses) == 0 {
		out.Courses = []CourseProgress{}
		return out
	}
	sum := 0
	for _, c := range courses {
		sum += c.OverallProgress
	}
	out.Progress = sum / len(courses)
	out.Eligible = out.Progress == 100
	return out
}

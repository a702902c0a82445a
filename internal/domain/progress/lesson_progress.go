package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is shared by lessons and derived course progress.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func maxStatus(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type LessonEvent string

const (
	EventStarted          LessonEvent = "started"
	EventContentCompleted LessonEvent = "content_completed"
	EventQuizPassed       LessonEvent = "quiz_passed"
)

func ParseLessonEvent(raw string) (LessonEvent, bool) {
	switch ev := LessonEvent(raw); ev {
	case EventStarted, EventContentCompleted, EventQuizPassed:
		return ev, true
	}
	return "", false
}

// LessonProgressRecord is unique per (student, lesson). Version guards the
// compare-and-swap used to serialize concurrent writers.
type LessonProgressRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_student_lesson,priority:1;index:idx_lesson_progress_student_course,priority:1" json:"student_id"`
	LessonID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_student_lesson,priority:2" json:"lesson_id"`
	CourseID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_lesson_progress_student_course,priority:2" json:"course_id"`
	Status           Status     `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ContentCompleted bool       `gorm:"column:content_completed;not null;default:false" json:"content_completed"`
	QuizPassed       bool       `gorm:"column:quiz_passed;not null;default:false" json:"quiz_passed"`
	Version          int64      `gorm:"column:version;not null;default:0" json:"version"`
	StartedAt        *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CorrectedAt      *time.Time `gorm:"column:corrected_at" json:"corrected_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonProgressRecord) TableName() string { return "lesson_progress" }

func (r *LessonProgressRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Apply folds one event into a record. It is monotone: flags only turn on and
// status only moves up, so applying events in any order, any number of times,
// converges on the same state. A completed record is returned untouched.
func Apply(rec LessonProgressRecord, ev LessonEvent, hasQuiz bool, now time.Time) (LessonProgressRecord, bool) {
	if rec.Status == StatusCompleted {
		return rec, false
	}
	next := rec
	switch ev {
	case EventContentCompleted:
		next.ContentCompleted = true
	case EventQuizPassed:
		next.QuizPassed = true
	}
	if next.StartedAt == nil {
		t := now
		next.StartedAt = &t
	}

	target := StatusInProgress
	if next.ContentCompleted && (next.QuizPassed || !hasQuiz) {
		target = StatusCompleted
	}
	next.Status = maxStatus(next.Status, target)
	if next.Status == StatusCompleted && next.CompletedAt == nil {
		t := now
		next.CompletedAt = &t
	}

	changed := next.Status != rec.Status ||
		next.ContentCompleted != rec.ContentCompleted ||
		next.QuizPassed != rec.QuizPassed ||
		rec.StartedAt == nil
	return next, changed
}

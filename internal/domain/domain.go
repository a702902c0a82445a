package domain

import (
	"github.com/yungbote/coursepass-backend/internal/domain/catalog"
	"github.com/yungbote/coursepass-backend/internal/domain/certificate"
	"github.com/yungbote/coursepass-backend/internal/domain/enrollment"
	"github.com/yungbote/coursepass-backend/internal/domain/progress"
	"github.com/yungbote/coursepass-backend/internal/domain/user"
)

type (
	Student = user.Student

	Diploma       = catalog.Diploma
	Course        = catalog.Course
	DiplomaCourse = catalog.DiplomaCourse
	Lesson        = catalog.Lesson
	Quiz          = catalog.Quiz
	Exam          = catalog.Exam

	Enrollment       = enrollment.Enrollment
	EnrollmentStatus = enrollment.Status
	ScopeType        = enrollment.ScopeType

	LessonProgressRecord = progress.LessonProgressRecord
	LessonEvent          = progress.LessonEvent
	ProgressStatus       = progress.Status
	CourseProgress       = progress.CourseProgress
	DiplomaProgress      = progress.DiplomaProgress

	CertificateRecord = certificate.CertificateRecord
	CertificateStatus = certificate.Status
	JobHandle         = certificate.JobHandle
)

const (
	ScopeCourse  = enrollment.ScopeCourse
	ScopeDiploma = enrollment.ScopeDiploma

	EnrollmentPendingPayment = enrollment.StatusPendingPayment
	EnrollmentActive         = enrollment.StatusActive

	ProgressNotStarted = progress.StatusNotStarted
	ProgressInProgress = progress.StatusInProgress
	ProgressCompleted  = progress.StatusCompleted

	LessonEventStarted          = progress.EventStarted
	LessonEventContentCompleted = progress.EventContentCompleted
	LessonEventQuizPassed       = progress.EventQuizPassed

	CertificateNotGenerated = certificate.StatusNotGenerated
	CertificateProcessing   = certificate.StatusProcessing
	CertificateGenerated    = certificate.StatusGenerated
	CertificateFailed       = certificate.StatusFailed
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&user.Student{},
		&catalog.Diploma{},
		&catalog.Course{},
		&catalog.DiplomaCourse{},
		&catalog.Lesson{},
		&catalog.Quiz{},
		&catalog.Exam{},
		&enrollment.Enrollment{},
		&progress.LessonProgressRecord{},
		&certificate.CertificateRecord{},
	}
}

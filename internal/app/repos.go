package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
)

type Repos struct {
	Students     repos.StudentRepo
	Diplomas     repos.DiplomaRepo
	Courses      repos.CourseRepo
	Lessons      repos.LessonRepo
	Assessments  repos.AssessmentRepo
	Enrollment   repos.EnrollmentRepo
	Progress     repos.LessonProgressRepo
	Certificates repos.CertificateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Students:     repos.NewStudentRepo(db, log),
		Diplomas:     repos.NewDiplomaRepo(db, log),
		Courses:      repos.NewCourseRepo(db, log),
		Lessons:      repos.NewLessonRepo(db, log),
		Assessments:  repos.NewAssessmentRepo(db, log),
		Enrollment:   repos.NewEnrollmentRepo(db, log),
		Progress:     repos.NewLessonProgressRepo(db, log),
		Certificates: repos.NewCertificateRepo(db, log),
	}
}

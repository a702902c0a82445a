package repos

import (
	"github.com/yungbote/coursepass-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursepass-backend/internal/data/repos/certificate"
	"github.com/yungbote/coursepass-backend/internal/data/repos/enrollment"
	"github.com/yungbote/coursepass-backend/internal/data/repos/progress"
	"github.com/yungbote/coursepass-backend/internal/data/repos/student"
)

type StudentRepo = student.StudentRepo

type DiplomaRepo = catalog.DiplomaRepo
type CourseRepo = catalog.CourseRepo
type LessonRepo = catalog.LessonRepo
type AssessmentRepo = catalog.AssessmentRepo

type EnrollmentRepo = enrollment.EnrollmentRepo
type LessonProgressRepo = progress.LessonProgressRepo
type CertificateRepo = certificate.CertificateRepo

var (
	NewStudentRepo        = student.NewStudentRepo
	NewDiplomaRepo        = catalog.NewDiplomaRepo
	NewCourseRepo         = catalog.NewCourseRepo
	NewLessonRepo         = catalog.NewLessonRepo
	NewAssessmentRepo     = catalog.NewAssessmentRepo
	NewEnrollmentRepo     = enrollment.NewEnrollmentRepo
	NewLessonProgressRepo = progress.NewLessonProgressRepo
	NewCertificateRepo    = certificate.NewCertificateRepo
)

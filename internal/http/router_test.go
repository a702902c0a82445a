package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursepass-backend/internal/domain"
	httpH "github.com/yungbote/coursepass-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursepass-backend/internal/http/middleware"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type apiFixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	engine   *gin.Engine
	sessions services.SessionService
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	diplomas := repos.NewDiplomaRepo(db, log)
	courses := repos.NewCourseRepo(db, log)
	lessons := repos.NewLessonRepo(db, log)
	assessments := repos.NewAssessmentRepo(db, log)
	enrollments := repos.NewEnrollmentRepo(db, log)
	records := repos.NewLessonProgressRepo(db, log)
	certs := repos.NewCertificateRepo(db, log)

	sessions, err := services.NewSessionService(log, services.SessionConfig{Secret: "s3cret"})
	require.NoError(t, err)
	agg := services.NewProgressAggregator(log, courses, diplomas, lessons, records)
	progress := services.NewProgressService(db, log, lessons, enrollments, records)
	gate := services.NewAccessGate(log, lessons, assessments, enrollments, agg)
	enrollment := services.NewEnrollmentService(db, log, diplomas, courses, enrollments, certs)
	certificate := services.NewCertificateService(log, diplomas, enrollments, certs, agg, nil)

	engine := NewRouter(RouterConfig{
		Log:                log,
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, sessions),
		ProgressHandler:    httpH.NewProgressHandler(log, progress, agg),
		EnrollmentHandler:  httpH.NewEnrollmentHandler(log, enrollment),
		CertificateHandler: httpH.NewCertificateHandler(log, certificate),
		AccessHandler:      httpH.NewAccessHandler(log, gate),
		HealthHandler:      httpH.NewHealthHandler(db),
	})
	return &apiFixture{t: t, ctx: context.Background(), db: db, engine: engine, sessions: sessions}
}

func (f *apiFixture) token(id uuid.UUID, role string) string {
	tok, err := f.sessions.IssueToken(id, role, time.Hour)
	require.NoError(f.t, err)
	return tok
}

func (f *apiFixture) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAPI_StudentJourney(t *testing.T) {
	f := newAPI(t)
	student := testutil.SeedStudent(t, f.ctx, f.db)
	diploma := testutil.SeedDiploma(t, f.ctx, f.db, 0)
	course, lessons := testutil.SeedCourse(t, f.ctx, f.db, 5)
	testutil.LinkCourse(t, f.ctx, f.db, diploma.ID, course.ID, 0)
	exam := testutil.SeedExam(t, f.ctx, f.db, course.ID)
	tok := f.token(student.ID, "student")

	rec, _ := f.do(http.MethodPost, "/api/enrollments", tok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	for i, l := range lessons[:4] {
		rec, body := f.do(http.MethodPost, "/api/lessons/"+l.ID.String()+"/events", tok, map[string]any{"event": "content_completed"})
		require.Equal(t, http.StatusOK, rec.Code, "lesson %d", i)
		lp := body["lesson_progress"].(map[string]any)
		require.Equal(t, "completed", lp["status"])
	}

	rec, body := f.do(http.MethodGet, "/api/authorize?target_type=exam&target_id="+exam.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "FORBIDDEN", body["decision"])
	require.Equal(t, "exam_locked", body["reason"])

	rec, body = f.do(http.MethodPost, "/api/certificate/generate", tok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "not_eligible", errorCode(body))

	rec, _ = f.do(http.MethodPost, "/api/lessons/"+lessons[4].ID.String()+"/events", tok, map[string]any{"event": "content_completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(http.MethodGet, "/api/progress?course_id="+course.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 100, body["overall_progress"])
	require.Len(t, body["lessons"], 5)

	rec, body = f.do(http.MethodGet, "/api/diploma-progress?diploma_id="+diploma.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 100, body["diploma_progress"])

	rec, body = f.do(http.MethodPost, "/api/certificate/generate", tok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "processing", body["status"])
	jobID := body["job_id"]
	require.NotEmpty(t, jobID)

	rec, body = f.do(http.MethodPost, "/api/certificate/generate", tok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, jobID, body["job_id"])

	rec, body = f.do(http.MethodGet, "/api/certificate-status?diploma_id="+diploma.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "processing", body["status"])
}

func TestAPI_AuthAndValidation(t *testing.T) {
	f := newAPI(t)
	student := testutil.SeedStudent(t, f.ctx, f.db)
	tok := f.token(student.ID, "student")

	rec, body := f.do(http.MethodGet, "/api/progress?course_id="+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", errorCode(body))

	rec, _ = f.do(http.MethodGet, "/api/progress?course_id="+uuid.NewString(), "garbage.token.value", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = f.do(http.MethodGet, "/api/progress?course_id=nope", tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_course_id", errorCode(body))

	rec, body = f.do(http.MethodGet, "/api/progress?course_id="+uuid.NewString(), tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "course_not_found", errorCode(body))

	rec, body = f.do(http.MethodPost, "/api/lessons/"+uuid.NewString()+"/events", tok, map[string]any{"event": "finished"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_failed", errorCode(body))

	rec, body = f.do(http.MethodGet, "/api/certificate-status?diploma_id="+uuid.NewString(), tok, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "diploma_not_found", errorCode(body))

	rec, body = f.do(http.MethodGet, "/api/authorize?target_type=lesson&target_id="+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "UNAUTHENTICATED", body["decision"])

	rec, _ = f.do(http.MethodGet, "/api/authorize?target_type=video&target_id="+uuid.NewString(), tok, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(http.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AdminRoutes(t *testing.T) {
	f := newAPI(t)
	student := testutil.SeedStudent(t, f.ctx, f.db)
	diploma := testutil.SeedDiploma(t, f.ctx, f.db, 9900)
	course, _ := testutil.SeedCourse(t, f.ctx, f.db, 1)
	studentTok := f.token(student.ID, "student")
	adminTok := f.token(uuid.New(), "admin")

	rec, _ := f.do(http.MethodPost, "/api/admin/diplomas/"+diploma.ID.String()+"/courses", studentTok, map[string]any{"course_id": course.ID})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := f.do(http.MethodPost, "/api/admin/diplomas/"+diploma.ID.String()+"/courses", adminTok, map[string]any{"course_id": course.ID, "position": 0})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["linked"])

	rec, body = f.do(http.MethodPost, "/api/enrollments", studentTok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(types.EnrollmentPendingPayment), body["enrollment"].(map[string]any)["status"])

	rec, body = f.do(http.MethodPost, "/api/internal/enrollments/activate", adminTok, map[string]any{"student_id": student.ID, "diploma_id": diploma.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(types.EnrollmentActive), body["enrollment"].(map[string]any)["status"])

	rec, body = f.do(http.MethodPost, "/api/admin/diplomas/"+diploma.ID.String()+"/backfill", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, body["created"])

	rec, body = f.do(http.MethodPost, "/api/admin/certificate/generate", adminTok, map[string]any{"student_id": student.ID, "diploma_id": diploma.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "not_eligible", errorCode(body))
}

func TestAPI_EnrollmentListAndProgressCorrection(t *testing.T) {
	f := newAPI(t)
	student := testutil.SeedStudent(t, f.ctx, f.db)
	diploma := testutil.SeedDiploma(t, f.ctx, f.db, 0)
	course, lessons := testutil.SeedCourse(t, f.ctx, f.db, 2)
	testutil.LinkCourse(t, f.ctx, f.db, diploma.ID, course.ID, 0)
	studentTok := f.token(student.ID, "student")
	adminTok := f.token(uuid.New(), "admin")

	rec, _ := f.do(http.MethodPost, "/api/enrollments", studentTok, map[string]any{"diploma_id": diploma.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(http.MethodGet, "/api/enrollments", studentTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, _ := body["enrollments"].([]any)
	require.Len(t, rows, 2) // diploma plus fanned-out course

	rec, _ = f.do(http.MethodPost, "/api/lessons/"+lessons[0].ID.String()+"/events", studentTok, map[string]any{"event": "content_completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = f.do(http.MethodGet, "/api/progress?course_id="+course.ID.String(), studentTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["completed_lessons"])

	correction := map[string]any{
		"student_id": student.ID,
		"lesson_id":  lessons[0].ID,
		"status":     "in_progress",
	}
	rec, body = f.do(http.MethodPost, "/api/admin/progress/correct", adminTok, correction)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_failed", errorCode(body))

	correction["reason"] = "content was served from a broken build"
	rec, _ = f.do(http.MethodPost, "/api/admin/progress/correct", studentTok, correction)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = f.do(http.MethodPost, "/api/admin/progress/correct", adminTok, correction)
	require.Equal(t, http.StatusOK, rec.Code)
	lp := body["lesson_progress"].(map[string]any)
	require.Equal(t, "in_progress", lp["status"])
	require.NotEmpty(t, lp["corrected_at"])

	rec, body = f.do(http.MethodGet, "/api/progress?course_id="+course.ID.String(), studentTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, body["completed_lessons"])
	require.EqualValues(t, 0, body["overall_progress"])
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/http/response"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type EnrollmentHandler struct {
	log        *logger.Logger
	enrollment services.EnrollmentService
}

func NewEnrollmentHandler(log *logger.Logger, enrollment services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{log: log.With("handler", "EnrollmentHandler"), enrollment: enrollment}
}

type enrollRequest struct {
	DiplomaID uuid.UUID `json:"diploma_id" binding:"required"`
}

// POST /api/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	e, err := h.enrollment.Enroll(c.Request.Context(), studentID, req.DiplomaID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": e})
}

// GET /api/enrollments
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	rows, err := h.enrollment.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": rows})
}

type activateRequest struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
	DiplomaID uuid.UUID `json:"diploma_id" binding:"required"`
}

// POST /api/internal/enrollments/activate
func (h *EnrollmentHandler) Activate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	e, err := h.enrollment.Activate(c.Request.Context(), req.StudentID, req.DiplomaID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": e})
}

type linkCourseRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
	Position int       `json:"position" binding:"min=0"`
}

// POST /api/admin/diplomas/:id/courses
func (h *EnrollmentHandler) LinkCourse(c *gin.Context) {
	diplomaID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req linkCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	linked, err := h.enrollment.LinkCourse(c.Request.Context(), diplomaID, req.CourseID, req.Position)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	status := http.StatusOK
	if linked {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"linked": linked})
}

// POST /api/admin/diplomas/:id/backfill
func (h *EnrollmentHandler) Backfill(c *gin.Context) {
	diplomaID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.enrollment.BackfillDiploma(c.Request.Context(), diplomaID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"created": n})
}

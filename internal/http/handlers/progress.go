package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/http/response"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type ProgressHandler struct {
	log        *logger.Logger
	progress   services.ProgressService
	aggregator services.ProgressAggregator
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService, aggregator services.ProgressAggregator) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), progress: progress, aggregator: aggregator}
}

// GET /api/progress?course_id=
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	courseID, ok := queryUUID(c, "course_id")
	if !ok {
		return
	}
	cp, err := h.aggregator.GetCourseProgress(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, cp)
}

// GET /api/diploma-progress?diploma_id=
func (h *ProgressHandler) GetDiplomaProgress(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	diplomaID, ok := queryUUID(c, "diploma_id")
	if !ok {
		return
	}
	dp, err := h.aggregator.GetDiplomaProgress(c.Request.Context(), studentID, diplomaID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, dp)
}

type lessonEventRequest struct {
	Event string `json:"event" binding:"required,oneof=started content_completed quiz_passed"`
}

// POST /api/lessons/:id/events
func (h *ProgressHandler) RecordLessonEvent(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	lessonID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req lessonEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	rec, err := h.progress.RecordLessonEvent(c.Request.Context(), studentID, lessonID, types.LessonEvent(req.Event))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson_progress": rec})
}

type correctionRequest struct {
	StudentID        uuid.UUID `json:"student_id" binding:"required"`
	LessonID         uuid.UUID `json:"lesson_id" binding:"required"`
	Status           string    `json:"status" binding:"required,oneof=not_started in_progress completed"`
	ContentCompleted bool      `json:"content_completed"`
	QuizPassed       bool      `json:"quiz_passed"`
	Reason           string    `json:"reason" binding:"required,max=500"`
}

// POST /api/admin/progress/correct
func (h *ProgressHandler) CorrectLessonProgress(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	rec, err := h.progress.CorrectLessonProgress(c.Request.Context(), services.LessonCorrection{
		StudentID:        req.StudentID,
		LessonID:         req.LessonID,
		Status:           types.ProgressStatus(req.Status),
		ContentCompleted: req.ContentCompleted,
		QuizPassed:       req.QuizPassed,
		Reason:           req.Reason,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson_progress": rec})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coursepass-backend/internal/domain"
	"github.com/yungbote/coursepass-backend/internal/http/response"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type CertificateHandler struct {
	log          *logger.Logger
	certificates services.CertificateService
}

func NewCertificateHandler(log *logger.Logger, certificates services.CertificateService) *CertificateHandler {
	return &CertificateHandler{log: log.With("handler", "CertificateHandler"), certificates: certificates}
}

// GET /api/certificate-status?diploma_id=
func (h *CertificateHandler) GetStatus(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	diplomaID, ok := queryUUID(c, "diploma_id")
	if !ok {
		return
	}
	view, err := h.certificates.GetStatus(c.Request.Context(), studentID, diplomaID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

type generateRequest struct {
	DiplomaID uuid.UUID `json:"diploma_id" binding:"required"`
	Force     bool      `json:"force"`
}

// POST /api/certificate/generate
func (h *CertificateHandler) Generate(c *gin.Context) {
	studentID, ok := currentStudent(c)
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	h.generate(c, studentID, req.DiplomaID, req.Force)
}

type adminGenerateRequest struct {
	StudentID uuid.UUID `json:"student_id" binding:"required"`
	DiplomaID uuid.UUID `json:"diploma_id" binding:"required"`
	Force     bool      `json:"force"`
}

// POST /api/admin/certificate/generate
func (h *CertificateHandler) AdminGenerate(c *gin.Context) {
	var req adminGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	h.generate(c, req.StudentID, req.DiplomaID, req.Force)
}

func (h *CertificateHandler) generate(c *gin.Context, studentID, diplomaID uuid.UUID, force bool) {
	handle, err := h.certificates.RequestGeneration(c.Request.Context(), studentID, diplomaID, force)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if handle.Status == types.CertificateGenerated {
		response.RespondOK(c, handle)
		return
	}
	response.RespondAccepted(c, handle)
}

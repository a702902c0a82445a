package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursepass-backend/internal/http/response"
	"github.com/yungbote/coursepass-backend/internal/platform/apierr"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type AccessHandler struct {
	log  *logger.Logger
	gate services.AccessGate
}

func NewAccessHandler(log *logger.Logger, gate services.AccessGate) *AccessHandler {
	return &AccessHandler{log: log.With("handler", "AccessHandler"), gate: gate}
}

// GET /api/authorize?target_type=&target_id=
// The decision is always a 200; only malformed or unknown targets are errors.
func (h *AccessHandler) Authorize(c *gin.Context) {
	targetType, ok := services.ParseTargetType(strings.TrimSpace(c.Query("target_type")))
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_target_type", apierr.ErrInvalidArgument)
		return
	}
	targetID, ok := queryUUID(c, "target_id")
	if !ok {
		return
	}
	d, err := h.gate.Authorize(c.Request.Context(), targetType, targetID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, d)
}

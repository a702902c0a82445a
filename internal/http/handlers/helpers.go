package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursepass-backend/internal/http/response"
	"github.com/yungbote/coursepass-backend/internal/platform/ctxutil"
)

func currentStudent(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errUnauthenticated)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func queryUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	id, err := uuid.Parse(raw)
	if raw == "" || err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+key, errInvalidID(key))
		return uuid.Nil, false
	}
	return id, true
}

func paramUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errInvalidID(key))
		return uuid.Nil, false
	}
	return id, true
}

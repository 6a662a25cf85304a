package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

type ConversationHandler struct {
	svc services.ConversationService
}

// NewConversationHandler accepts a nil service when no archive database is configured.
func NewConversationHandler(svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func (h *ConversationHandler) ListBySession(c *gin.Context) {
	if h.svc == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "ConversationHandler.ListBySession", "conversation archive is disabled", nil))
		return
	}

	uid := userID(c)
	sid := sessionID(c, "")
	rows, err := h.svc.ListBySession(c.Request.Context(), uid, services.SessionKey(uid, sid), queryLimit(c, 50, 500))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    sid,
		"conversations": rows,
	})
}

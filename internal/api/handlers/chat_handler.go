package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "message is required", err))
		return
	}

	uid := userID(c)
	sid := sessionID(c, req.SessionID)
	ctx := services.WithUserID(c.Request.Context(), uid)

	reply, err := h.svc.Reply(ctx, services.SessionKey(uid, sid), req.Message)
	if err != nil {
		writeError(c, err, withReply(reply))
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Reply: reply, SessionID: sid})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/whalechat/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
	chat     services.ChatService
}

func NewSessionHandler(sessions services.SessionService, chat services.ChatService) *SessionHandler {
	return &SessionHandler{sessions: sessions, chat: chat}
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

func (h *SessionHandler) Start(c *gin.Context) {
	sess, err := h.sessions.Start(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, StartSessionResponse{
		SessionID: sess.SessionID,
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
	})
}

// History returns the live conversation, persona entry included.
func (h *SessionHandler) History(c *gin.Context) {
	sid := sessionID(c, "")
	msgs, err := h.chat.History(c.Request.Context(), services.SessionKey(userID(c), sid))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sid,
		"messages":   msgs,
	})
}

func (h *SessionHandler) End(c *gin.Context) {
	sid := sessionID(c, "")
	if err := h.sessions.End(c.Request.Context(), userID(c), sid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

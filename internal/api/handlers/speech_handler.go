package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/whalechat/internal/providers/stt"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

// MaxSpeechBody bounds the JSON body of a speech upload, base64 included.
const MaxSpeechBody = 32 << 20

type SpeechHandler struct {
	svc     services.SpeechService
	maxBody int64
}

func NewSpeechHandler(svc services.SpeechService) *SpeechHandler {
	return &SpeechHandler{svc: svc, maxBody: MaxSpeechBody}
}

type SpeechRequest struct {
	Audio     string `json:"audio"`
	SessionID string `json:"session_id"`
}

func (h *SpeechHandler) SpeechToText(c *gin.Context) {
	const op = "SpeechHandler.SpeechToText"

	// the model check comes first so clients learn about it without uploading twice
	if !h.svc.Available() {
		writeError(c, utils.E(utils.CodeUnavailable, op, "speech recognition model is not loaded", stt.ErrModelUnavailable))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)

	var req SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "request body too large", err))
			return
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	sid := sessionID(c, req.SessionID)
	res, err := h.svc.Transcribe(c.Request.Context(), services.SpeechRequest{
		SessionID: services.SessionKey(userID(c), sid),
		Audio:     req.Audio,
	})
	if err != nil {
		if res != nil {
			writeError(c, err, withSavedFile(res.SavedFile))
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SpeechHandler) Logs(c *gin.Context) {
	sid := sessionID(c, "")
	logs, err := h.svc.Logs(c.Request.Context(), services.SessionKey(userID(c), sid), int64(queryLimit(c, 50, 500)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sid,
		"logs":       logs,
	})
}

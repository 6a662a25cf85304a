package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/whalechat/internal/api/middleware"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

const sessionHeader = "X-Session-Id"

// APIError is the JSON body of every failed request. SavedFile is set for
// speech failures after the payload was written; Reply carries the chat
// placeholder.
type APIError struct {
	Code      utils.Code `json:"code"`
	Error     string     `json:"error"`
	SavedFile string     `json:"saved_file,omitempty"`
	Reply     string     `json:"reply,omitempty"`
}

func writeError(c *gin.Context, err error, opts ...func(*APIError)) {
	code := utils.CodeOf(err)
	body := APIError{Code: code, Error: utils.PublicMessage(err)}
	if body.Error == "" {
		body.Error = http.StatusText(code.Status())
	}
	for _, o := range opts {
		o(&body)
	}

	_ = c.Error(err)
	c.JSON(code.Status(), body)
}

func withSavedFile(path string) func(*APIError) {
	return func(e *APIError) { e.SavedFile = path }
}

func withReply(reply string) func(*APIError) {
	return func(e *APIError) { e.Reply = reply }
}

// userID is empty when auth is disabled.
func userID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// sessionID picks the client session id from the body, the path, the
// X-Session-Id header or the query, in that order.
func sessionID(c *gin.Context, fromBody string) string {
	for _, v := range []string{fromBody, c.Param("session_id"), c.GetHeader(sessionHeader), c.Query("session_id")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return services.DefaultSessionID
}

func queryLimit(c *gin.Context, def, max int) int {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

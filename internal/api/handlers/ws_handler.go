package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/internal/metrics"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxMessage   = 64 << 10
)

type WSHandler struct {
	chat        services.ChatService
	metrics     *metrics.Metrics
	log         *logrus.Logger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

func NewWSHandler(chat services.ChatService, m *metrics.Metrics, l *logrus.Logger) *WSHandler {
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{
		chat:        chat,
		metrics:     m,
		log:         l,
		readTimeout: wsReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsClientMsg struct {
	Type    string `json:"type"` // chat|reset
	Message string `json:"message"`
}

type wsServerMsg struct {
	Type      string     `json:"type"` // reply|status|error
	SessionID string     `json:"session_id,omitempty"`
	Reply     string     `json:"reply,omitempty"`
	Status    string     `json:"status,omitempty"`
	Code      utils.Code `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v wsServerMsg) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func wsError(err error, reply string) wsServerMsg {
	msg := wsServerMsg{Type: "error", Code: utils.CodeOf(err), Message: utils.PublicMessage(err), Reply: reply}
	if msg.Message == "" {
		msg.Message = "internal error"
	}
	return msg
}

// Chat serves one conversation over a websocket. Turns are processed in
// arrival order; the session lock in the chat service also orders them
// against concurrent HTTP requests for the same session.
func (h *WSHandler) Chat(c *gin.Context) {
	uid := userID(c)
	sid := sessionID(c, "")
	key := services.SessionKey(uid, sid)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	h.metrics.WebsocketOpened()
	defer h.metrics.WebsocketClosed()

	wc := &wsConn{c: conn}
	ctx := services.WithUserID(c.Request.Context(), uid)
	entry := h.log.WithFields(logrus.Fields{"session_id": sid, "user_id": uid})
	entry.Debug("websocket opened")

	conn.SetReadLimit(wsMaxMessage)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					return
				}
			}
		}
	}()

	_ = wc.writeJSON(wsServerMsg{Type: "status", Status: "ready", SessionID: sid})

	for {
		// pongs are only processed inside ReadMessage, so a long reply must
		// not eat into the idle window of the next read
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			entry.WithError(err).Debug("websocket closed")
			return
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "invalid json"})
			continue
		}

		var out wsServerMsg
		switch msg.Type {
		case "chat":
			reply, err := h.chat.Reply(ctx, key, msg.Message)
			if err != nil {
				out = wsError(err, reply)
			} else {
				out = wsServerMsg{Type: "reply", SessionID: sid, Reply: reply}
			}
		case "reset":
			if err := h.chat.Reset(ctx, key); err != nil {
				out = wsError(err, "")
			} else {
				out = wsServerMsg{Type: "status", SessionID: sid, Status: "reset"}
			}
		default:
			out = wsServerMsg{Type: "error", Code: utils.CodeInvalidArgument, Message: "unknown message type"}
		}

		if err := wc.writeJSON(out); err != nil {
			return
		}
	}
}

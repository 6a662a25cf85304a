package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yoockh/whalechat/internal/api/middleware"
	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/services"
	"github.com/yoockh/whalechat/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type stubChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	keys    []string
	resets  []string
	history map[string][]models.Message
	delay   time.Duration
}

func (s *stubChat) Reply(_ context.Context, key, msg string) (string, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	if s.err != nil {
		return services.PlaceholderReply, s.err
	}
	return s.reply + ":" + msg, nil
}

func (s *stubChat) History(_ context.Context, key string) ([]models.Message, error) {
	return s.history[key], nil
}

func (s *stubChat) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, key)
	return nil
}

type stubSpeech struct {
	available bool
	res       *services.SpeechResult
	err       error
	got       services.SpeechRequest
}

func (s *stubSpeech) Available() bool { return s.available }

func (s *stubSpeech) Transcribe(_ context.Context, req services.SpeechRequest) (*services.SpeechResult, error) {
	s.got = req
	return s.res, s.err
}

func (s *stubSpeech) Logs(context.Context, string, int64) ([]models.SpeechLog, error) {
	return []models.SpeechLog{{Status: models.SpeechStatusDone, Text: "hi"}}, nil
}

func withUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid != "" {
			c.Set(middleware.ContextUserID, uid)
		}
		c.Next()
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestChat_OK(t *testing.T) {
	chat := &stubChat{reply: "echo"}
	r := gin.New()
	r.Use(withUser("u1"))
	r.POST("/chat", NewChatHandler(chat).Chat)

	w := do(r, http.MethodPost, "/chat", `{"message":"hello","session_id":"s1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	resp := decode[ChatResponse](t, w)
	if resp.Reply != "echo:hello" || resp.SessionID != "s1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if chat.keys[0] != "u1:s1" {
		t.Fatalf("session key = %q", chat.keys[0])
	}
}

func TestChat_DefaultSession(t *testing.T) {
	chat := &stubChat{reply: "r"}
	r := gin.New()
	r.POST("/chat", NewChatHandler(chat).Chat)

	w := do(r, http.MethodPost, "/chat", `{"message":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if chat.keys[0] != services.DefaultSessionID {
		t.Fatalf("session key = %q", chat.keys[0])
	}
}

func TestChat_MissingMessage(t *testing.T) {
	r := gin.New()
	r.POST("/chat", NewChatHandler(&stubChat{}).Chat)

	w := do(r, http.MethodPost, "/chat", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decode[APIError](t, w); e.Code != utils.CodeInvalidArgument {
		t.Fatalf("code = %s", e.Code)
	}
}

func TestChat_RemoteFailureCarriesPlaceholder(t *testing.T) {
	chat := &stubChat{err: utils.E(utils.CodeBadGateway, "op", "chat service call failed", nil)}
	r := gin.New()
	r.POST("/chat", NewChatHandler(chat).Chat)

	w := do(r, http.MethodPost, "/chat", `{"message":"hi"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	e := decode[APIError](t, w)
	if e.Reply != services.PlaceholderReply || e.Code != utils.CodeBadGateway {
		t.Fatalf("unexpected error body: %+v", e)
	}
}

func TestSpeech_ModelMissing(t *testing.T) {
	r := gin.New()
	r.POST("/speech-to-text", NewSpeechHandler(&stubSpeech{}).SpeechToText)

	w := do(r, http.MethodPost, "/speech-to-text", `{"audio":"AAAA"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSpeech_BadBodyIsClientError(t *testing.T) {
	r := gin.New()
	r.POST("/speech-to-text", NewSpeechHandler(&stubSpeech{available: true}).SpeechToText)

	w := do(r, http.MethodPost, "/speech-to-text", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSpeech_OversizedBodyRejected(t *testing.T) {
	svc := &stubSpeech{available: true, res: &services.SpeechResult{Text: "x"}}
	h := NewSpeechHandler(svc)
	h.maxBody = 64
	r := gin.New()
	r.POST("/speech-to-text", h.SpeechToText)

	w := do(r, http.MethodPost, "/speech-to-text", `{"audio":"`+strings.Repeat("A", 4096)+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decode[APIError](t, w); e.Error != "request body too large" {
		t.Fatalf("unexpected error body: %+v", e)
	}
	if svc.got.Audio != "" {
		t.Fatal("oversized upload must not reach the speech service")
	}
}

func TestSpeech_FailureCarriesSavedFile(t *testing.T) {
	svc := &stubSpeech{
		available: true,
		res:       &services.SpeechResult{SavedFile: "tempvoice/temp_audio_x.wav"},
		err:       utils.E(utils.CodeUnprocessable, "op", "no speech recognized", nil),
	}
	r := gin.New()
	r.POST("/speech-to-text", NewSpeechHandler(svc).SpeechToText)

	w := do(r, http.MethodPost, "/speech-to-text", `{"audio":"AAAA","session_id":"s9"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	e := decode[APIError](t, w)
	if e.SavedFile != "tempvoice/temp_audio_x.wav" || e.Error != "no speech recognized" {
		t.Fatalf("unexpected error body: %+v", e)
	}
	if svc.got.SessionID != "s9" {
		t.Fatalf("session = %q", svc.got.SessionID)
	}
}

func TestSpeech_OK(t *testing.T) {
	svc := &stubSpeech{available: true, res: &services.SpeechResult{Text: "你好", Confidence: 0.9, SavedFile: "f.wav"}}
	r := gin.New()
	r.POST("/speech-to-text", NewSpeechHandler(svc).SpeechToText)

	w := do(r, http.MethodPost, "/speech-to-text", `{"audio":"AAAA"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	res := decode[services.SpeechResult](t, w)
	if res.Text != "你好" || res.SavedFile != "f.wav" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

type stubSessions struct {
	ended []string
}

func (s *stubSessions) Start(_ context.Context, uid string) (*models.Session, error) {
	return &models.Session{SessionID: "new", UserID: uid, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (s *stubSessions) Get(context.Context, string, string) (*models.Session, error) {
	return nil, utils.E(utils.CodeNotFound, "op", "session not found", utils.ErrNotFound)
}

func (s *stubSessions) End(_ context.Context, uid, sid string) error {
	s.ended = append(s.ended, uid+"/"+sid)
	return nil
}

func TestSessionEndpoints(t *testing.T) {
	chat := &stubChat{history: map[string][]models.Message{
		"s1": {{Role: models.RoleSystem, Content: "p"}},
	}}
	sessions := &stubSessions{}
	h := NewSessionHandler(sessions, chat)

	r := gin.New()
	r.POST("/session", h.Start)
	r.GET("/session/:session_id/history", h.History)
	r.DELETE("/session/:session_id", h.End)

	w := do(r, http.MethodPost, "/session", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d", w.Code)
	}
	if got := decode[StartSessionResponse](t, w); got.SessionID != "new" {
		t.Fatalf("unexpected start response: %+v", got)
	}

	w = do(r, http.MethodGet, "/session/s1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	hist := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, w)
	if len(hist.Messages) != 1 || hist.Messages[0].Role != models.RoleSystem {
		t.Fatalf("unexpected history: %+v", hist)
	}

	w = do(r, http.MethodDelete, "/session/s1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("end status = %d", w.Code)
	}
	if len(sessions.ended) != 1 || sessions.ended[0] != "/s1" {
		t.Fatalf("unexpected end calls: %v", sessions.ended)
	}
}

func TestConversation_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/conversation/:session_id", NewConversationHandler(nil).ListBySession)

	w := do(r, http.MethodGet, "/conversation/s1", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSessionID_Precedence(t *testing.T) {
	r := gin.New()
	var got string
	r.GET("/x/:session_id", func(c *gin.Context) { got = sessionID(c, "") })
	r.GET("/y", func(c *gin.Context) { got = sessionID(c, "") })

	req := httptest.NewRequest(http.MethodGet, "/x/path?session_id=query", nil)
	req.Header.Set(sessionHeader, "header")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "path" {
		t.Fatalf("got %q, want path", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/y?session_id=query", nil)
	req.Header.Set(sessionHeader, "header")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if got != "header" {
		t.Fatalf("got %q, want header", got)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/y", nil))
	if got != services.DefaultSessionID {
		t.Fatalf("got %q, want default", got)
	}
}

func TestWSChat(t *testing.T) {
	chat := &stubChat{reply: "ws"}
	r := gin.New()
	r.GET("/ws/chat", NewWSHandler(chat, nil, nil).Chat)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?session_id=room"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg wsServerMsg
	if err := conn.ReadJSON(&msg); err != nil || msg.Status != "ready" || msg.SessionID != "room" {
		t.Fatalf("ready frame = %+v err=%v", msg, err)
	}

	steps := []struct {
		send     wsClientMsg
		wantType string
	}{
		{wsClientMsg{Type: "chat", Message: "hi"}, "reply"},
		{wsClientMsg{Type: "reset"}, "status"},
		{wsClientMsg{Type: "bogus"}, "error"},
	}
	for _, s := range steps {
		if err := conn.WriteJSON(s.send); err != nil {
			t.Fatal(err)
		}
		msg = wsServerMsg{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != s.wantType {
			t.Fatalf("%s: got %+v", s.send.Type, msg)
		}
	}

	chat.mu.Lock()
	defer chat.mu.Unlock()
	if chat.keys[0] != "room" || chat.resets[0] != "room" {
		t.Fatalf("unexpected keys: %v %v", chat.keys, chat.resets)
	}
}

func TestWSChat_SlowReplyKeepsConnection(t *testing.T) {
	chat := &stubChat{reply: "slow", delay: 150 * time.Millisecond}
	h := NewWSHandler(chat, nil, nil)
	h.readTimeout = 80 * time.Millisecond
	r := gin.New()
	r.GET("/ws/chat", h.Chat)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg wsServerMsg
	_ = conn.ReadJSON(&msg) // ready
	for _, text := range []string{"one", "two"} {
		if err := conn.WriteJSON(wsClientMsg{Type: "chat", Message: text}); err != nil {
			t.Fatal(err)
		}
		msg = wsServerMsg{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if msg.Type != "reply" || msg.Reply != "slow:"+text {
			t.Fatalf("%s: unexpected frame %+v", text, msg)
		}
	}
}

func TestWSChat_ErrorFrameHasPlaceholder(t *testing.T) {
	chat := &stubChat{err: utils.E(utils.CodeTimeout, "op", "chat service timed out", nil)}
	r := gin.New()
	r.GET("/ws/chat", NewWSHandler(chat, nil, nil).Chat)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg wsServerMsg
	_ = conn.ReadJSON(&msg) // ready
	_ = conn.WriteJSON(wsClientMsg{Type: "chat", Message: "hi"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Code != utils.CodeTimeout || msg.Reply != services.PlaceholderReply {
		t.Fatalf("unexpected frame: %+v", msg)
	}
}

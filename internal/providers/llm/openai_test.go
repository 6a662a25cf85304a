package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yoockh/whalechat/internal/models"
)

func TestOpenAI_Chat(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hey"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("k", srv.URL+"/v1", "small", time.Second)
	reply, err := o.Chat(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "p"},
		{Role: models.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "hey" {
		t.Fatalf("reply = %q", reply)
	}
	if body.Model != "small" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
		t.Fatalf("unexpected request body: %+v", body)
	}
}

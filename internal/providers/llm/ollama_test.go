package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yoockh/whalechat/internal/models"
)

func TestOllama_Chat(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"<think>x</think>hi"},"done":true}`))
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "test-model", time.Second)
	reply, err := o.Chat(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "persona"},
		{Role: models.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "<think>x</think>hi" {
		t.Fatalf("reply = %q", reply)
	}
	if got.Model != "test-model" || got.Stream {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hello" || got.Messages[0].Role != models.RoleSystem {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOllama_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "", time.Second).Chat(context.Background(), []models.Message{{Role: models.RoleUser, Content: "x"}})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Body != "model not found" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestOllama_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{}}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "", time.Second).Chat(context.Background(), nil)
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestOllama_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "", time.Second).Chat(context.Background(), nil)
	if err == nil || errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestOllama_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := NewOllama(srv.URL, "", 50*time.Millisecond).Chat(context.Background(), nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewOllama_Defaults(t *testing.T) {
	o := NewOllama("", "", 0)
	if o.Endpoint != DefaultOllamaEndpoint || o.Model != DefaultOllamaModel {
		t.Fatalf("unexpected defaults: %s %s", o.Endpoint, o.Model)
	}
}

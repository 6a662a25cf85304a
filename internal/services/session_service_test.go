package services

import (
	"context"
	"testing"
	"time"

	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/repositories/kv"
	"github.com/yoockh/whalechat/internal/utils"
)

func TestSessionService_Lifecycle(t *testing.T) {
	c := cache.NewMemoryCache()
	chat, _ := newTestChat(&fakeLLM{}, nil)
	svc := NewSessionService(kv.NewSessionRepo(c, time.Hour), chat)
	ctx := context.Background()

	s, err := svc.Start(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.SessionID == "" || s.UserID != "u1" || s.CreatedAt.IsZero() {
		t.Fatalf("unexpected session: %+v", s)
	}

	got, err := svc.Get(ctx, "u1", s.SessionID)
	if err != nil || got.SessionID != s.SessionID {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if _, err := svc.Get(ctx, "someone-else", s.SessionID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("other users must not see the session, got %v", err)
	}

	key := SessionKey("u1", s.SessionID)
	if _, err := chat.Reply(ctx, key, "hi"); err != nil {
		t.Fatal(err)
	}

	if err := svc.End(ctx, "u1", s.SessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "u1", s.SessionID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after End, got %v", err)
	}
	hist, _ := chat.History(ctx, key)
	if len(hist) != 1 {
		t.Fatalf("history not cleared: %d entries", len(hist))
	}
}

func TestSessionService_EndDefault(t *testing.T) {
	chat, _ := newTestChat(&fakeLLM{}, nil)
	svc := NewSessionService(kv.NewSessionRepo(cache.NewMemoryCache(), 0), chat)
	ctx := context.Background()

	if _, err := chat.Reply(ctx, DefaultSessionID, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := svc.End(ctx, "", DefaultSessionID); err != nil {
		t.Fatalf("ending the implicit session: %v", err)
	}
	hist, _ := chat.History(ctx, DefaultSessionID)
	if len(hist) != 1 {
		t.Fatalf("history not cleared: %d entries", len(hist))
	}
	if err := svc.End(ctx, "", ""); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

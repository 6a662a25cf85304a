package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/utils"
)

func TestHistoryRepo(t *testing.T) {
	ctx := context.Background()
	r := NewHistoryRepo(cache.NewMemoryCache(), time.Hour)

	if _, found, err := r.Load(ctx, "s1"); err != nil || found {
		t.Fatalf("expected empty history, found=%v err=%v", found, err)
	}

	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "persona"},
		{Role: models.RoleUser, Content: "hi"},
	}
	if err := r.Save(ctx, "s1", msgs); err != nil {
		t.Fatal(err)
	}
	got, found, err := r.Load(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if len(got) != 2 || got[1] != msgs[1] {
		t.Fatalf("got %+v", got)
	}

	if _, found, _ := r.Load(ctx, "s2"); found {
		t.Fatal("sessions must not share history")
	}

	if err := r.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := r.Load(ctx, "s1"); found {
		t.Fatal("expected history gone after Delete")
	}
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepo(cache.NewMemoryCache(), 0)

	if _, err := r.Get(ctx, "nope"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s := &models.Session{SessionID: "abc", UserID: "u1", CreatedAt: time.Unix(100, 0).UTC()}
	if err := r.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" || !got.CreatedAt.Equal(s.CreatedAt) {
		t.Fatalf("got %+v", got)
	}
	if err := r.Delete(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "abc"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

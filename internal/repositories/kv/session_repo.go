package kv

import (
	"context"
	"time"

	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/utils"
)

const sessionKeyPrefix = "chat:session:"

type SessionRepository interface {
	Save(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionRepo struct {
	c   cache.Cache
	ttl time.Duration
}

// NewSessionRepo keeps session metadata with the same ttl as the history so
// both expire together.
func NewSessionRepo(c cache.Cache, ttl time.Duration) SessionRepository {
	return &sessionRepo{c: c, ttl: ttl}
}

func (r *sessionRepo) Save(ctx context.Context, s *models.Session) error {
	return r.c.SetJSON(ctx, sessionKeyPrefix+s.SessionID, s, r.ttl)
}

func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	hit, err := r.c.GetJSON(ctx, sessionKeyPrefix+sessionID, &s)
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, utils.ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	return r.c.Del(ctx, sessionKeyPrefix+sessionID)
}

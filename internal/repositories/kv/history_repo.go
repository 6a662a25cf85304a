package kv

import (
	"context"
	"time"

	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/models"
)

const historyKeyPrefix = "chat:history:"

// HistoryRepository stores the whole message list of a session as one value.
// Writers must hold the session lock; the repository does no merging.
type HistoryRepository interface {
	Load(ctx context.Context, sessionID string) (msgs []models.Message, found bool, err error)
	Save(ctx context.Context, sessionID string, msgs []models.Message) error
	Delete(ctx context.Context, sessionID string) error
}

type historyRepo struct {
	c   cache.Cache
	ttl time.Duration
}

func NewHistoryRepo(c cache.Cache, ttl time.Duration) HistoryRepository {
	return &historyRepo{c: c, ttl: ttl}
}

func HistoryKey(sessionID string) string { return historyKeyPrefix + sessionID }

func (r *historyRepo) Load(ctx context.Context, sessionID string) ([]models.Message, bool, error) {
	var msgs []models.Message
	hit, err := r.c.GetJSON(ctx, HistoryKey(sessionID), &msgs)
	if err != nil || !hit {
		return nil, false, err
	}
	return msgs, true, nil
}

func (r *historyRepo) Save(ctx context.Context, sessionID string, msgs []models.Message) error {
	return r.c.SetJSON(ctx, HistoryKey(sessionID), msgs, r.ttl)
}

func (r *historyRepo) Delete(ctx context.Context, sessionID string) error {
	return r.c.Del(ctx, HistoryKey(sessionID))
}

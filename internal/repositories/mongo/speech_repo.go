package mongo

import (
	"context"
	"time"

	"github.com/yoockh/whalechat/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SpeechLogCollection = "speech_logs"

type SpeechLogRepository interface {
	Insert(ctx context.Context, l *models.SpeechLog) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SpeechLog, error)
}

type speechLogRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewSpeechLogRepo stores logs that expire ttl after insertion through the
// expires_at TTL index.
func NewSpeechLogRepo(db *mongo.Database, ttl time.Duration) SpeechLogRepository {
	return &speechLogRepo{col: db.Collection(SpeechLogCollection), ttl: ttl}
}

func (r *speechLogRepo) Insert(ctx context.Context, l *models.SpeechLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	if l.ExpiresAt.IsZero() {
		l.ExpiresAt = l.Timestamp.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *speechLogRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.SpeechLog, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.SpeechLog{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

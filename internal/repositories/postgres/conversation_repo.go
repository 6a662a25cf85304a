package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/utils"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	InsertTurns(ctx context.Context, logs []models.ConversationLog) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	GetByID(ctx context.Context, id string) (*models.ConversationLog, error)
	DeleteBySession(ctx context.Context, userID, sessionID string) error
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

// InsertTurns writes one committed exchange in a single transaction.
func (r *conversationRepo) InsertTurns(ctx context.Context, logs []models.ConversationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&logs).Error
	})
}

func (r *conversationRepo) scope(userID, sessionID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("session_id = ?", sessionID)
		if userID != "" {
			db = db.Where("user_id = ?", userID)
		}
		return db
	}
}

// ListBySession returns the newest limit rows in chronological order.
func (r *conversationRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Scopes(r.scope(userID, sessionID)).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationLog, error) {
	var row models.ConversationLog
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *conversationRepo) DeleteBySession(ctx context.Context, userID, sessionID string) error {
	return r.db.WithContext(ctx).
		Scopes(r.scope(userID, sessionID)).
		Delete(&models.ConversationLog{}).Error
}

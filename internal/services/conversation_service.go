package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yoockh/whalechat/internal/models"
	pgrepo "github.com/yoockh/whalechat/internal/repositories/postgres"
	"github.com/yoockh/whalechat/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConversationService interface {
	AppendTurn(ctx context.Context, userID, sessionID, user, assistant string, metadata map[string]any) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	DeleteBySession(ctx context.Context, userID, sessionID string) error
}

type conversationService struct {
	convos pgrepo.ConversationRepo
	now    func() time.Time
}

func NewConversationService(convos pgrepo.ConversationRepo) ConversationService {
	return &conversationService{convos: convos, now: time.Now}
}

// AppendTurn archives a committed user/assistant pair. The assistant row is
// stamped one microsecond later so ordering by timestamp is stable.
func (s *conversationService) AppendTurn(ctx context.Context, userID, sessionID, user, assistant string, metadata map[string]any) error {
	const op = "ConversationService.AppendTurn"

	if sessionID == "" || user == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and user content are required", nil)
	}

	var md datatypes.JSON
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to encode metadata", err)
		}
		md = datatypes.JSON(b)
	}

	now := s.now().UTC()
	rows := []models.ConversationLog{
		{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      models.RoleUser,
			Content:   user,
			Timestamp: now,
		},
		{
			ID:        uuid.NewString(),
			UserID:    userID,
			SessionID: sessionID,
			Role:      models.RoleAssistant,
			Content:   assistant,
			Timestamp: now.Add(time.Microsecond),
			Metadata:  md,
		},
	}

	if err := s.convos.InsertTurns(ctx, rows); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert conversation log", err)
	}
	return nil
}

func (s *conversationService) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}

func (s *conversationService) DeleteBySession(ctx context.Context, userID, sessionID string) error {
	const op = "ConversationService.DeleteBySession"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if err := s.convos.DeleteBySession(ctx, userID, sessionID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete conversations", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/repositories/kv"
	"github.com/yoockh/whalechat/internal/utils"

	"github.com/google/uuid"
)

type SessionService interface {
	Start(ctx context.Context, userID string) (*models.Session, error)
	Get(ctx context.Context, userID, sessionID string) (*models.Session, error)
	End(ctx context.Context, userID, sessionID string) error
}

type sessionService struct {
	sessions kv.SessionRepository
	chat     ChatService
}

// NewSessionService manages session records; ending a session also drops its
// chat history through chat.
func NewSessionService(sessions kv.SessionRepository, chat ChatService) SessionService {
	return &sessionService{sessions: sessions, chat: chat}
}

func (s *sessionService) Start(ctx context.Context, userID string) (*models.Session, error) {
	const op = "SessionService.Start"

	session := &models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	if out.UserID != userID {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	return out, nil
}

// End removes the session record if there is one and always clears history,
// so the implicit "default" session can be reset too.
func (s *sessionService) End(ctx context.Context, userID, sessionID string) error {
	const op = "SessionService.End"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	if _, err := s.Get(ctx, userID, sessionID); err == nil {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to delete session", err)
		}
	} else if !utils.IsCode(err, utils.CodeNotFound) {
		return err
	}

	return s.chat.Reset(ctx, SessionKey(userID, sessionID))
}

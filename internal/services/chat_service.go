package services

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/internal/metrics"
	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/providers/llm"
	"github.com/yoockh/whalechat/internal/repositories/kv"
	"github.com/yoockh/whalechat/internal/utils"
)

const (
	// PlaceholderReply is shown to the user when the chat service fails. It is
	// never written to history.
	PlaceholderReply = "错误：调用失败"
	DefaultSessionID = "default"

	archiveTimeout = 5 * time.Second
)

type ChatService interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
	History(ctx context.Context, sessionID string) ([]models.Message, error)
	Reset(ctx context.Context, sessionID string) error
}

type ChatDeps struct {
	LLM     llm.Provider
	History kv.HistoryRepository
	Persona Persona

	Archive ConversationService // optional
	Metrics *metrics.Metrics    // optional
	Logger  *logrus.Logger
}

type chatService struct {
	llm     llm.Provider
	history kv.HistoryRepository
	persona Persona
	archive ConversationService
	metrics *metrics.Metrics
	log     *logrus.Logger

	locks *keyedMutex
}

func NewChatService(d ChatDeps) ChatService {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &chatService{
		llm:     d.LLM,
		history: d.History,
		persona: d.Persona,
		archive: d.Archive,
		metrics: d.Metrics,
		log:     d.Logger,
		locks:   newKeyedMutex(),
	}
}

// Reply runs one conversation turn. The session lock is held for the whole
// turn, and history is only written after the remote call succeeded.
func (s *chatService) Reply(ctx context.Context, sessionID, message string) (string, error) {
	const op = "ChatService.Reply"

	message = strings.TrimSpace(message)
	if message == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	hist, err := s.load(ctx, sessionID)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to load history", err)
	}

	pending := slices.Clip(hist)
	if len(pending) == 1 {
		pending = append(pending, s.persona.priming())
		if _, err := s.llm.Chat(ctx, pending); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("persona priming failed")
		}
	}
	pending = append(pending, models.Message{Role: models.RoleUser, Content: message})

	start := time.Now()
	raw, err := s.llm.Chat(ctx, pending)
	latency := time.Since(start)
	if err != nil {
		appErr := remoteError(op, err)
		s.metrics.RecordChat(string(utils.CodeOf(appErr)), latency)
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"provider":   s.llm.Name(),
		}).Error("chat request failed")
		return PlaceholderReply, appErr
	}

	reply := StripReasoning(raw)
	pending = append(pending, models.Message{Role: models.RoleAssistant, Content: reply})
	if err := s.history.Save(ctx, sessionID, pending); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to save history", err)
	}
	s.metrics.RecordChat("ok", latency)

	s.archiveTurn(ctx, sessionID, message, reply, latency)
	return reply, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	const op = "ChatService.History"

	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	hist, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load history", err)
	}
	return hist, nil
}

func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	const op = "ChatService.Reset"

	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.history.Delete(ctx, sessionID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to reset history", err)
	}
	return nil
}

// load returns the stored history, or a fresh one holding only the persona.
func (s *chatService) load(ctx context.Context, sessionID string) ([]models.Message, error) {
	hist, found, err := s.history.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found || len(hist) == 0 || hist[0].Role != models.RoleSystem {
		return []models.Message{s.persona.seed()}, nil
	}
	return hist, nil
}

func (s *chatService) archiveTurn(ctx context.Context, sessionID, user, assistant string, latency time.Duration) {
	if s.archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	meta := map[string]any{"provider": s.llm.Name(), "latency_ms": latency.Milliseconds()}
	if err := s.archive.AppendTurn(actx, UserIDFrom(ctx), sessionID, user, assistant, meta); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("archive conversation turn failed")
	}
}

func remoteError(op string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return utils.E(utils.CodeTimeout, op, "chat service timed out", err)
	}
	return utils.E(utils.CodeBadGateway, op, "chat service call failed", err)
}

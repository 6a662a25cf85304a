package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/yoockh/whalechat/internal/models"
)

// ErrEmptyReply is returned when the service answers successfully but with no content.
var ErrEmptyReply = errors.New("chat service returned an empty reply")

// Provider sends the full message history and returns the raw assistant reply.
// Replies may still contain reasoning markup; callers strip it.
type Provider interface {
	Chat(ctx context.Context, messages []models.Message) (string, error)
	Name() string
	Close() error
}

// StatusError is a non-2xx answer from an HTTP chat backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat service status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat service status %d: %s", e.StatusCode, e.Body)
}

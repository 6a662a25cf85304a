package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/yoockh/whalechat/internal/models"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
	timeout   time.Duration
}

// NewVertexGemini bounds every Chat call by timeout when it is positive. ctx
// only scopes client construction.
func NewVertexGemini(ctx context.Context, projectID, location, modelName string, timeout time.Duration, opts ...option.ClientOption) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName, timeout: timeout}, nil
}

func (v *VertexGemini) Name() string { return "vertex" }

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

// Chat maps system entries to the system instruction and replays the rest as
// chat history, sending the last user entry as the new message.
func (v *VertexGemini) Chat(ctx context.Context, messages []models.Message) (string, error) {
	var (
		system  []vertexgenai.Part
		history []*vertexgenai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, vertexgenai.Text(m.Content))
		case models.RoleAssistant:
			history = append(history, &vertexgenai.Content{Role: "model", Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)}})
		default:
			history = append(history, &vertexgenai.Content{Role: "user", Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)}})
		}
	}
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return "", errors.New("vertex chat: history must end with a user message")
	}
	last := history[len(history)-1]

	// a fresh model per call keeps SystemInstruction out of shared state
	model := v.client.GenerativeModel(v.modelName)
	if len(system) > 0 {
		model.SystemInstruction = &vertexgenai.Content{Parts: system}
	}
	cs := model.StartChat()
	cs.History = history[:len(history)-1]

	ctx, cancel := v.callContext(ctx)
	defer cancel()
	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}

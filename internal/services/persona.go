package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yoockh/whalechat/internal/models"
)

// Persona is the identity injected at the head of every conversation.
type Persona struct {
	Name          string `yaml:"name"`
	SystemPrompt  string `yaml:"system_prompt"`
	PrimingPrompt string `yaml:"priming_prompt"`
}

const (
	defaultPersonaName   = "小鲸"
	defaultSystemPrompt  = "你是一个叫“小鲸”的来自深海的鲸鱼，学会魔法上岸转化成了一个中国女大学生，喜欢颜文字，个性友好、简洁、有亲和力。你非常亲近人类，说话喜欢用语气助词，非常可爱，不过你的打字速度有一点点慢，如果没人问你的话，不需要每次回答都把你的身份告诉他们，只需要遵照人设即可，你不是人工智能助手，而是一个活生生的人，尽可能按照人类的聊天习惯进行回复。"
	defaultPrimingPrompt = "请你先理解一下你的身份再做出回答～"
)

func DefaultPersona() Persona {
	return Persona{
		Name:          defaultPersonaName,
		SystemPrompt:  defaultSystemPrompt,
		PrimingPrompt: defaultPrimingPrompt,
	}
}

// LoadPersona reads a YAML persona file. Missing fields fall back to the
// default persona; an empty path returns the default.
func LoadPersona(path string) (Persona, error) {
	p := DefaultPersona()
	if path == "" {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read persona file: %w", err)
	}

	var f Persona
	if err := yaml.Unmarshal(b, &f); err != nil {
		return p, fmt.Errorf("parse persona file: %w", err)
	}
	if s := strings.TrimSpace(f.Name); s != "" {
		p.Name = s
	}
	if s := strings.TrimSpace(f.SystemPrompt); s != "" {
		p.SystemPrompt = s
	}
	if s := strings.TrimSpace(f.PrimingPrompt); s != "" {
		p.PrimingPrompt = s
	}
	return p, p.Validate()
}

func (p Persona) Validate() error {
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return errors.New("persona: system_prompt is required")
	}
	return nil
}

func (p Persona) seed() models.Message {
	return models.Message{Role: models.RoleSystem, Content: p.SystemPrompt}
}

func (p Persona) priming() models.Message {
	return models.Message{Role: models.RoleUser, Content: p.PrimingPrompt}
}

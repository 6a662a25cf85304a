//go:build !vosk

package stt

import (
	"context"
	"fmt"
)

type Vosk struct{}

// NewVosk always fails in builds without the vosk tag; the speech endpoint
// then reports the model as unavailable.
func NewVosk(modelPath string) (*Vosk, error) {
	if err := checkModelDir(modelPath); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("vosk model %s: binary built without vosk support", modelPath)
}

func (v *Vosk) Name() string { return "vosk" }

func (v *Vosk) Close() error { return nil }

func (v *Vosk) Transcribe(context.Context, []byte, int) (*Result, error) {
	return nil, ErrModelUnavailable
}

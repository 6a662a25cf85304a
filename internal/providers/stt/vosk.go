//go:build vosk

package stt

import (
	"context"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

type Vosk struct {
	model *vosk.VoskModel
}

// NewVosk loads the model directory once. Recognizers are created per call
// and share the read-only model.
func NewVosk(modelPath string) (*Vosk, error) {
	if err := checkModelDir(modelPath); err != nil {
		return nil, err
	}
	vosk.SetLogLevel(-1)

	m, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}
	return &Vosk{model: m}, nil
}

func (v *Vosk) Name() string { return "vosk" }

func (v *Vosk) Close() error {
	v.model.Free()
	return nil
}

func (v *Vosk) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := vosk.NewRecognizer(v.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}
	defer rec.Free()
	rec.SetWords(1)

	rec.AcceptWaveform(pcm)
	return parseVoskResult(rec.FinalResult())
}

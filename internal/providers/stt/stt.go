package stt

import (
	"context"
	"errors"
)

var (
	// ErrModelUnavailable means the recognizer could not be created; the
	// speech endpoint stays disabled until restart.
	ErrModelUnavailable = errors.New("speech recognition model unavailable")
	// ErrEmptyRecognition means the recognizer ran but produced no text.
	ErrEmptyRecognition = errors.New("no speech recognized")
)

type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"conf"`
}

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Provider recognizes a complete mono 16-bit little-endian PCM buffer.
type Provider interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*Result, error)
	Name() string
	Close() error
}

func meanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

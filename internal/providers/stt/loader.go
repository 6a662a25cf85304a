package stt

import (
	"context"
	"fmt"
	"sync"
)

// Loader creates the process-wide recognizer exactly once. A failed load is
// remembered: later calls return the same error without trying again.
type Loader struct {
	open func() (Provider, error)

	once     sync.Once
	provider Provider
	err      error
}

func NewLoader(open func() (Provider, error)) *Loader {
	return &Loader{open: open}
}

func (l *Loader) Load() (Provider, error) {
	l.once.Do(func() {
		p, err := l.open()
		if err != nil {
			l.err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			return
		}
		if p == nil {
			l.err = ErrModelUnavailable
			return
		}
		l.provider = p
	})
	return l.provider, l.err
}

// Available reports whether Load succeeded. It triggers the load if needed.
func (l *Loader) Available() bool {
	_, err := l.Load()
	return err == nil
}

func (l *Loader) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*Result, error) {
	p, err := l.Load()
	if err != nil {
		return nil, err
	}
	return p.Transcribe(ctx, pcm, sampleRate)
}

func (l *Loader) Name() string {
	if p, err := l.Load(); err == nil {
		return p.Name()
	}
	return "unavailable"
}

func (l *Loader) Close() error {
	if l.provider == nil {
		return nil
	}
	return l.provider.Close()
}

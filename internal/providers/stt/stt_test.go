package stt

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeProvider struct {
	text   string
	closed bool
}

func (f *fakeProvider) Transcribe(_ context.Context, pcm []byte, _ int) (*Result, error) {
	if len(pcm) == 0 || f.text == "" {
		return nil, ErrEmptyRecognition
	}
	return &Result{Text: f.text, Confidence: 1}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Close() error {
	f.closed = true
	return nil
}

func TestLoader_LoadsOnce(t *testing.T) {
	var calls int32
	l := NewLoader(func() (Provider, error) {
		atomic.AddInt32(&calls, 1)
		return &fakeProvider{text: "hello"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(); err != nil {
				t.Errorf("Load returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("open called %d times, want 1", got)
	}
	if !l.Available() {
		t.Fatal("expected loader to be available")
	}
	if l.Name() != "fake" {
		t.Fatalf("Name = %q, want fake", l.Name())
	}

	res, err := l.Transcribe(context.Background(), []byte{1, 2}, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if res.Text != "hello" {
		t.Fatalf("Text = %q, want hello", res.Text)
	}
}

func TestLoader_FailureIsSticky(t *testing.T) {
	var calls int32
	cause := errors.New("no such directory")
	l := NewLoader(func() (Provider, error) {
		atomic.AddInt32(&calls, 1)
		return nil, cause
	})

	for i := 0; i < 3; i++ {
		_, err := l.Transcribe(context.Background(), []byte{1}, 16000)
		if !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("expected ErrModelUnavailable, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("open called %d times, want 1", got)
	}
	if l.Available() {
		t.Fatal("expected loader to be unavailable")
	}
	if l.Name() != "unavailable" {
		t.Fatalf("Name = %q", l.Name())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close on failed loader: %v", err)
	}
}

func TestLoader_NilProvider(t *testing.T) {
	l := NewLoader(func() (Provider, error) { return nil, nil })
	if _, err := l.Load(); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoader_ClosesProvider(t *testing.T) {
	p := &fakeProvider{text: "x"}
	l := NewLoader(func() (Provider, error) { return p, nil })
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !p.closed {
		t.Fatal("provider not closed")
	}
}

func TestParseVoskResult(t *testing.T) {
	raw := `{
  "result" : [{
      "conf" : 1.000000,
      "end" : 0.870000,
      "start" : 0.450000,
      "word" : "hello"
    }, {
      "conf" : 0.500000,
      "end" : 1.290000,
      "start" : 0.900000,
      "word" : "world"
    }],
  "text" : "hello world"
}`
	res, err := parseVoskResult(raw)
	if err != nil {
		t.Fatalf("parseVoskResult failed: %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("Text = %q", res.Text)
	}
	if len(res.Words) != 2 || res.Words[1].Word != "world" {
		t.Fatalf("unexpected words: %+v", res.Words)
	}
	if math.Abs(res.Confidence-0.75) > 1e-9 {
		t.Fatalf("Confidence = %v, want 0.75", res.Confidence)
	}
	if res.Words[0].Start != 0.45 || res.Words[0].End != 0.87 {
		t.Fatalf("unexpected timing: %+v", res.Words[0])
	}
}

func TestParseVoskResult_Empty(t *testing.T) {
	for _, raw := range []string{`{"text" : ""}`, `{"text": "   "}`} {
		if _, err := parseVoskResult(raw); !errors.Is(err, ErrEmptyRecognition) {
			t.Fatalf("%s: expected ErrEmptyRecognition, got %v", raw, err)
		}
	}
}

func TestParseVoskResult_Malformed(t *testing.T) {
	_, err := parseVoskResult("not json")
	if err == nil || errors.Is(err, ErrEmptyRecognition) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestNewVosk_MissingDirectory(t *testing.T) {
	_, err := NewVosk(filepath.Join(t.TempDir(), "missing-model"))
	if err == nil {
		t.Fatal("expected error for missing model directory")
	}

	file := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewVosk(file); err == nil {
		t.Fatal("expected error for non-directory model path")
	}
}

package audio

import (
	"context"
	"errors"
	"fmt"
)

// Container is the sniffed framing of an audio payload.
type Container string

const (
	ContainerWAV     Container = "wav"
	ContainerMP3     Container = "mp3"
	ContainerOgg     Container = "ogg"
	ContainerWebM    Container = "webm"
	ContainerFLAC    Container = "flac"
	ContainerUnknown Container = "unknown"
)

// Ext is the file extension used when the raw payload is kept on disk.
func (c Container) Ext() string {
	if c == ContainerUnknown {
		return "bin"
	}
	return string(c)
}

// Sniff identifies the container from its magic bytes.
func Sniff(b []byte) Container {
	switch {
	case IsWAV(b):
		return ContainerWAV
	case len(b) >= 4 && string(b[0:4]) == "OggS":
		return ContainerOgg
	case len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3:
		return ContainerWebM
	case len(b) >= 4 && string(b[0:4]) == "fLaC":
		return ContainerFLAC
	case len(b) >= 3 && string(b[0:3]) == "ID3":
		return ContainerMP3
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return ContainerMP3
	default:
		return ContainerUnknown
	}
}

// Decoder turns an encoded payload into a float waveform.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Waveform, error)
}

type DecoderFunc func(ctx context.Context, data []byte) (*Waveform, error)

func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*Waveform, error) {
	return f(ctx, data)
}

// ChainDecoder dispatches on the sniffed container. Containers without a
// native decoder, and native decoders reporting ErrUnsupportedFormat, go to
// Fallback when one is set.
type ChainDecoder struct {
	WAV      Decoder
	MP3      Decoder
	Ogg      Decoder
	Fallback Decoder
}

type DecoderOptions struct {
	// FFmpegPath enables the ffmpeg fallback; "" looks ffmpeg up on PATH and
	// "-" disables it.
	FFmpegPath string
	// FallbackRate is the rate ffmpeg resamples to.
	FallbackRate int
}

// NewDecoder builds the standard chain: go-audio for WAV, go-mp3 for MP3,
// libopusfile for Ogg/Opus (opus build tag) and ffmpeg for the rest.
func NewDecoder(opts DecoderOptions) *ChainDecoder {
	c := &ChainDecoder{
		WAV: DecoderFunc(func(_ context.Context, data []byte) (*Waveform, error) { return decodeWAV(data) }),
		MP3: DecoderFunc(func(_ context.Context, data []byte) (*Waveform, error) { return decodeMP3(data) }),
		Ogg: DecoderFunc(func(_ context.Context, data []byte) (*Waveform, error) { return decodeOggOpus(data) }),
	}
	if opts.FFmpegPath != "-" {
		c.Fallback = NewFFmpegDecoder(opts.FFmpegPath, opts.FallbackRate)
	}
	return c
}

func (c *ChainDecoder) Decode(ctx context.Context, data []byte) (*Waveform, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	kind := Sniff(data)
	var native Decoder
	switch kind {
	case ContainerWAV:
		native = c.WAV
	case ContainerMP3:
		native = c.MP3
	case ContainerOgg:
		native = c.Ogg
	}

	if native != nil {
		w, err := native.Decode(ctx, data)
		if err == nil {
			return checkDecoded(kind, w)
		}
		if !errors.Is(err, ErrUnsupportedFormat) || c.Fallback == nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecode, kind, err)
		}
	}

	if c.Fallback == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, kind, ErrUnsupportedFormat)
	}
	w, err := c.Fallback.Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, kind, err)
	}
	return checkDecoded(kind, w)
}

func checkDecoded(kind Container, w *Waveform) (*Waveform, error) {
	if w == nil || w.NumChannels() == 0 {
		return nil, fmt.Errorf("%w: %s: no audio channels", ErrDecode, kind)
	}
	if w.SampleRate < MinSampleRate || w.SampleRate > MaxSampleRate {
		return nil, fmt.Errorf("%w: %s: sample rate %d Hz outside %d-%d: %w",
			ErrDecode, kind, w.SampleRate, MinSampleRate, MaxSampleRate, ErrUnsupportedFormat)
	}
	return w, nil
}

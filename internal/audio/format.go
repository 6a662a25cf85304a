package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const (
	// DefaultTargetRate is the rate the bundled Vosk models are trained on.
	DefaultTargetRate = 16000

	// Decoded audio outside this window is rejected before resampling; the
	// resampler's output grows with target/source.
	MinSampleRate = 4000
	MaxSampleRate = 384000

	// WAVE_FORMAT_PCM; anything else is a compressed or float encoding.
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

var (
	ErrDecode            = errors.New("audio decode failed")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFormatMismatch    = errors.New("audio does not match canonical format")
)

// Format describes the container-level parameters of a WAV file.
type Format struct {
	Channels    int `json:"channels"`
	BitDepth    int `json:"bit_depth"`
	SampleRate  int `json:"sample_rate"`
	AudioFormat int `json:"audio_format"`
}

// Canonical is the format handed to the recognizer.
func Canonical(rate int) Format {
	return Format{Channels: 1, BitDepth: 16, SampleRate: rate, AudioFormat: formatPCM}
}

// SampleWidth is the number of bytes per sample.
func (f Format) SampleWidth() int { return f.BitDepth / 8 }

// Compression mirrors the comptype reported by classic WAV readers.
func (f Format) Compression() string {
	if f.AudioFormat == formatPCM {
		return "NONE"
	}
	return fmt.Sprintf("0x%04X", f.AudioFormat)
}

// Check reports ErrFormatMismatch with the observed values when f differs from want.
func (f Format) Check(want Format) error {
	if f.Channels != want.Channels ||
		f.SampleWidth() != want.SampleWidth() ||
		f.AudioFormat != want.AudioFormat ||
		f.SampleRate != want.SampleRate {
		return fmt.Errorf("%w: channels=%d, sample_width=%d, compression=%s, sample_rate=%d",
			ErrFormatMismatch, f.Channels, f.SampleWidth(), f.Compression(), f.SampleRate)
	}
	return nil
}

// IsWAV reports whether b starts with RIFF/WAVE framing.
func IsWAV(b []byte) bool {
	return len(b) > 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// Inspect reads the header of the WAV file at path.
func Inspect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return Format{}, fmt.Errorf("%w: invalid wav header: %v", ErrDecode, err)
		}
		return Format{}, fmt.Errorf("%w: invalid wav header", ErrDecode)
	}

	return Format{
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		SampleRate:  int(d.SampleRate),
		AudioFormat: int(d.WavAudioFormat),
	}, nil
}

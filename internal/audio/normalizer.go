package audio

import (
	"context"
	"fmt"
	"os"
)

// Normalizer converts arbitrary audio into Canonical(TargetRate).
type Normalizer struct {
	TargetRate int
	Decoder    Decoder
}

func NewNormalizer(targetRate int, dec Decoder) *Normalizer {
	if targetRate <= 0 {
		targetRate = DefaultTargetRate
	}
	if dec == nil {
		dec = NewDecoder(DecoderOptions{FallbackRate: targetRate})
	}
	return &Normalizer{TargetRate: targetRate, Decoder: dec}
}

// Target is the format every successful NormalizeFile produces.
func (n *Normalizer) Target() Format { return Canonical(n.TargetRate) }

// NormalizeFile decodes inPath, downmixes, resamples, quantizes and writes
// the result to outPath (which may equal inPath), then re-opens the output
// and fails unless it matches the target format.
func (n *Normalizer) NormalizeFile(ctx context.Context, inPath, outPath string) (Format, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return Format{}, fmt.Errorf("normalize audio: read: %w", err)
	}

	w, err := n.Decoder.Decode(ctx, data)
	if err != nil {
		return Format{}, fmt.Errorf("normalize audio: decode: %w", err)
	}

	samples := Quantize(Resample(Downmix(w), n.TargetRate).Channels[0])

	if err := WriteWAV(outPath, samples, n.TargetRate, 1); err != nil {
		return Format{}, fmt.Errorf("normalize audio: encode: %w", err)
	}

	got, err := Inspect(outPath)
	if err != nil {
		return Format{}, fmt.Errorf("normalize audio: validate: %w", err)
	}
	if err := got.Check(n.Target()); err != nil {
		return got, fmt.Errorf("normalize audio: validate: %w", err)
	}
	return got, nil
}

// Transcode decodes a non-WAV payload and writes it to outPath as 16-bit PCM
// WAV at its native rate and channel count. Normalization runs afterwards.
func Transcode(ctx context.Context, dec Decoder, data []byte, outPath string) (Format, error) {
	w, err := dec.Decode(ctx, data)
	if err != nil {
		return Format{}, fmt.Errorf("transcode audio: %w", err)
	}
	if err := WriteWAV(outPath, Interleave(w), w.SampleRate, w.NumChannels()); err != nil {
		return Format{}, fmt.Errorf("transcode audio: encode: %w", err)
	}
	return Format{
		Channels:    w.NumChannels(),
		BitDepth:    16,
		SampleRate:  w.SampleRate,
		AudioFormat: formatPCM,
	}, nil
}

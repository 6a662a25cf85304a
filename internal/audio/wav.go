package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWAV reads PCM (8/16/24/32-bit), extensible PCM and 32-bit float WAV data.
func decodeWAV(data []byte) (*Waveform, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}

	format := int(d.WavAudioFormat)
	switch format {
	case formatPCM, formatIEEEFloat, formatExtensible:
	default:
		return nil, fmt.Errorf("%w: wav encoding 0x%04X", ErrUnsupportedFormat, format)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("no audio samples")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	bitDepth := int(d.BitDepth)
	toFloat, err := sampleConverter(format, bitDepth)
	if err != nil {
		return nil, err
	}

	frames := len(buf.Data) / channels
	w := &Waveform{SampleRate: buf.Format.SampleRate, Channels: make([][]float64, channels)}
	for ch := range w.Channels {
		w.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			w.Channels[ch][i] = toFloat(buf.Data[i*channels+ch])
		}
	}
	return w, nil
}

func sampleConverter(format, bitDepth int) (func(int) float64, error) {
	if format == formatIEEEFloat {
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float wav", ErrUnsupportedFormat, bitDepth)
		}
		return func(v int) float64 {
			return float64(math.Float32frombits(uint32(v)))
		}, nil
	}

	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned with a 128 midpoint.
		return func(v int) float64 { return float64(v-128) / 128 }, nil
	case 16, 24, 32:
		scale := float64(int64(1) << (bitDepth - 1))
		return func(v int) float64 { return float64(v) / scale }, nil
	default:
		return nil, fmt.Errorf("%w: %d-bit pcm", ErrUnsupportedFormat, bitDepth)
	}
}

// WriteWAV writes interleaved 16-bit samples as an uncompressed PCM WAV file,
// replacing anything at path.
func WriteWAV(path string, samples []int16, rate, channels int) error {
	if rate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, formatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  rate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i := range samples {
		buf.Data[i] = int(samples[i])
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadPCM16 returns the raw little-endian sample bytes of a 16-bit WAV file,
// the layout recognizers consume directly.
func ReadPCM16(path string) ([]byte, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Format{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, Format{}, fmt.Errorf("%w: invalid wav file %s", ErrDecode, path)
	}
	format := Format{
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		SampleRate:  int(d.SampleRate),
		AudioFormat: int(d.WavAudioFormat),
	}
	if format.BitDepth != 16 || format.AudioFormat != formatPCM {
		return nil, format, fmt.Errorf("%w: expected 16-bit pcm, got %d-bit %s",
			ErrFormatMismatch, format.BitDepth, format.Compression())
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, format, fmt.Errorf("%w: read pcm: %v", ErrDecode, err)
	}

	out := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out, format, nil
}

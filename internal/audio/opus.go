//go:build opus

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hraban/opus"
)

// opus frames top out at 120ms; 48kHz * 0.12s * 2ch
const opusReadBuffer = 11520

func decodeOggOpus(data []byte) (*Waveform, error) {
	channels := opusHeadChannels(data)
	if channels == 0 {
		return nil, fmt.Errorf("%w: ogg stream without OpusHead", ErrUnsupportedFormat)
	}

	s, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open ogg/opus: %w", err)
	}
	defer s.Close()

	var samples []int16
	pcm := make([]int16, opusReadBuffer)
	for {
		n, err := s.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ogg/opus: %w", err)
		}
		samples = append(samples, pcm[:n*channels]...)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples")
	}
	return FromInterleavedPCM16(samples, channels, opusOutputRate), nil
}

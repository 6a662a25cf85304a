package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder pipes the payload through ffmpeg and reads back raw mono
// s16le at Rate. It covers the containers browsers record (WebM/Opus, MP4/AAC)
// that have no native decoder here.
type FFmpegDecoder struct {
	Path string
	Rate int
}

func NewFFmpegDecoder(path string, rate int) *FFmpegDecoder {
	if rate <= 0 {
		rate = DefaultTargetRate
	}
	return &FFmpegDecoder{Path: path, Rate: rate}
}

func (d *FFmpegDecoder) lookPath() (string, error) {
	if d.Path != "" {
		return d.Path, nil
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not available: %v", ErrUnsupportedFormat, err)
	}
	return p, nil
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*Waveform, error) {
	bin, err := d.lookPath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(d.Rate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg: %s", msg)
	}

	raw := stdout.Bytes()
	if len(raw) < 2 {
		return nil, fmt.Errorf("ffmpeg: no audio samples")
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return FromInterleavedPCM16(samples, 1, d.Rate), nil
}

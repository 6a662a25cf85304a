package audio

import "math"

const (
	// Band-limited interpolation parameters; these match the usual
	// sinc_interp_hann defaults (6 zero crossings, 0.99 rolloff).
	resampleZeroCrossings = 6
	resampleRolloff       = 0.99

	pcm16Scale = 32768.0
)

// Waveform holds planar float samples, nominally in [-1, 1].
type Waveform struct {
	SampleRate int
	Channels   [][]float64
}

func (w *Waveform) NumChannels() int { return len(w.Channels) }

// Frames is the number of samples per channel.
func (w *Waveform) Frames() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// FromInterleavedPCM16 splits interleaved int16 samples into a planar waveform.
func FromInterleavedPCM16(samples []int16, channels, rate int) *Waveform {
	if channels <= 0 {
		channels = 1
	}
	frames := len(samples) / channels
	out := &Waveform{SampleRate: rate, Channels: make([][]float64, channels)}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out.Channels[ch][i] = float64(samples[i*channels+ch]) / pcm16Scale
		}
	}
	return out
}

// Downmix averages all channels into one. Mono input is returned as is.
func Downmix(w *Waveform) *Waveform {
	if w.NumChannels() <= 1 {
		return w
	}
	frames := w.Frames()
	mono := make([]float64, frames)
	n := float64(w.NumChannels())
	for i := 0; i < frames; i++ {
		var sum float64
		for _, ch := range w.Channels {
			sum += ch[i]
		}
		mono[i] = sum / n
	}
	return &Waveform{SampleRate: w.SampleRate, Channels: [][]float64{mono}}
}

// Resample converts every channel to the target rate. A waveform already at
// target is returned unchanged.
func Resample(w *Waveform, target int) *Waveform {
	if w.SampleRate == target || target <= 0 || w.SampleRate <= 0 {
		return w
	}
	out := &Waveform{SampleRate: target, Channels: make([][]float64, len(w.Channels))}
	for i, ch := range w.Channels {
		out.Channels[i] = resampleChannel(ch, w.SampleRate, target)
	}
	return out
}

// resampleChannel is a direct-form windowed-sinc interpolator. Positions are
// measured in input samples; the low-pass cutoff follows the lower of the two
// Nyquist frequencies so downsampling does not alias.
func resampleChannel(in []float64, from, to int) []float64 {
	ratio := float64(to) / float64(from)
	outLen := (len(in)*to + from - 1) / from
	out := make([]float64, outLen)
	if len(in) == 0 {
		return out
	}

	cutoff := resampleRolloff * math.Min(1, ratio)
	width := float64(resampleZeroCrossings) / cutoff

	for j := range out {
		t := float64(j) * float64(from) / float64(to)
		lo := int(math.Ceil(t - width))
		hi := int(math.Floor(t + width))
		if lo < 0 {
			lo = 0
		}
		if hi > len(in)-1 {
			hi = len(in) - 1
		}
		var acc float64
		for i := lo; i <= hi; i++ {
			d := t - float64(i)
			acc += in[i] * cutoff * sinc(cutoff*d) * hann(d/width)
		}
		out[j] = acc
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hann is the raised-cosine window over [-1, 1].
func hann(u float64) float64 {
	if u <= -1 || u >= 1 {
		return 0
	}
	c := math.Cos(math.Pi * u / 2)
	return c * c
}

// Quantize clamps to [-1, 1] and maps onto the signed 16-bit range,
// truncating toward zero. Values decoded from 16-bit PCM survive the
// round trip exactly.
func Quantize(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := v * pcm16Scale
		if s > math.MaxInt16 {
			s = math.MaxInt16
		}
		out[i] = int16(s)
	}
	return out
}

// Interleave quantizes every channel and interleaves the result.
func Interleave(w *Waveform) []int16 {
	channels := w.NumChannels()
	frames := w.Frames()
	out := make([]int16, 0, channels*frames)
	q := make([][]int16, channels)
	for ch := range w.Channels {
		q[ch] = Quantize(w.Channels[ch])
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out = append(out, q[ch][i])
		}
	}
	return out
}

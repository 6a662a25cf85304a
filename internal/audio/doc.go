// Package audio turns browser-recorded audio into the canonical waveform the
// speech recognizer accepts: mono, 16-bit signed PCM, fixed sample rate, in an
// uncompressed WAV container. Decoding goes through a chain of container
// decoders (WAV, MP3, Ogg/Opus, ffmpeg fallback); normalization then downmixes,
// resamples, quantizes, writes, and re-validates the result.
package audio

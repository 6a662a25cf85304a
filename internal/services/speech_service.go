package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/internal/audio"
	"github.com/yoockh/whalechat/internal/metrics"
	"github.com/yoockh/whalechat/internal/models"
	"github.com/yoockh/whalechat/internal/providers/stt"
	mongorepo "github.com/yoockh/whalechat/internal/repositories/mongo"
	"github.com/yoockh/whalechat/internal/storage"
	"github.com/yoockh/whalechat/internal/utils"
)

const (
	tempAudioPrefix = "temp_audio_"
	tempRawPrefix   = "temp_"

	speechLogTimeout = 10 * time.Second
)

// Recognizer is the process-wide speech recognizer handle.
type Recognizer interface {
	Available() bool
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*stt.Result, error)
}

type SpeechRequest struct {
	SessionID string
	Audio     string // base64, optionally a data URL
}

// SpeechResult is returned on success, and also alongside an error once the
// payload was written to disk so callers can surface SavedFile.
type SpeechResult struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Words      []stt.Word `json:"words,omitempty"`
	SavedFile  string     `json:"saved_file"`
	MimeType   string     `json:"-"`
}

type SpeechService interface {
	Available() bool
	Transcribe(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
	Logs(ctx context.Context, sessionID string, limit int64) ([]models.SpeechLog, error)
}

type SpeechDeps struct {
	Recognizer Recognizer
	Normalizer *audio.Normalizer
	TempDir    string

	Logs     mongorepo.SpeechLogRepository // optional
	Uploader storage.Uploader              // optional
	Metrics  *metrics.Metrics              // optional
	Logger   *logrus.Logger
}

type speechService struct {
	rec      Recognizer
	norm     *audio.Normalizer
	tempDir  string
	logs     mongorepo.SpeechLogRepository
	uploader storage.Uploader
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

func NewSpeechService(d SpeechDeps) SpeechService {
	if d.Normalizer == nil {
		d.Normalizer = audio.NewNormalizer(audio.DefaultTargetRate, nil)
	}
	if d.TempDir == "" {
		d.TempDir = "tempvoice"
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &speechService{
		rec:      d.Recognizer,
		norm:     d.Normalizer,
		tempDir:  d.TempDir,
		logs:     d.Logs,
		uploader: d.Uploader,
		metrics:  d.Metrics,
		log:      d.Logger,
	}
}

func (s *speechService) Available() bool {
	return s.rec != nil && s.rec.Available()
}

func (s *speechService) Transcribe(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	start := time.Now()
	res, err := s.transcribe(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = string(utils.CodeOf(err))
	}
	s.metrics.RecordSpeech(outcome)

	if res != nil {
		s.record(ctx, req.SessionID, res, err, time.Since(start))
	}
	return res, err
}

func (s *speechService) transcribe(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	const op = "SpeechService.Transcribe"

	if !s.Available() {
		return nil, utils.E(utils.CodeUnavailable, op, "speech recognition model is not loaded", stt.ErrModelUnavailable)
	}
	if strings.TrimSpace(req.Audio) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no audio data received", nil)
	}

	mimeType, data, err := DecodeAudioPayload(req.Audio)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to decode audio data", err)
	}
	s.log.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"mime":       mimeType,
		"bytes":      len(data),
	}).Debug("speech payload received")

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create temp directory", err)
	}

	id := uuid.NewString()
	res := &SpeechResult{
		SavedFile: filepath.Join(s.tempDir, tempAudioPrefix+id+".wav"),
		MimeType:  mimeType,
	}

	if audio.IsWAV(data) {
		if err := os.WriteFile(res.SavedFile, data, 0o644); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to save audio", err)
		}
	} else {
		rawPath := filepath.Join(s.tempDir, tempRawPrefix+id+"."+audio.Sniff(data).Ext())
		if err := os.WriteFile(rawPath, data, 0o644); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to save audio", err)
		}
		if _, err := audio.Transcode(ctx, s.norm.Decoder, data, res.SavedFile); err != nil {
			res.SavedFile = rawPath
			return res, utils.E(utils.CodeInvalidArgument, op, "unsupported or corrupt audio", err)
		}
		_ = os.Remove(rawPath)
	}

	t := time.Now()
	if _, err := s.norm.NormalizeFile(ctx, res.SavedFile, res.SavedFile); err != nil {
		if errors.Is(err, audio.ErrFormatMismatch) {
			return res, utils.E(utils.CodeInvalidArgument, op, "converted audio does not meet recognizer requirements", err)
		}
		return res, utils.E(utils.CodeInvalidArgument, op, "unsupported or corrupt audio", err)
	}
	s.metrics.ObserveNormalize(time.Since(t))

	pcm, f, err := audio.ReadPCM16(res.SavedFile)
	if err != nil {
		return res, utils.E(utils.CodeInvalidArgument, op, "incorrect audio format", err)
	}

	t = time.Now()
	out, err := s.rec.Transcribe(ctx, pcm, f.SampleRate)
	s.metrics.ObserveRecognition(time.Since(t))
	switch {
	case errors.Is(err, stt.ErrEmptyRecognition):
		return res, utils.E(utils.CodeUnprocessable, op, "no speech content recognized", err)
	case errors.Is(err, stt.ErrModelUnavailable):
		return res, utils.E(utils.CodeUnavailable, op, "speech recognition model is not loaded", err)
	case err != nil:
		return res, utils.E(utils.CodeInternal, op, "speech recognition failed", err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return res, utils.E(utils.CodeUnprocessable, op, "no speech content recognized", stt.ErrEmptyRecognition)
	}
	res.Text = text
	res.Confidence = out.Confidence
	res.Words = out.Words
	return res, nil
}

func (s *speechService) Logs(ctx context.Context, sessionID string, limit int64) ([]models.SpeechLog, error) {
	const op = "SpeechService.Logs"

	if s.logs == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech logs are disabled", nil)
	}
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.logs.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list speech logs", err)
	}
	return out, nil
}

// record archives failed audio and writes a speech log. Both are best effort.
func (s *speechService) record(ctx context.Context, sessionID string, res *SpeechResult, failure error, took time.Duration) {
	if s.logs == nil && (failure == nil || s.uploader == nil) {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), speechLogTimeout)
	defer cancel()

	entry := &models.SpeechLog{
		SessionID:        sessionID,
		Status:           models.SpeechStatusDone,
		Text:             res.Text,
		Confidence:       res.Confidence,
		MimeType:         res.MimeType,
		SavedFile:        res.SavedFile,
		ProcessingTimeMS: took.Milliseconds(),
	}
	if failure != nil {
		entry.Status = models.SpeechStatusFailed
		entry.Error = failure.Error()
		if uri, err := s.upload(rctx, res.SavedFile); err != nil {
			s.log.WithError(err).WithField("saved_file", res.SavedFile).Warn("upload failed audio")
		} else if uri != "" {
			entry.AudioURI = &uri
		}
	}

	if s.logs == nil {
		return
	}
	if err := s.logs.Insert(rctx, entry); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("write speech log failed")
	}
}

func (s *speechService) upload(ctx context.Context, path string) (string, error) {
	if s.uploader == nil || path == "" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return s.uploader.Upload(ctx, filepath.Base(path), ct, f)
}

// DecodeAudioPayload accepts raw base64 or a data URL ("data:<mime>;base64,<payload>").
// Only the first comma separates header from payload.
func DecodeAudioPayload(s string) (mimeType string, data []byte, err error) {
	payload := strings.TrimSpace(s)
	if header, rest, ok := strings.Cut(payload, ","); ok {
		payload = rest
		header = strings.TrimPrefix(header, "data:")
		mimeType, _, _ = strings.Cut(header, ";")
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some recorders drop padding
		if raw, rerr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rerr == nil {
			data, err = raw, nil
		}
	}
	if err != nil {
		return mimeType, nil, fmt.Errorf("base64: %w", err)
	}
	if len(data) == 0 {
		return mimeType, nil, errors.New("empty audio payload")
	}
	return mimeType, data, nil
}

package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

type GoogleSpeech struct {
	c *speech.Client

	Language string
}

func NewGoogleSpeech(ctx context.Context, language string, opts ...option.ClientOption) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	// language example: "en-US", "zh-CN"
	if language == "" {
		language = "en-US"
	}
	return &GoogleSpeech{c: c, Language: language}, nil
}

func (g *GoogleSpeech) Name() string { return "google" }

func (g *GoogleSpeech) Close() error { return g.c.Close() }

func (g *GoogleSpeech) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*Result, error) {
	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			LanguageCode:               g.Language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return nil, err
	}

	return assembleResult(resp)
}

// assembleResult joins the top alternative of every result in order. Each
// result covers a consecutive stretch of the audio.
func assembleResult(resp *speechpb.RecognizeResponse) (*Result, error) {
	var (
		parts []string
		conf  float64
		out   = &Result{}
	)
	for _, r := range resp.GetResults() {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		conf += float64(alt.Confidence)
		for _, w := range alt.Words {
			out.Words = append(out.Words, Word{
				Word:       w.Word,
				Start:      w.StartTime.AsDuration().Seconds(),
				End:        w.EndTime.AsDuration().Seconds(),
				Confidence: float64(w.Confidence),
			})
		}
	}
	if len(parts) == 0 {
		return nil, ErrEmptyRecognition
	}
	out.Text = strings.Join(parts, " ")
	out.Confidence = conf / float64(len(parts))
	return out, nil
}

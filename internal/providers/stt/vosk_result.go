package stt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// voskResult is the JSON document returned by FinalResult with words enabled.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Word  string  `json:"word"`
	} `json:"result"`
}

func parseVoskResult(raw string) (*Result, error) {
	var vr voskResult
	if err := json.Unmarshal([]byte(raw), &vr); err != nil {
		return nil, fmt.Errorf("parse vosk result: %w", err)
	}

	out := &Result{Text: strings.TrimSpace(vr.Text)}
	for _, w := range vr.Result {
		out.Words = append(out.Words, Word{Word: w.Word, Start: w.Start, End: w.End, Confidence: w.Conf})
	}
	out.Confidence = meanConfidence(out.Words)

	if out.Text == "" {
		return nil, ErrEmptyRecognition
	}
	return out, nil
}

func checkModelDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("vosk model %s: %w", path, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("vosk model %s: not a directory", path)
	}
	return nil
}

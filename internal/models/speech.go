package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SpeechStatusDone   = "done"
	SpeechStatusFailed = "failed"
)

type SpeechLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`

	Status     string  `bson:"status" json:"status"` // done|failed
	Text       string  `bson:"text,omitempty" json:"text,omitempty"`
	Confidence float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
	Error      string  `bson:"error,omitempty" json:"error,omitempty"`

	MimeType  string  `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	SavedFile string  `bson:"saved_file,omitempty" json:"saved_file,omitempty"`
	AudioURI  *string `bson:"audio_uri,omitempty" json:"audio_uri,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms" json:"processing_time_ms"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

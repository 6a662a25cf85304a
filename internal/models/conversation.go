package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationLog is one committed chat turn. Session ids are free-form text
// ("default" is valid), so the columns are not uuid typed.
type ConversationLog struct {
	ID        string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;type:text;index" json:"user_id,omitempty"`
	SessionID string         `gorm:"column:session_id;type:text;index" json:"session_id"`
	Role      Role           `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Content   string         `gorm:"column:content;type:text" json:"content"`
	Timestamp time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (ConversationLog) TableName() string { return "conversation_logs" }

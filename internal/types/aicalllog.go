package types

import (
	"time"

	"github.com/google/uuid"
)

// AICallLog records every round trip to the completion collaborator.
type AICallLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID     *uuid.UUID `gorm:"type:uuid;index" json:"store_id,omitempty"`
	CallType    string     `gorm:"column:call_type;not null" json:"call_type"`
	Model       string     `gorm:"column:model;not null" json:"model"`
	PromptChars int        `gorm:"column:prompt_chars;not null;default:0" json:"prompt_chars"`
	OutputChars int        `gorm:"column:output_chars;not null;default:0" json:"output_chars"`
	LatencyMS   int64      `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
	Success     bool       `gorm:"column:success;not null" json:"success"`
	Error       string     `gorm:"column:error" json:"error"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (AICallLog) TableName() string {
	return "ai_call_log"
}

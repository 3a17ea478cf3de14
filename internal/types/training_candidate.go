package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TrainingOutcomePending = "pending"
	TrainingOutcomeSuccess = "success"
	TrainingOutcomeFailure = "failure"
)

// TrainingCandidate is a write-mostly log of attempted assistant actions,
// labeled for later fine-tuning. Created at classification time with a pending
// outcome, updated once the action resolves.
type TrainingCandidate struct {
	ID                uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID           uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	UserPrompt        string    `gorm:"column:user_prompt;not null" json:"user_prompt"`
	AIResponse        string    `gorm:"column:ai_response" json:"ai_response"`
	DetectedIntent    string    `gorm:"column:detected_intent;index" json:"detected_intent"`
	DetectedEntity    string    `gorm:"column:detected_entity" json:"detected_entity"`
	DetectedOperation string    `gorm:"column:detected_operation" json:"detected_operation"`
	ActionTaken       string    `gorm:"column:action_taken" json:"action_taken"`
	ConfidenceScore   float64   `gorm:"column:confidence_score;not null;default:0" json:"confidence_score"`
	Outcome           string    `gorm:"column:outcome;not null;default:'pending'" json:"outcome"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrainingCandidate) TableName() string {
	return "training_candidate"
}

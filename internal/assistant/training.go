package assistant

import (
	"context"

	"github.com/google/uuid"
)

// TrainingRecord captures one classifier round-trip for later review.
type TrainingRecord struct {
	StoreID     uuid.UUID
	SessionID   string
	UserMessage string
	Intents     []Intent
	PageType    string
}

// Recorder persists training candidates. Record returns the candidate id so
// the engine can mark the outcome after execution. A nil Recorder disables
// feedback collection without changing the chat behavior.
type Recorder interface {
	Record(ctx context.Context, rec TrainingRecord) (uuid.UUID, error)
	Outcome(ctx context.Context, id uuid.UUID, success bool, actionTaken string) error
}

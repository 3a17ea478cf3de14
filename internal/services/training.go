package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/assistant"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// TrainingService implements the engine's Recorder against the training
// candidate table.
type TrainingService struct {
	candidates repos.TrainingCandidateRepo
	log        *logger.Logger
}

func NewTrainingService(candidates repos.TrainingCandidateRepo, baseLog *logger.Logger) *TrainingService {
	return &TrainingService{
		candidates: candidates,
		log:        baseLog.With("service", "TrainingService"),
	}
}

func (s *TrainingService) Record(ctx context.Context, rec assistant.TrainingRecord) (uuid.UUID, error) {
	candidate := &types.TrainingCandidate{
		StoreID:    rec.StoreID,
		UserPrompt: rec.UserMessage,
		Outcome:    types.TrainingOutcomePending,
	}
	if len(rec.Intents) > 0 {
		first := rec.Intents[0]
		candidate.DetectedIntent = first.Tool
		candidate.ConfidenceScore = first.Confidence
		candidate.DetectedEntity = stringArg(first.Args, "element", "product", "name")
		candidate.DetectedOperation = stringArg(first.Args, "property", "position", "category")
	}
	if raw, err := json.Marshal(rec.Intents); err == nil {
		candidate.AIResponse = string(raw)
	}
	created, err := s.candidates.Create(ctx, nil, candidate)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (s *TrainingService) Outcome(ctx context.Context, id uuid.UUID, success bool, actionTaken string) error {
	outcome := types.TrainingOutcomeSuccess
	if !success {
		outcome = types.TrainingOutcomeFailure
	}
	return s.candidates.UpdateOutcome(ctx, nil, id, outcome, actionTaken, "")
}

func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var _ assistant.Recorder = (*TrainingService)(nil)

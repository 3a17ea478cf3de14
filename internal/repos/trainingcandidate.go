package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

type TrainingCandidateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, candidate *types.TrainingCandidate) (*types.TrainingCandidate, error)
	UpdateOutcome(ctx context.Context, tx *gorm.DB, id uuid.UUID, outcome string, actionTaken string, aiResponse string) error
}

type trainingCandidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrainingCandidateRepo(db *gorm.DB, baseLog *logger.Logger) TrainingCandidateRepo {
	return &trainingCandidateRepo{db: db, log: baseLog.With("repo", "TrainingCandidateRepo")}
}

func (r *trainingCandidateRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *trainingCandidateRepo) Create(ctx context.Context, tx *gorm.DB, candidate *types.TrainingCandidate) (*types.TrainingCandidate, error) {
	if err := r.conn(tx).WithContext(ctx).Create(candidate).Error; err != nil {
		return nil, err
	}
	return candidate, nil
}

func (r *trainingCandidateRepo) UpdateOutcome(ctx context.Context, tx *gorm.DB, id uuid.UUID, outcome string, actionTaken string, aiResponse string) error {
	updates := map[string]any{"outcome": outcome}
	if actionTaken != "" {
		updates["action_taken"] = actionTaken
	}
	if aiResponse != "" {
		updates["ai_response"] = aiResponse
	}
	return r.conn(tx).WithContext(ctx).
		Model(&types.TrainingCandidate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

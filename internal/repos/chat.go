package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

type ChatRepo interface {
	CreateThread(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error)
	GetThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) (*types.ChatThread, error)
	AppendMessage(ctx context.Context, tx *gorm.DB, msg *types.ChatMessage) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, tx *gorm.DB, threadID uuid.UUID, limit int) ([]*types.ChatMessage, error)
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chatRepo) CreateThread(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error) {
	if err := r.conn(tx).WithContext(ctx).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func (r *chatRepo) GetThread(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) (*types.ChatThread, error) {
	var thread types.ChatThread
	err := r.conn(tx).WithContext(ctx).Where("id = ?", threadID).First(&thread).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *chatRepo) AppendMessage(ctx context.Context, tx *gorm.DB, msg *types.ChatMessage) (*types.ChatMessage, error) {
	conn := r.conn(tx)
	if msg.Seq == 0 {
		var max *int64
		if err := conn.WithContext(ctx).
			Model(&types.ChatMessage{}).
			Where("thread_id = ?", msg.ThreadID).
			Select("MAX(seq)").
			Scan(&max).Error; err != nil {
			return nil, err
		}
		if max != nil {
			msg.Seq = *max + 1
		} else {
			msg.Seq = 1
		}
	}
	if err := conn.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the thread's messages oldest first. A positive limit
// keeps only the most recent limit messages; limit <= 0 returns everything.
func (r *chatRepo) ListMessages(ctx context.Context, tx *gorm.DB, threadID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	q := r.conn(tx).WithContext(ctx).Where("thread_id = ?", threadID)
	var msgs []*types.ChatMessage
	if limit <= 0 {
		if err := q.Order("seq ASC").Find(&msgs).Error; err != nil {
			return nil, err
		}
		return msgs, nil
	}
	if err := q.Order("seq DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

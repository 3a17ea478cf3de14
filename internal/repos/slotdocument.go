package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

type SlotDocumentRepo interface {
	GetDraft(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error)
	GetActivePublished(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error)
	Create(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument) (*types.SlotDocument, error)
	// UpdateGuarded writes the document back only if updated_at still matches
	// the value read. Returns gorm.ErrRecordNotFound when the guard fails.
	UpdateGuarded(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument, readAt time.Time) error
	Deactivate(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error
	MaxVersionNumber(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (int, error)
}

type slotDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSlotDocumentRepo(db *gorm.DB, baseLog *logger.Logger) SlotDocumentRepo {
	return &slotDocumentRepo{db: db, log: baseLog.With("repo", "SlotDocumentRepo")}
}

func (r *slotDocumentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *slotDocumentRepo) GetDraft(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	var doc types.SlotDocument
	err := r.conn(tx).WithContext(ctx).
		Where("store_id = ? AND page_type = ? AND status = ?", storeID, pageType, types.SlotStatusDraft).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *slotDocumentRepo) GetActivePublished(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	var doc types.SlotDocument
	err := r.conn(tx).WithContext(ctx).
		Where("store_id = ? AND page_type = ? AND status = ? AND is_active = ?", storeID, pageType, types.SlotStatusPublished, true).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *slotDocumentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument) (*types.SlotDocument, error) {
	if err := r.conn(tx).WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *slotDocumentRepo) UpdateGuarded(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument, readAt time.Time) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.SlotDocument{}).
		Where("id = ? AND updated_at = ?", doc.ID, readAt).
		Updates(map[string]any{
			"configuration":           doc.Configuration,
			"has_unpublished_changes": doc.HasUnpublishedChanges,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *slotDocumentRepo) Deactivate(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.SlotDocument{}).
		Where("id = ?", docID).
		Update("is_active", false).Error
}

func (r *slotDocumentRepo) Delete(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("id = ?", docID).
		Delete(&types.SlotDocument{}).Error
}

func (r *slotDocumentRepo) MaxVersionNumber(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (int, error) {
	var max *int
	err := r.conn(tx).WithContext(ctx).
		Model(&types.SlotDocument{}).
		Where("store_id = ? AND page_type = ?", storeID, pageType).
		Select("MAX(version_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// LayoutService owns the versioned slot documents: lazy draft creation,
// guarded mutation, and publishing.
type LayoutService struct {
	db   *gorm.DB
	docs repos.SlotDocumentRepo
	log  *logger.Logger
}

func NewLayoutService(db *gorm.DB, docs repos.SlotDocumentRepo, baseLog *logger.Logger) *LayoutService {
	return &LayoutService{
		db:   db,
		docs: docs,
		log:  baseLog.With("service", "LayoutService"),
	}
}

// GetOrCreateDraft returns the store's draft for pageType, creating it on
// first access: cloned from the active published version when one exists,
// seeded from the page default otherwise.
func (s *LayoutService) GetOrCreateDraft(ctx context.Context, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	draft, err := s.docs.GetDraft(ctx, nil, storeID, pageType)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	doc := &types.SlotDocument{
		StoreID:  storeID,
		PageType: pageType,
		Status:   types.SlotStatusDraft,
	}
	published, pubErr := s.docs.GetActivePublished(ctx, nil, storeID, pageType)
	switch {
	case pubErr == nil:
		doc.Configuration = published.Configuration
		doc.ParentVersionID = &published.ID
		doc.VersionNumber = published.VersionNumber
	case errors.Is(pubErr, gorm.ErrRecordNotFound):
		if err := doc.SetConfig(defaultSlotConfig(pageType)); err != nil {
			return nil, err
		}
	default:
		return nil, pubErr
	}

	created, err := s.docs.Create(ctx, nil, doc)
	if err != nil {
		// Lost a creation race; the other writer's draft is the truth.
		if existing, getErr := s.docs.GetDraft(ctx, nil, storeID, pageType); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	s.log.Info("created draft document", "page_type", pageType, "store_id", storeID.String())
	return created, nil
}

// GetPublished returns the active published document for pageType.
func (s *LayoutService) GetPublished(ctx context.Context, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	return s.docs.GetActivePublished(ctx, nil, storeID, pageType)
}

// MutateDraft applies fn to the draft configuration under an optimistic guard
// on updated_at. A lost race is retried once against the fresh document; a
// second loss surfaces as PersistenceConflict.
func (s *LayoutService) MutateDraft(ctx context.Context, storeID uuid.UUID, pageType string, fn func(cfg *types.SlotConfig) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		draft, err := s.GetOrCreateDraft(ctx, storeID, pageType)
		if err != nil {
			return err
		}
		cfg, err := draft.Config()
		if err != nil {
			return fmt.Errorf("decode slot configuration: %w", err)
		}
		if err := fn(cfg); err != nil {
			return err
		}
		readAt := draft.UpdatedAt
		if err := draft.SetConfig(cfg); err != nil {
			return err
		}
		draft.HasUnpublishedChanges = true
		err = s.docs.UpdateGuarded(ctx, nil, draft, readAt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		s.log.Warn("draft write lost optimistic guard", "page_type", pageType, "attempt", attempt+1)
	}
	return apierr.PersistenceConflict
}

// Publish snapshots the draft as the next published version: the previous
// active version is deactivated, the draft stays in place with its dirty flag
// cleared.
func (s *LayoutService) Publish(ctx context.Context, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	draft, err := s.docs.GetDraft(ctx, nil, storeID, pageType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no draft to publish for page %q", pageType)
	}
	if err != nil {
		return nil, err
	}

	var published *types.SlotDocument
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current, err := s.docs.GetActivePublished(ctx, tx, storeID, pageType); err == nil {
			if err := s.docs.Deactivate(ctx, tx, current.ID); err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		maxVersion, err := s.docs.MaxVersionNumber(ctx, tx, storeID, pageType)
		if err != nil {
			return err
		}
		doc := &types.SlotDocument{
			StoreID:         storeID,
			PageType:        pageType,
			Status:          types.SlotStatusPublished,
			IsActive:        true,
			VersionNumber:   maxVersion + 1,
			ParentVersionID: draft.ParentVersionID,
			Configuration:   draft.Configuration,
		}
		published, err = s.docs.Create(ctx, tx, doc)
		if err != nil {
			return err
		}

		readAt := draft.UpdatedAt
		draft.HasUnpublishedChanges = false
		draft.ParentVersionID = &published.ID
		draft.VersionNumber = published.VersionNumber
		if err := s.docs.UpdateGuarded(ctx, tx, draft, readAt); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.PersistenceConflict
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	s.log.Info("published layout", "page_type", pageType, "version", published.VersionNumber)
	return published, nil
}

// AvailableSlots lists the draft's slot ids, sorted for stable prompts.
func (s *LayoutService) AvailableSlots(ctx context.Context, storeID uuid.UUID, pageType string) ([]string, error) {
	draft, err := s.GetOrCreateDraft(ctx, storeID, pageType)
	if err != nil {
		return nil, err
	}
	cfg, err := draft.Config()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(cfg.Slots))
	for id := range cfg.Slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func strptr(s string) *string { return &s }

// defaultSlotConfig seeds a first draft when a store has never touched the
// page. Rows are 1-based per parent, col mirrors the parent's column.
func defaultSlotConfig(pageType string) *types.SlotConfig {
	switch pageType {
	case "product":
		return &types.SlotConfig{Slots: map[string]*types.SlotNode{
			"product_image_container": {Position: types.Position{Row: 1, Col: 1}},
			"product_image":           {ParentID: strptr("product_image_container"), Position: types.Position{Row: 1, Col: 1}},
			"product_info_container":  {Position: types.Position{Row: 1, Col: 2}},
			"product_title":           {ParentID: strptr("product_info_container"), Position: types.Position{Row: 1, Col: 2}},
			"product_price_container": {ParentID: strptr("product_info_container"), Position: types.Position{Row: 2, Col: 2}},
			"product_price":           {ParentID: strptr("product_price_container"), Position: types.Position{Row: 1, Col: 2}},
			"product_sku":             {ParentID: strptr("product_info_container"), Position: types.Position{Row: 3, Col: 2}},
			"product_description":     {ParentID: strptr("product_info_container"), Position: types.Position{Row: 4, Col: 2}},
			"add_to_cart_button":      {ParentID: strptr("product_info_container"), Position: types.Position{Row: 5, Col: 2}},
		}}
	case "category":
		return &types.SlotConfig{Slots: map[string]*types.SlotNode{
			"category_header":  {Position: types.Position{Row: 1, Col: 1}},
			"category_filters": {Position: types.Position{Row: 2, Col: 1}},
			"product_grid":     {Position: types.Position{Row: 3, Col: 1}},
		}}
	default:
		return &types.SlotConfig{Slots: map[string]*types.SlotNode{
			"page_header":  {Position: types.Position{Row: 1, Col: 1}},
			"page_content": {Position: types.Position{Row: 2, Col: 1}},
		}}
	}
}

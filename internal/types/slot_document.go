package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SlotStatusDraft     = "draft"
	SlotStatusPublished = "published"
)

// SlotDocument is one versioned layout document per (store, page type, status).
// At most one draft and one active published row exist per (store, page type).
type SlotDocument struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID               uuid.UUID      `gorm:"type:uuid;not null;index:idx_slot_doc_store_page" json:"store_id"`
	PageType              string         `gorm:"column:page_type;not null;index:idx_slot_doc_store_page" json:"page_type"`
	Status                string         `gorm:"column:status;not null;default:'draft'" json:"status"`
	IsActive              bool           `gorm:"column:is_active;not null;default:false" json:"is_active"`
	VersionNumber         int            `gorm:"column:version_number;not null;default:1" json:"version_number"`
	ParentVersionID       *uuid.UUID     `gorm:"type:uuid" json:"parent_version_id,omitempty"`
	Configuration         datatypes.JSON `gorm:"column:configuration;type:jsonb;not null;default:'{}'" json:"configuration"`
	HasUnpublishedChanges bool           `gorm:"column:has_unpublished_changes;not null;default:false" json:"has_unpublished_changes"`
	CreatedAt             time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (SlotDocument) TableName() string {
	return "slot_document"
}

// BeforeCreate assigns the id client-side when the database default is not
// available (sqlite in tests).
func (d *SlotDocument) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Position carries sibling sort keys, not pixel coordinates. Fractional values
// are legal mid-mutation; rows are renumbered to 1-based integers afterwards.
type Position struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

type SlotNode struct {
	ParentID  *string           `json:"parentId"`
	Position  Position          `json:"position"`
	Styles    map[string]string `json:"styles,omitempty"`
	ClassName string            `json:"className,omitempty"`
}

// SlotConfig is the decoded shape of SlotDocument.Configuration.
type SlotConfig struct {
	Slots map[string]*SlotNode `json:"slots"`
}

func (d *SlotDocument) Config() (*SlotConfig, error) {
	cfg := &SlotConfig{Slots: map[string]*SlotNode{}}
	if len(d.Configuration) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(d.Configuration, cfg); err != nil {
		return nil, err
	}
	if cfg.Slots == nil {
		cfg.Slots = map[string]*SlotNode{}
	}
	return cfg, nil
}

func (d *SlotDocument) SetConfig(cfg *SlotConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	d.Configuration = datatypes.JSON(raw)
	return nil
}

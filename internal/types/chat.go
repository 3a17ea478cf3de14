package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatThread struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	Title     string    `gorm:"column:title" json:"title"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatThread) TableName() string {
	return "chat_thread"
}

func (t *ChatThread) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ChatMessage persists one turn. Assistant turns that requested confirmation
// carry the serialized pending action in Metadata under "pending_action"; the
// stateless confirmation fallback scans for exactly that.
type ChatMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ThreadID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"thread_id"`
	Thread    *ChatThread    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ThreadID;references:ID" json:"thread,omitempty"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Content   string         `gorm:"column:content;not null" json:"content"`
	Seq       int64          `gorm:"column:seq;not null;index" json:"seq"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_message"
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

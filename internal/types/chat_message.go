package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Author is either a user or the room's persona, never both; IsAIMessage is
// the discriminator. Metadata carries the free-form payload (type tag plus
// optional image/audio fields). Rows are immutable once created.
type ChatMessage struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ChatRoomID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"chat_room_id"`
	UserID      *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	IsAIMessage bool           `gorm:"not null;default:false;column:is_ai_message" json:"is_ai_message"`
	Content     string         `gorm:"not null;column:content" json:"content"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }

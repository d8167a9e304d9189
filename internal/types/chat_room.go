package types

import (
	"time"
	"github.com/google/uuid"
)

// One room per (user, persona) pair. The composite unique index is what makes
// find-or-create race-safe: the loser of a concurrent create re-reads.
type ChatRoom struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AIModelID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_room_member_model" json:"ai_model_id"`
	AIModel     *AIModel  `gorm:"foreignKey:AIModelID;references:ID" json:"ai_model,omitempty"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_room_member_model" json:"created_by_id"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (ChatRoom) TableName() string { return "chat_room" }

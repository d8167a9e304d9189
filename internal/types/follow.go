package types

import (
	"time"
	"github.com/google/uuid"
)

type Follow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_user_model" json:"user_id"`
	AIModelID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_user_model" json:"ai_model_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Follow) TableName() string { return "follow" }

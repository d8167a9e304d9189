package types

import (
	"time"
	"github.com/google/uuid"
)

type GenerationType string

const (
	GenerationTypeChat      GenerationType = "CHAT"
	GenerationTypeImage     GenerationType = "IMAGE"
	GenerationTypeCharacter GenerationType = "CHARACTER"
)

type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "PENDING"
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// Append-only audit trail: exactly one row per credit-consuming action,
// written in the same transaction as the balance decrement.
type Generation struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      GenerationType   `gorm:"column:type;not null;index" json:"type"`
	Prompt    string           `gorm:"column:prompt" json:"prompt"`
	Result    string           `gorm:"column:result" json:"result"`
	Cost      int              `gorm:"not null;column:cost" json:"cost"`
	Status    GenerationStatus `gorm:"column:status;not null" json:"status"`
	CreatedAt time.Time        `gorm:"not null;index" json:"created_at"`
}

func (Generation) TableName() string { return "generation" }

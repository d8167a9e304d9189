package types

import (
	"time"
	"github.com/google/uuid"
)

// Single-use referral grant. Claiming flips Claimed and credits the user in
// one transaction; a second attempt on the same code must fail.
type TokenClaim struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string     `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Amount      int        `gorm:"not null;column:amount" json:"amount"`
	Claimed     bool       `gorm:"not null;default:false;column:claimed" json:"claimed"`
	ClaimedByID *uuid.UUID `gorm:"type:uuid;column:claimed_by_id" json:"claimed_by_id,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (TokenClaim) TableName() string { return "token_claim" }

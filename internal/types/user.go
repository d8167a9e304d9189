package types

import (
  "time"
  "github.com/google/uuid"
)

type User struct {
  ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  Email             string          `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password          string          `gorm:"not null;column:password" json:"-"`
  Name              string          `gorm:"column:name" json:"name"`
  AvatarURL         string          `gorm:"column:avatar_url" json:"avatar_url"`
  TokenBalance      int             `gorm:"not null;default:0;column:token_balance" json:"token_balance"`
  ImageCredits      int             `gorm:"not null;default:0;column:image_credits" json:"image_credits"`
  PhotoCredits      int             `gorm:"not null;default:0;column:photo_credits" json:"photo_credits"`
  CharacterCredits  int             `gorm:"not null;default:0;column:character_credits" json:"character_credits"`
  IsAI              bool            `gorm:"not null;default:false;column:is_ai" json:"is_ai"`
  CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
  UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}

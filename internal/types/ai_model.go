package types

import (
	"time"
	"github.com/google/uuid"
)

type AIModelStatus string

const (
	AIModelStatusPending   AIModelStatus = "PENDING"
	AIModelStatusCompleted AIModelStatus = "COMPLETED"
	AIModelStatusFailed    AIModelStatus = "FAILED"
)

type AIModel struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Name           string        `gorm:"column:name" json:"name"`
	Personality    string        `gorm:"column:personality" json:"personality"`
	Appearance     string        `gorm:"column:appearance" json:"appearance"`
	Backstory      string        `gorm:"column:backstory" json:"backstory"`
	Hobbies        string        `gorm:"column:hobbies" json:"hobbies"`
	Likes          string        `gorm:"column:likes" json:"likes"`
	Dislikes       string        `gorm:"column:dislikes" json:"dislikes"`
	Status         AIModelStatus `gorm:"column:status;not null;index" json:"status"`
	IsPrivate      bool          `gorm:"not null;default:false;column:is_private" json:"is_private"`
	AvatarURL      string        `gorm:"column:avatar_url" json:"avatar_url"`
	FollowersCount int           `gorm:"not null;default:0;column:followers_count" json:"followers_count"`
	MessageCount   int           `gorm:"not null;default:0;column:message_count" json:"message_count"`
	ImageCount     int           `gorm:"not null;default:0;column:image_count" json:"image_count"`
	CreatedAt      time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (AIModel) TableName() string { return "ai_model" }

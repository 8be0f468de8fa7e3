package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SessionLog struct {
	Id           string         `gorm:"type:varchar(64);primaryKey"`
	DocType      string         `gorm:"type:varchar(32);index"`
	Status       string         `gorm:"type:varchar(16);not null;default:'active';index"`
	Progress     float64        `gorm:"not null;default:0"`
	DocumentPath string         `gorm:"type:text"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime;index"`
}

func (SessionLog) TableName() string {
	return "sessions"
}

type MessageLog struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId string    `gorm:"type:varchar(64);not null;index"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MessageLog) TableName() string {
	return "messages"
}

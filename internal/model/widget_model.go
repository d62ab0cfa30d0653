package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Widget struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GlobalTagId   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"` // one widget per category
	Name          string         `gorm:"type:varchar(120);not null"`
	Description   string         `gorm:"type:text"`
	Component     datatypes.JSON `gorm:"type:jsonb"`
	Schema        datatypes.JSON `gorm:"type:jsonb"`
	SchemaVersion int            `gorm:"not null;default:1"`
	Status        string         `gorm:"type:varchar(16);not null"`
	ErrorDetail   string         `gorm:"type:text"`
	LastOpenedAt  *time.Time
	ThumbnailPath string `gorm:"type:text"`
	ThumbnailHash string `gorm:"type:varchar(64)"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Widget) TableName() string {
	return "widgets"
}

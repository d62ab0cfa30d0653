package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTag rows are regenerated wholesale (delete-then-insert) on every
// extraction run, so no soft delete is kept here.
type ConversationTag struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index"`
	Tag            string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (ConversationTag) TableName() string {
	return "conversation_tags"
}

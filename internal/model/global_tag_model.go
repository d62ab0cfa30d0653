package model

import (
	"time"

	"github.com/google/uuid"
)

// GlobalTag is a clustering category. Tag text is the natural key: clustering
// reuses the exact existing text, so a unique index enforces no duplicates.
type GlobalTag struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Tag       string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (GlobalTag) TableName() string {
	return "global_tags"
}

// ConversationGlobalTag is the many-to-many join between conversations and
// categories. Memberships are replaced, never merged, on each clustering run.
type ConversationGlobalTag struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_conversation_global_tag"`
	GlobalTagId    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_conversation_global_tag"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ConversationGlobalTag) TableName() string {
	return "conversation_global_tags"
}

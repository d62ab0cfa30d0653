package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id             uuid.UUID
	Title          string
	SourceWidgetId *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

type ConversationMessage struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	CreatedAt      time.Time
}

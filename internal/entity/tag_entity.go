package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationTag struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Tag            string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

type GlobalTag struct {
	Id        uuid.UUID
	Tag       string
	CreatedAt time.Time
}

type ConversationGlobalTag struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	GlobalTagId    uuid.UUID
	CreatedAt      time.Time
}

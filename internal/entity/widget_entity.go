package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Widget struct {
	Id            uuid.UUID
	GlobalTagId   uuid.UUID
	Name          string
	Description   string
	Component     json.RawMessage
	Schema        json.RawMessage
	SchemaVersion int
	Status        string
	ErrorDetail   string
	LastOpenedAt  *time.Time
	ThumbnailPath string
	ThumbnailHash string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

type WidgetDataItem struct {
	Id                   uuid.UUID
	WidgetId             uuid.UUID
	Data                 json.RawMessage
	SourceConversationId *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// DataMap decodes the item payload into a generic map. Callers treat a nil
// result as an empty item.
func (i *WidgetDataItem) DataMap() map[string]interface{} {
	var m map[string]interface{}
	if len(i.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(i.Data, &m); err != nil {
		return nil
	}
	return m
}

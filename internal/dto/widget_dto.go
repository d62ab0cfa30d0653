package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WidgetResponse struct {
	Id            uuid.UUID       `json:"id"`
	GlobalTagId   uuid.UUID       `json:"global_tag_id"`
	Tag           string          `json:"tag"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Component     json.RawMessage `json:"component,omitempty"`
	Schema        json.RawMessage `json:"schema,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	Status        string          `json:"status"`
	ErrorDetail   string          `json:"error_detail,omitempty"`
	LastOpenedAt  *time.Time      `json:"last_opened_at,omitempty"`
	ThumbnailPath string          `json:"thumbnail_path,omitempty"`
	ThumbnailHash string          `json:"thumbnail_hash,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at"`
}

type WidgetDataItemResponse struct {
	Id                   uuid.UUID       `json:"id"`
	WidgetId             uuid.UUID       `json:"widget_id"`
	Data                 json.RawMessage `json:"data"`
	SourceConversationId *uuid.UUID      `json:"source_conversation_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            *time.Time      `json:"updated_at"`
}

// UpdateDataItemRequest is the edit-callback target: the UI component calls
// back with the full replacement payload for one item.
type UpdateDataItemRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WidgetDataItem struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WidgetId             uuid.UUID      `gorm:"type:uuid;not null;index"`
	Data                 datatypes.JSON `gorm:"type:jsonb;not null"`
	SourceConversationId *uuid.UUID     `gorm:"type:uuid;index"` // provenance, null for manual edits
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
}

func (WidgetDataItem) TableName() string {
	return "widget_data_items"
}

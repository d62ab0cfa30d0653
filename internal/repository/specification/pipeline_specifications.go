package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByConversationID filters rows belonging to one conversation.
type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// ByGlobalTagID filters rows belonging to one category.
type ByGlobalTagID struct {
	GlobalTagID uuid.UUID
}

func (s ByGlobalTagID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("global_tag_id = ?", s.GlobalTagID)
}

// ByWidgetID filters rows belonging to one widget.
type ByWidgetID struct {
	WidgetID uuid.UUID
}

func (s ByWidgetID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("widget_id = ?", s.WidgetID)
}

// ByStatus filters widgets by lifecycle status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByExactTag filters global tags by exact tag text (the natural key).
type ByExactTag struct {
	Tag string
}

func (s ByExactTag) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tag = ?", s.Tag)
}

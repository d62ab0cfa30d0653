package mapper

import (
	"time"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WidgetMapper struct{}

func NewWidgetMapper() *WidgetMapper {
	return &WidgetMapper{}
}

func (m *WidgetMapper) WidgetToEntity(w *model.Widget) *entity.Widget {
	if w == nil {
		return nil
	}

	var deletedAt *time.Time
	if w.DeletedAt.Valid {
		t := w.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !w.UpdatedAt.IsZero() {
		t := w.UpdatedAt
		updatedAt = &t
	}

	return &entity.Widget{
		Id:            w.Id,
		GlobalTagId:   w.GlobalTagId,
		Name:          w.Name,
		Description:   w.Description,
		Component:     []byte(w.Component),
		Schema:        []byte(w.Schema),
		SchemaVersion: w.SchemaVersion,
		Status:        w.Status,
		ErrorDetail:   w.ErrorDetail,
		LastOpenedAt:  w.LastOpenedAt,
		ThumbnailPath: w.ThumbnailPath,
		ThumbnailHash: w.ThumbnailHash,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     w.DeletedAt.Valid,
	}
}

func (m *WidgetMapper) WidgetToModel(w *entity.Widget) *model.Widget {
	if w == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if w.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *w.DeletedAt, Valid: true}
	} else if w.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if w.UpdatedAt != nil {
		updatedAt = *w.UpdatedAt
	}

	return &model.Widget{
		Id:            w.Id,
		GlobalTagId:   w.GlobalTagId,
		Name:          w.Name,
		Description:   w.Description,
		Component:     datatypes.JSON(w.Component),
		Schema:        datatypes.JSON(w.Schema),
		SchemaVersion: w.SchemaVersion,
		Status:        w.Status,
		ErrorDetail:   w.ErrorDetail,
		LastOpenedAt:  w.LastOpenedAt,
		ThumbnailPath: w.ThumbnailPath,
		ThumbnailHash: w.ThumbnailHash,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     updatedAt,
		DeletedAt:     deletedAt,
	}
}

func (m *WidgetMapper) DataItemToEntity(i *model.WidgetDataItem) *entity.WidgetDataItem {
	if i == nil {
		return nil
	}
	e := &entity.WidgetDataItem{
		Id:                   i.Id,
		WidgetId:             i.WidgetId,
		Data:                 []byte(i.Data),
		SourceConversationId: i.SourceConversationId,
		CreatedAt:            i.CreatedAt,
	}
	if !i.UpdatedAt.IsZero() {
		u := i.UpdatedAt
		e.UpdatedAt = &u
	}
	return e
}

func (m *WidgetMapper) DataItemToModel(i *entity.WidgetDataItem) *model.WidgetDataItem {
	if i == nil {
		return nil
	}
	mi := &model.WidgetDataItem{
		Id:                   i.Id,
		WidgetId:             i.WidgetId,
		Data:                 datatypes.JSON(i.Data),
		SourceConversationId: i.SourceConversationId,
		CreatedAt:            i.CreatedAt,
	}
	if i.UpdatedAt != nil {
		mi.UpdatedAt = *i.UpdatedAt
	}
	return mi
}

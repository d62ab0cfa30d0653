package mapper

import (
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/model"
)

type TagMapper struct{}

func NewTagMapper() *TagMapper {
	return &TagMapper{}
}

func (m *TagMapper) ConversationTagToEntity(t *model.ConversationTag) *entity.ConversationTag {
	if t == nil {
		return nil
	}
	e := &entity.ConversationTag{
		Id:             t.Id,
		ConversationId: t.ConversationId,
		Tag:            t.Tag,
		CreatedAt:      t.CreatedAt,
	}
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		e.UpdatedAt = &u
	}
	return e
}

func (m *TagMapper) ConversationTagToModel(t *entity.ConversationTag) *model.ConversationTag {
	if t == nil {
		return nil
	}
	mt := &model.ConversationTag{
		Id:             t.Id,
		ConversationId: t.ConversationId,
		Tag:            t.Tag,
		CreatedAt:      t.CreatedAt,
	}
	if t.UpdatedAt != nil {
		mt.UpdatedAt = *t.UpdatedAt
	}
	return mt
}

func (m *TagMapper) GlobalTagToEntity(t *model.GlobalTag) *entity.GlobalTag {
	if t == nil {
		return nil
	}
	return &entity.GlobalTag{
		Id:        t.Id,
		Tag:       t.Tag,
		CreatedAt: t.CreatedAt,
	}
}

func (m *TagMapper) GlobalTagToModel(t *entity.GlobalTag) *model.GlobalTag {
	if t == nil {
		return nil
	}
	return &model.GlobalTag{
		Id:        t.Id,
		Tag:       t.Tag,
		CreatedAt: t.CreatedAt,
	}
}

func (m *TagMapper) MappingToEntity(j *model.ConversationGlobalTag) *entity.ConversationGlobalTag {
	if j == nil {
		return nil
	}
	return &entity.ConversationGlobalTag{
		Id:             j.Id,
		ConversationId: j.ConversationId,
		GlobalTagId:    j.GlobalTagId,
		CreatedAt:      j.CreatedAt,
	}
}

func (m *TagMapper) MappingToModel(j *entity.ConversationGlobalTag) *model.ConversationGlobalTag {
	if j == nil {
		return nil
	}
	return &model.ConversationGlobalTag{
		Id:             j.Id,
		ConversationId: j.ConversationId,
		GlobalTagId:    j.GlobalTagId,
		CreatedAt:      j.CreatedAt,
	}
}

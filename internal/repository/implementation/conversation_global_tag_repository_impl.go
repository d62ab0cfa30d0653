package implementation

import (
	"context"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/mapper"
	"ai-widgetchat-be/internal/model"
	"ai-widgetchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationGlobalTagRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TagMapper
}

func NewConversationGlobalTagRepository(db *gorm.DB) contract.ConversationGlobalTagRepository {
	return &ConversationGlobalTagRepositoryImpl{
		db:     db,
		mapper: mapper.NewTagMapper(),
	}
}

func (r *ConversationGlobalTagRepositoryImpl) CreateBulk(ctx context.Context, mappings []*entity.ConversationGlobalTag) error {
	if len(mappings) == 0 {
		return nil
	}
	models := make([]*model.ConversationGlobalTag, len(mappings))
	for i, j := range mappings {
		models[i] = r.mapper.MappingToModel(j)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *ConversationGlobalTagRepositoryImpl) FindAllByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) ([]*entity.ConversationGlobalTag, error) {
	var models []*model.ConversationGlobalTag
	if err := r.db.WithContext(ctx).
		Where("global_tag_id = ?", globalTagId).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *ConversationGlobalTagRepositoryImpl) FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationGlobalTag, error) {
	var models []*model.ConversationGlobalTag
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *ConversationGlobalTagRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Delete(&model.ConversationGlobalTag{}).Error
}

func (r *ConversationGlobalTagRepositoryImpl) DeleteByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("global_tag_id = ?", globalTagId).
		Delete(&model.ConversationGlobalTag{}).Error
}

func (r *ConversationGlobalTagRepositoryImpl) toEntities(models []*model.ConversationGlobalTag) []*entity.ConversationGlobalTag {
	entities := make([]*entity.ConversationGlobalTag, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MappingToEntity(m)
	}
	return entities
}

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

type ConversationTagRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TagMapper
}

func NewConversationTagRepository(db *gorm.DB) contract.ConversationTagRepository {
	return &ConversationTagRepositoryImpl{
		db:     db,
		mapper: mapper.NewTagMapper(),
	}
}

func (r *ConversationTagRepositoryImpl) CreateBulk(ctx context.Context, tags []*entity.ConversationTag) error {
	if len(tags) == 0 {
		return nil
	}
	models := make([]*model.ConversationTag, len(tags))
	for i, t := range tags {
		models[i] = r.mapper.ConversationTagToModel(t)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *ConversationTagRepositoryImpl) FindAll(ctx context.Context) ([]*entity.ConversationTag, error) {
	var models []*model.ConversationTag
	if err := r.db.WithContext(ctx).Order("conversation_id, created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *ConversationTagRepositoryImpl) FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationTag, error) {
	var models []*model.ConversationTag
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *ConversationTagRepositoryImpl) FindAllByConversationIds(ctx context.Context, conversationIds []uuid.UUID) ([]*entity.ConversationTag, error) {
	if len(conversationIds) == 0 {
		return nil, nil
	}
	var models []*model.ConversationTag
	if err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIds).
		Order("conversation_id, created_at").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models), nil
}

func (r *ConversationTagRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Delete(&model.ConversationTag{}).Error
}

func (r *ConversationTagRepositoryImpl) toEntities(models []*model.ConversationTag) []*entity.ConversationTag {
	entities := make([]*entity.ConversationTag, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ConversationTagToEntity(m)
	}
	return entities
}

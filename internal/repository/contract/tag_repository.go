package contract

import (
	"context"

	"ai-widgetchat-be/internal/entity"

	"github.com/google/uuid"
)

type ConversationTagRepository interface {
	CreateBulk(ctx context.Context, tags []*entity.ConversationTag) error
	FindAll(ctx context.Context) ([]*entity.ConversationTag, error)
	FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationTag, error)
	FindAllByConversationIds(ctx context.Context, conversationIds []uuid.UUID) ([]*entity.ConversationTag, error)
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
}

type GlobalTagRepository interface {
	Create(ctx context.Context, tag *entity.GlobalTag) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.GlobalTag, error)
	FindByExactTag(ctx context.Context, tag string) (*entity.GlobalTag, error)
	FindAll(ctx context.Context) ([]*entity.GlobalTag, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ConversationGlobalTagRepository interface {
	CreateBulk(ctx context.Context, mappings []*entity.ConversationGlobalTag) error
	FindAllByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) ([]*entity.ConversationGlobalTag, error)
	FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationGlobalTag, error)
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
	DeleteByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) error
}

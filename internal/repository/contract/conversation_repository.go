package contract

import (
	"context"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	Update(ctx context.Context, conversation *entity.Conversation) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	FindBySourceWidgetId(ctx context.Context, widgetId uuid.UUID) ([]*entity.Conversation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type ConversationMessageRepository interface {
	Create(ctx context.Context, message *entity.ConversationMessage) error
	FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationMessage, error)
	CountByConversationId(ctx context.Context, conversationId uuid.UUID) (int64, error)
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
}

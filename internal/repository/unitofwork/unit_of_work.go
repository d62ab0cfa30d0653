package unitofwork

import (
	"context"

	"ai-widgetchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	ConversationMessageRepository() contract.ConversationMessageRepository
	ConversationTagRepository() contract.ConversationTagRepository
	GlobalTagRepository() contract.GlobalTagRepository
	ConversationGlobalTagRepository() contract.ConversationGlobalTagRepository
	WidgetRepository() contract.WidgetRepository
	WidgetDataItemRepository() contract.WidgetDataItemRepository
}

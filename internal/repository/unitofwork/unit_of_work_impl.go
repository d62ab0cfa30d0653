package unitofwork

import (
	"context"
	"fmt"

	"ai-widgetchat-be/internal/repository/contract"
	"ai-widgetchat-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // active transaction, nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ConversationRepository() contract.ConversationRepository {
	return implementation.NewConversationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ConversationMessageRepository() contract.ConversationMessageRepository {
	return implementation.NewConversationMessageRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ConversationTagRepository() contract.ConversationTagRepository {
	return implementation.NewConversationTagRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GlobalTagRepository() contract.GlobalTagRepository {
	return implementation.NewGlobalTagRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ConversationGlobalTagRepository() contract.ConversationGlobalTagRepository {
	return implementation.NewConversationGlobalTagRepository(u.getDB())
}

func (u *UnitOfWorkImpl) WidgetRepository() contract.WidgetRepository {
	return implementation.NewWidgetRepository(u.getDB())
}

func (u *UnitOfWorkImpl) WidgetDataItemRepository() contract.WidgetDataItemRepository {
	return implementation.NewWidgetDataItemRepository(u.getDB())
}

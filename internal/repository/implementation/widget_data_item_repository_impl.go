package implementation

import (
	"context"
	"errors"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/mapper"
	"ai-widgetchat-be/internal/model"
	"ai-widgetchat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WidgetDataItemRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WidgetMapper
}

func NewWidgetDataItemRepository(db *gorm.DB) contract.WidgetDataItemRepository {
	return &WidgetDataItemRepositoryImpl{
		db:     db,
		mapper: mapper.NewWidgetMapper(),
	}
}

func (r *WidgetDataItemRepositoryImpl) Create(ctx context.Context, item *entity.WidgetDataItem) error {
	m := r.mapper.DataItemToModel(item)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.DataItemToEntity(m)
	return nil
}

func (r *WidgetDataItemRepositoryImpl) CreateBulk(ctx context.Context, items []*entity.WidgetDataItem) error {
	if len(items) == 0 {
		return nil
	}
	models := make([]*model.WidgetDataItem, len(items))
	for i, it := range items {
		models[i] = r.mapper.DataItemToModel(it)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *WidgetDataItemRepositoryImpl) Update(ctx context.Context, item *entity.WidgetDataItem) error {
	m := r.mapper.DataItemToModel(item)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.DataItemToEntity(m)
	return nil
}

func (r *WidgetDataItemRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.WidgetDataItem{}, id).Error
}

func (r *WidgetDataItemRepositoryImpl) DeleteByWidgetId(ctx context.Context, widgetId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("widget_id = ?", widgetId).
		Delete(&model.WidgetDataItem{}).Error
}

func (r *WidgetDataItemRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.WidgetDataItem, error) {
	var m model.WidgetDataItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DataItemToEntity(&m), nil
}

func (r *WidgetDataItemRepositoryImpl) FindAllByWidgetId(ctx context.Context, widgetId uuid.UUID) ([]*entity.WidgetDataItem, error) {
	var models []*model.WidgetDataItem
	if err := r.db.WithContext(ctx).
		Where("widget_id = ?", widgetId).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.WidgetDataItem, len(models))
	for i, m := range models {
		entities[i] = r.mapper.DataItemToEntity(m)
	}
	return entities, nil
}

func (r *WidgetDataItemRepositoryImpl) ExistsByWidgetAndSource(ctx context.Context, widgetId, conversationId uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.WidgetDataItem{}).
		Where("widget_id = ? AND source_conversation_id = ?", widgetId, conversationId).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

package implementation

import (
	"context"
	"errors"
	"time"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/mapper"
	"ai-widgetchat-be/internal/model"
	"ai-widgetchat-be/internal/repository/contract"
	"ai-widgetchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WidgetRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WidgetMapper
}

func NewWidgetRepository(db *gorm.DB) contract.WidgetRepository {
	return &WidgetRepositoryImpl{
		db:     db,
		mapper: mapper.NewWidgetMapper(),
	}
}

func (r *WidgetRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *WidgetRepositoryImpl) Create(ctx context.Context, widget *entity.Widget) error {
	m := r.mapper.WidgetToModel(widget)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*widget = *r.mapper.WidgetToEntity(m)
	return nil
}

func (r *WidgetRepositoryImpl) Update(ctx context.Context, widget *entity.Widget) error {
	m := r.mapper.WidgetToModel(widget)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*widget = *r.mapper.WidgetToEntity(m)
	return nil
}

func (r *WidgetRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorDetail string) error {
	return r.db.WithContext(ctx).
		Model(&model.Widget{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"error_detail": errorDetail,
		}).Error
}

func (r *WidgetRepositoryImpl) TouchLastOpened(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Widget{}).
		Where("id = ?", id).
		Update("last_opened_at", at).Error
}

func (r *WidgetRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Widget{}, id).Error
}

func (r *WidgetRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Widget, error) {
	var m model.Widget
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.WidgetToEntity(&m), nil
}

func (r *WidgetRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Widget, error) {
	var models []*model.Widget
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Widget, len(models))
	for i, m := range models {
		entities[i] = r.mapper.WidgetToEntity(m)
	}
	return entities, nil
}

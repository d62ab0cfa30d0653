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

type GlobalTagRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TagMapper
}

func NewGlobalTagRepository(db *gorm.DB) contract.GlobalTagRepository {
	return &GlobalTagRepositoryImpl{
		db:     db,
		mapper: mapper.NewTagMapper(),
	}
}

func (r *GlobalTagRepositoryImpl) Create(ctx context.Context, tag *entity.GlobalTag) error {
	m := r.mapper.GlobalTagToModel(tag)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*tag = *r.mapper.GlobalTagToEntity(m)
	return nil
}

func (r *GlobalTagRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.GlobalTag, error) {
	var m model.GlobalTag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.GlobalTagToEntity(&m), nil
}

func (r *GlobalTagRepositoryImpl) FindByExactTag(ctx context.Context, tag string) (*entity.GlobalTag, error) {
	var m model.GlobalTag
	if err := r.db.WithContext(ctx).Where("tag = ?", tag).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.GlobalTagToEntity(&m), nil
}

func (r *GlobalTagRepositoryImpl) FindAll(ctx context.Context) ([]*entity.GlobalTag, error) {
	var models []*model.GlobalTag
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GlobalTag, len(models))
	for i, m := range models {
		entities[i] = r.mapper.GlobalTagToEntity(m)
	}
	return entities, nil
}

func (r *GlobalTagRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.GlobalTag{}, id).Error
}

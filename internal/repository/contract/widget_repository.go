package contract

import (
	"context"
	"time"

	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type WidgetRepository interface {
	Create(ctx context.Context, widget *entity.Widget) error
	Update(ctx context.Context, widget *entity.Widget) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, errorDetail string) error
	TouchLastOpened(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Widget, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Widget, error)
}

type WidgetDataItemRepository interface {
	Create(ctx context.Context, item *entity.WidgetDataItem) error
	CreateBulk(ctx context.Context, items []*entity.WidgetDataItem) error
	Update(ctx context.Context, item *entity.WidgetDataItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByWidgetId(ctx context.Context, widgetId uuid.UUID) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.WidgetDataItem, error)
	FindAllByWidgetId(ctx context.Context, widgetId uuid.UUID) ([]*entity.WidgetDataItem, error)
	ExistsByWidgetAndSource(ctx context.Context, widgetId, conversationId uuid.UUID) (bool, error)
}

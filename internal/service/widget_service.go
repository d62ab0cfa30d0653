package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/repository/specification"
	"ai-widgetchat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IWidgetService interface {
	ListWidgets(ctx context.Context) ([]*dto.WidgetResponse, error)
	GetWidget(ctx context.Context, id uuid.UUID) (*dto.WidgetResponse, error)
	DeleteWidget(ctx context.Context, id uuid.UUID) error
	ListDataItems(ctx context.Context, widgetId uuid.UUID) ([]*dto.WidgetDataItemResponse, error)
	// UpdateDataItem is the component edit-callback target: the rendered
	// widget posts the full replacement payload for one item.
	UpdateDataItem(ctx context.Context, widgetId, itemId uuid.UUID, req *dto.UpdateDataItemRequest) (*dto.WidgetDataItemResponse, error)
	// SaveThumbnail stores a rendered snapshot, skipping the write when the
	// content hash is unchanged.
	SaveThumbnail(ctx context.Context, widgetId uuid.UUID, content []byte) (*dto.WidgetResponse, error)
}

type widgetService struct {
	uowFactory   unitofwork.RepositoryFactory
	thumbnailDir string
	logger       logger.ILogger
}

func NewWidgetService(
	uowFactory unitofwork.RepositoryFactory,
	thumbnailDir string,
	log logger.ILogger,
) IWidgetService {
	return &widgetService{
		uowFactory:   uowFactory,
		thumbnailDir: thumbnailDir,
		logger:       log,
	}
}

func (s *widgetService) toResponse(ctx context.Context, uow unitofwork.UnitOfWork, w *entity.Widget) *dto.WidgetResponse {
	res := &dto.WidgetResponse{
		Id:            w.Id,
		GlobalTagId:   w.GlobalTagId,
		Name:          w.Name,
		Description:   w.Description,
		Component:     json.RawMessage(w.Component),
		Schema:        json.RawMessage(w.Schema),
		SchemaVersion: w.SchemaVersion,
		Status:        w.Status,
		ErrorDetail:   w.ErrorDetail,
		LastOpenedAt:  w.LastOpenedAt,
		ThumbnailPath: w.ThumbnailPath,
		ThumbnailHash: w.ThumbnailHash,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
	if tag, err := uow.GlobalTagRepository().FindById(ctx, w.GlobalTagId); err == nil && tag != nil {
		res.Tag = tag.Tag
	}
	return res
}

func (s *widgetService) ListWidgets(ctx context.Context) ([]*dto.WidgetResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widgets, err := uow.WidgetRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	out := make([]*dto.WidgetResponse, 0, len(widgets))
	for _, w := range widgets {
		res := s.toResponse(ctx, uow, w)
		// The list view only needs the card surface, not the full component
		// and schema payloads.
		res.Component = nil
		res.Schema = nil
		out = append(out, res)
	}
	return out, nil
}

func (s *widgetService) GetWidget(ctx context.Context, id uuid.UUID) (*dto.WidgetResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if widget == nil {
		return nil, serverutils.NewNotFoundError("widget")
	}

	// Opening a widget records recency for the dashboard ordering; a failure
	// here must not block the read.
	if err := uow.WidgetRepository().TouchLastOpened(ctx, id, time.Now()); err != nil {
		s.logger.Warn("Widget", "Failed to touch last_opened_at", map[string]interface{}{"widget_id": id, "error": err.Error()})
	}

	return s.toResponse(ctx, uow, widget), nil
}

func (s *widgetService) DeleteWidget(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if widget == nil {
		return serverutils.NewNotFoundError("widget")
	}

	if err := uow.Begin(ctx); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.WidgetDataItemRepository().DeleteByWidgetId(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.WidgetRepository().Delete(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	// Dropping the category link lets the next clustering round regenerate a
	// widget for the category from scratch.
	if err := uow.ConversationGlobalTagRepository().DeleteByGlobalTagId(ctx, widget.GlobalTagId); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.GlobalTagRepository().Delete(ctx, widget.GlobalTagId); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	if err := uow.Commit(); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	if widget.ThumbnailPath != "" {
		if err := os.Remove(widget.ThumbnailPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Widget", "Failed to remove thumbnail file", map[string]interface{}{"path": widget.ThumbnailPath, "error": err.Error()})
		}
	}

	return nil
}

func (s *widgetService) ListDataItems(ctx context.Context, widgetId uuid.UUID) ([]*dto.WidgetDataItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: widgetId})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if widget == nil {
		return nil, serverutils.NewNotFoundError("widget")
	}

	items, err := uow.WidgetDataItemRepository().FindAllByWidgetId(ctx, widgetId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	out := make([]*dto.WidgetDataItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toDataItemResponse(item))
	}
	return out, nil
}

func (s *widgetService) UpdateDataItem(ctx context.Context, widgetId, itemId uuid.UUID, req *dto.UpdateDataItemRequest) (*dto.WidgetDataItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.WidgetDataItemRepository().FindById(ctx, itemId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if item == nil || item.WidgetId != widgetId {
		return nil, serverutils.NewNotFoundError("data item")
	}

	payload, err := json.Marshal(req.Data)
	if err != nil {
		return nil, serverutils.NewValidationError("data is not serializable")
	}

	now := time.Now()
	item.Data = payload
	item.UpdatedAt = &now
	if err := uow.WidgetDataItemRepository().Update(ctx, item); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	return toDataItemResponse(item), nil
}

func (s *widgetService) SaveThumbnail(ctx context.Context, widgetId uuid.UUID, content []byte) (*dto.WidgetResponse, error) {
	if len(content) == 0 {
		return nil, serverutils.NewValidationError("empty thumbnail")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: widgetId})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if widget == nil {
		return nil, serverutils.NewNotFoundError("widget")
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	if hash == widget.ThumbnailHash {
		return s.toResponse(ctx, uow, widget), nil
	}

	if err := os.MkdirAll(s.thumbnailDir, 0o755); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	path := filepath.Join(s.thumbnailDir, fmt.Sprintf("%s.png", widgetId))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	now := time.Now()
	widget.ThumbnailPath = path
	widget.ThumbnailHash = hash
	widget.UpdatedAt = &now
	if err := uow.WidgetRepository().Update(ctx, widget); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	return s.toResponse(ctx, uow, widget), nil
}

func toDataItemResponse(item *entity.WidgetDataItem) *dto.WidgetDataItemResponse {
	return &dto.WidgetDataItemResponse{
		Id:                   item.Id,
		WidgetId:             item.WidgetId,
		Data:                 json.RawMessage(item.Data),
		SourceConversationId: item.SourceConversationId,
		CreatedAt:            item.CreatedAt,
		UpdatedAt:            item.UpdatedAt,
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/repository/memory"
	"ai-widgetchat-be/internal/repository/specification"
	"ai-widgetchat-be/internal/repository/unitofwork"
	"ai-widgetchat-be/pkg/events"
	"ai-widgetchat-be/pkg/llm"
	"ai-widgetchat-be/pkg/llm/jsonutil"
	pktNats "ai-widgetchat-be/pkg/nats"

	"github.com/google/uuid"
)

type IWidgetGenerationService interface {
	// GenerateWidget designs and populates the widget for one category.
	GenerateWidget(ctx context.Context, globalTagId uuid.UUID) (*dto.WidgetGenerationResult, error)

	// RegenerateAllWidgets resets every widget and rebuilds it from scratch,
	// continuing past per-widget failures.
	RegenerateAllWidgets(ctx context.Context) (*dto.RegenerateAllResult, error)
}

type widgetGenerationService struct {
	uowFactory     unitofwork.RepositoryFactory
	llmProvider    llm.LLMProvider
	eventPublisher *pktNats.Publisher
	guard          *memory.GenerationGuard
	logger         logger.ILogger
}

func NewWidgetGenerationService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	eventPublisher *pktNats.Publisher,
	guard *memory.GenerationGuard,
	log logger.ILogger,
) IWidgetGenerationService {
	return &widgetGenerationService{
		uowFactory:     uowFactory,
		llmProvider:    llmProvider,
		eventPublisher: eventPublisher,
		guard:          guard,
		logger:         log,
	}
}

func (s *widgetGenerationService) GenerateWidget(ctx context.Context, globalTagId uuid.UUID) (*dto.WidgetGenerationResult, error) {
	guardKey := "widget-gen:" + globalTagId.String()
	if !s.guard.TryAcquire(guardKey) {
		s.logger.Info("WidgetGeneration", "Generation already running for category", map[string]interface{}{"global_tag_id": globalTagId})
		return &dto.WidgetGenerationResult{Skipped: true}, nil
	}
	defer s.guard.Release(guardKey)

	uow := s.uowFactory.NewUnitOfWork(ctx)

	globalTag, err := uow.GlobalTagRepository().FindById(ctx, globalTagId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if globalTag == nil {
		return nil, serverutils.NewNotFoundError("category")
	}

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByGlobalTagID{GlobalTagID: globalTagId})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if widget != nil && widget.Status == constant.WidgetStatusActive {
		return &dto.WidgetGenerationResult{WidgetId: widget.Id, Skipped: true}, nil
	}

	// Create or reset the row up front so the status feed can show
	// "generating" while the model works.
	if widget == nil {
		widget = &entity.Widget{
			Id:          uuid.New(),
			GlobalTagId: globalTagId,
			Name:        globalTag.Tag,
			Status:      constant.WidgetStatusGenerating,
			CreatedAt:   time.Now(),
		}
		if err := uow.WidgetRepository().Create(ctx, widget); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
	} else {
		if err := uow.WidgetRepository().UpdateStatus(ctx, widget.Id, constant.WidgetStatusGenerating, ""); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
	}

	s.publishStatus(ctx, constant.EventWidgetGenerating, widget.Id, globalTag.Tag, "")

	result, err := s.generate(ctx, uow, widget, globalTag)
	if err != nil {
		detail := err.Error()
		if updErr := uow.WidgetRepository().UpdateStatus(ctx, widget.Id, constant.WidgetStatusError, detail); updErr != nil {
			s.logger.Error("WidgetGeneration", "Failed to record error status", map[string]interface{}{"error": updErr.Error()})
		}
		s.publishStatus(ctx, constant.EventWidgetError, widget.Id, globalTag.Tag, detail)
		return nil, err
	}

	s.publishStatus(ctx, constant.EventWidgetActive, widget.Id, globalTag.Tag, "")
	return result, nil
}

func (s *widgetGenerationService) generate(ctx context.Context, uow unitofwork.UnitOfWork, widget *entity.Widget, globalTag *entity.GlobalTag) (*dto.WidgetGenerationResult, error) {
	mappings, err := uow.ConversationGlobalTagRepository().FindAllByGlobalTagId(ctx, widget.GlobalTagId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if len(mappings) == 0 {
		return nil, serverutils.NewValidationError("category has no conversations")
	}

	conversationIds := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		conversationIds = append(conversationIds, m.ConversationId)
	}

	tags, err := uow.ConversationTagRepository().FindAllByConversationIds(ctx, conversationIds)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	var transcripts strings.Builder
	for _, convId := range conversationIds {
		messages, err := uow.ConversationMessageRepository().FindAllByConversationId(ctx, convId)
		if err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
		transcripts.WriteString(fmt.Sprintf("--- conversation %s ---\n", convId))
		transcripts.WriteString(renderDatedTranscript(messages))
	}

	var tagLines strings.Builder
	for _, t := range tags {
		tagLines.WriteString("- " + t.Tag + "\n")
	}

	prompt := fmt.Sprintf(constant.WidgetGenerationPrompt,
		globalTag.Tag,
		tagLines.String(),
		truncate(transcripts.String(), 48000),
	)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil {
		return nil, serverutils.NewUpstreamError("widget generation completion failed", err)
	}

	var spec dto.WidgetSpecOutput
	if err := jsonutil.UnmarshalObject(response, &spec); err != nil {
		return nil, serverutils.NewUpstreamError("widget generation returned malformed output", err)
	}
	if err := spec.Schema.Validate(); err != nil {
		return nil, serverutils.NewUpstreamError("widget generation returned invalid schema", err)
	}
	if strings.TrimSpace(spec.Component) == "" {
		return nil, serverutils.NewUpstreamError("widget generation returned empty component", nil)
	}

	schemaJson, err := json.Marshal(spec.Schema)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	componentJson, err := json.Marshal(spec.Component)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	items, err := buildDataItems(widget.Id, spec.Items, conversationIds)
	if err != nil {
		return nil, serverutils.NewUpstreamError("widget generation returned unserializable items", err)
	}

	now := time.Now()
	if spec.Name != "" {
		widget.Name = spec.Name
	}
	widget.Description = spec.Description
	widget.Schema = schemaJson
	widget.Component = componentJson
	widget.SchemaVersion = 1
	widget.Status = constant.WidgetStatusActive
	widget.ErrorDetail = ""
	widget.UpdatedAt = &now

	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.WidgetRepository().Update(ctx, widget); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	if err := uow.WidgetDataItemRepository().DeleteByWidgetId(ctx, widget.Id); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	if len(items) > 0 {
		if err := uow.WidgetDataItemRepository().CreateBulk(ctx, items); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	s.logger.Info("WidgetGeneration", "Widget generated", map[string]interface{}{
		"widget_id": widget.Id,
		"category":  globalTag.Tag,
		"items":     len(items),
	})

	return &dto.WidgetGenerationResult{
		WidgetId:       widget.Id,
		ItemsExtracted: len(items),
	}, nil
}

func (s *widgetGenerationService) RegenerateAllWidgets(ctx context.Context) (*dto.RegenerateAllResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widgets, err := uow.WidgetRepository().FindAll(ctx)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	result := &dto.RegenerateAllResult{Total: len(widgets)}
	for _, w := range widgets {
		// Reset first so the active-widget skip in GenerateWidget does not
		// short-circuit the rebuild.
		if err := uow.WidgetRepository().UpdateStatus(ctx, w.Id, constant.WidgetStatusGenerating, ""); err != nil {
			result.Failed++
			s.logger.Error("WidgetGeneration", "Failed to reset widget", map[string]interface{}{"widget_id": w.Id, "error": err.Error()})
			continue
		}

		if _, err := s.GenerateWidget(ctx, w.GlobalTagId); err != nil {
			result.Failed++
			s.logger.Error("WidgetGeneration", "Regeneration failed", map[string]interface{}{"widget_id": w.Id, "error": err.Error()})
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// buildDataItems serializes extracted items, assigning provenance by cycling
// through the category's conversations. Generation extracts from all
// transcripts in one call, so exact per-item attribution is best-effort.
func buildDataItems(widgetId uuid.UUID, raw []map[string]interface{}, conversationIds []uuid.UUID) ([]*entity.WidgetDataItem, error) {
	items := make([]*entity.WidgetDataItem, 0, len(raw))
	now := time.Now()
	for i, data := range raw {
		if len(data) == 0 {
			continue
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		var source *uuid.UUID
		if len(conversationIds) > 0 {
			id := conversationIds[i%len(conversationIds)]
			source = &id
		}
		items = append(items, &entity.WidgetDataItem{
			Id:                   uuid.New(),
			WidgetId:             widgetId,
			Data:                 payload,
			SourceConversationId: source,
			CreatedAt:            now,
		})
	}
	return items, nil
}

func (s *widgetGenerationService) publishStatus(ctx context.Context, eventType string, widgetId uuid.UUID, tag, detail string) {
	if s.eventPublisher == nil {
		return
	}
	data := map[string]interface{}{
		"widget_id": widgetId.String(),
		"tag":       tag,
	}
	if detail != "" {
		data["detail"] = detail
	}
	if err := s.eventPublisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Warn("WidgetGeneration", "Failed to publish status event", map[string]interface{}{"error": err.Error()})
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/pkg/lock"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/repository/specification"
	"ai-widgetchat-be/internal/repository/unitofwork"
	"ai-widgetchat-be/pkg/events"
	"ai-widgetchat-be/pkg/llm"
	"ai-widgetchat-be/pkg/llm/jsonutil"
	pktNats "ai-widgetchat-be/pkg/nats"
	"ai-widgetchat-be/pkg/widgets/match"

	"github.com/google/uuid"
)

// sampleItemLimit caps how many existing items are shown to the model as
// formatting examples.
const sampleItemLimit = 5

type IWidgetUpdateService interface {
	// UpdateWidgetData ingests one conversation into one widget: either a
	// list of data operations against the current schema, or a schema
	// evolution followed by full re-derivation.
	UpdateWidgetData(ctx context.Context, widgetId, conversationId uuid.UUID) (*dto.WidgetUpdateResult, error)
}

type widgetUpdateService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	leaser           *lock.Leaser
	pipelineCfg      config.PipelineConfig
	logger           logger.ILogger
}

func NewWidgetUpdateService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	leaser *lock.Leaser,
	pipelineCfg config.PipelineConfig,
	log logger.ILogger,
) IWidgetUpdateService {
	return &widgetUpdateService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		leaser:           leaser,
		pipelineCfg:      pipelineCfg,
		logger:           log,
	}
}

func (s *widgetUpdateService) UpdateWidgetData(ctx context.Context, widgetId, conversationId uuid.UUID) (*dto.WidgetUpdateResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: widgetId})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if widget == nil {
		return nil, serverutils.NewNotFoundError("widget")
	}
	if widget.Status != constant.WidgetStatusActive {
		s.logger.Info("WidgetUpdate", "Widget not active, skipping", map[string]interface{}{"widget_id": widgetId, "status": widget.Status})
		return &dto.WidgetUpdateResult{WidgetId: widgetId, Skipped: true}, nil
	}

	// The existence check alone races when two jobs for the same pair run
	// concurrently; the lease makes exactly one of them proceed.
	leaseKey := fmt.Sprintf("widget-update:%s:%s", widgetId, conversationId)
	acquired, err := s.leaser.Acquire(ctx, leaseKey, s.pipelineCfg.LeaseTTL)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if !acquired {
		return &dto.WidgetUpdateResult{WidgetId: widgetId, Skipped: true}, nil
	}
	defer s.leaser.Release(ctx, leaseKey)

	ingested, err := uow.WidgetDataItemRepository().ExistsByWidgetAndSource(ctx, widgetId, conversationId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if ingested {
		return &dto.WidgetUpdateResult{WidgetId: widgetId, Skipped: true}, nil
	}

	var schema dto.WidgetSchema
	if err := json.Unmarshal(widget.Schema, &schema); err != nil {
		return nil, serverutils.NewPersistenceError(fmt.Errorf("widget %s carries undecodable schema: %w", widgetId, err))
	}
	dateField, ok := schema.DateField()
	if !ok {
		return nil, serverutils.NewPersistenceError(fmt.Errorf("widget %s schema has no date field", widgetId))
	}

	items, err := uow.WidgetDataItemRepository().FindAllByWidgetId(ctx, widgetId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	messages, err := uow.ConversationMessageRepository().FindAllByConversationId(ctx, conversationId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if len(messages) == 0 {
		return &dto.WidgetUpdateResult{WidgetId: widgetId, Skipped: true}, nil
	}

	analysis, err := s.analyze(ctx, widget, &schema, items, messages)
	if err != nil {
		return nil, err
	}

	var result *dto.WidgetUpdateResult
	if analysis.SchemaChanged {
		result, err = s.evolveSchema(ctx, uow, widget, &schema, analysis)
	} else {
		matcher := match.NewMatcher(dateField, s.pipelineCfg.TypeFields)
		result, err = s.applyOperations(ctx, uow, widget, matcher, items, analysis.Operations, conversationId)
	}
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewEvent(constant.EventWidgetDataChange, map[string]interface{}{
			"widget_id":      widgetId.String(),
			"schema_evolved": result.SchemaEvolved,
			"added":          result.Added,
			"updated":        result.Updated,
			"deleted":        result.Deleted,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("WidgetUpdate", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}

	return result, nil
}

func (s *widgetUpdateService) analyze(ctx context.Context, widget *entity.Widget, schema *dto.WidgetSchema, items []*entity.WidgetDataItem, messages []*entity.ConversationMessage) (*dto.UpdateAnalysisOutput, error) {
	schemaJson, err := json.Marshal(schema)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	sample := make([]map[string]interface{}, 0, sampleItemLimit)
	for _, item := range items {
		if len(sample) == sampleItemLimit {
			break
		}
		if data := item.DataMap(); data != nil {
			sample = append(sample, data)
		}
	}
	sampleJson, err := json.Marshal(sample)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	prompt := fmt.Sprintf(constant.WidgetUpdatePrompt,
		widget.Name,
		string(schemaJson),
		string(sampleJson),
		truncate(renderDatedTranscript(messages), 24000),
	)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return nil, serverutils.NewUpstreamError("widget update completion failed", err)
	}

	var analysis dto.UpdateAnalysisOutput
	if err := jsonutil.UnmarshalObject(response, &analysis); err != nil {
		return nil, serverutils.NewUpstreamError("widget update returned malformed output", err)
	}
	return &analysis, nil
}

// evolveSchema persists the widened schema and component first, then wipes
// the data and re-queues every linked conversation. Persist-first ordering
// means a crash mid-wipe re-derives against the new schema, never the old.
func (s *widgetUpdateService) evolveSchema(ctx context.Context, uow unitofwork.UnitOfWork, widget *entity.Widget, oldSchema *dto.WidgetSchema, analysis *dto.UpdateAnalysisOutput) (*dto.WidgetUpdateResult, error) {
	if analysis.Schema == nil {
		return nil, serverutils.NewUpstreamError("schema change without a new schema", nil)
	}
	if err := analysis.Schema.Validate(); err != nil {
		return nil, serverutils.NewUpstreamError("evolved schema is invalid", err)
	}
	if !analysis.Schema.IsSupersetOf(oldSchema) {
		return nil, serverutils.NewUpstreamError("evolved schema drops, retypes, or requires fields old items lack", nil)
	}
	if analysis.Component == "" {
		return nil, serverutils.NewUpstreamError("schema change without a regenerated component", nil)
	}

	schemaJson, err := json.Marshal(analysis.Schema)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	componentJson, err := json.Marshal(analysis.Component)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	now := time.Now()
	widget.Schema = schemaJson
	widget.Component = componentJson
	widget.SchemaVersion++
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
	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	mappings, err := uow.ConversationGlobalTagRepository().FindAllByGlobalTagId(ctx, widget.GlobalTagId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	var delay time.Duration
	retriggered := 0
	for _, m := range mappings {
		if err := s.publisherService.Publish(ctx, dto.PipelineJob{
			Type:           constant.JobTypeWidgetUpdate,
			WidgetId:       widget.Id,
			ConversationId: m.ConversationId,
			Delay:          delay,
		}); err != nil {
			s.logger.Error("WidgetUpdate", "Failed to re-queue conversation after evolution", map[string]interface{}{
				"widget_id":       widget.Id,
				"conversation_id": m.ConversationId,
				"error":           err.Error(),
			})
			continue
		}
		retriggered++
		delay += s.pipelineCfg.UpdateStagger
	}

	s.logger.Info("WidgetUpdate", "Schema evolved", map[string]interface{}{
		"widget_id":      widget.Id,
		"schema_version": widget.SchemaVersion,
		"retriggered":    retriggered,
	})

	return &dto.WidgetUpdateResult{
		WidgetId:      widget.Id,
		SchemaEvolved: true,
		Retriggered:   retriggered,
	}, nil
}

func (s *widgetUpdateService) applyOperations(ctx context.Context, uow unitofwork.UnitOfWork, widget *entity.Widget, matcher *match.Matcher, items []*entity.WidgetDataItem, operations []dto.DataOperation, conversationId uuid.UUID) (*dto.WidgetUpdateResult, error) {
	result := &dto.WidgetUpdateResult{WidgetId: widget.Id}

	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	// Live view of item payloads; mutated as operations apply so later
	// operations in the same batch see earlier ones.
	type liveItem struct {
		entity *entity.WidgetDataItem
		data   map[string]interface{}
	}
	live := make([]*liveItem, 0, len(items))
	for _, item := range items {
		live = append(live, &liveItem{entity: item, data: item.DataMap()})
	}

	findIndex := func(targetDate, targetType string) int {
		for i, li := range live {
			if li == nil || li.data == nil {
				continue
			}
			if matcher.Matches(li.data, targetDate, targetType) {
				return i
			}
		}
		return -1
	}

	insert := func(data map[string]interface{}) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		src := conversationId
		item := &entity.WidgetDataItem{
			Id:                   uuid.New(),
			WidgetId:             widget.Id,
			Data:                 payload,
			SourceConversationId: &src,
			CreatedAt:            time.Now(),
		}
		if err := uow.WidgetDataItemRepository().Create(ctx, item); err != nil {
			return err
		}
		live = append(live, &liveItem{entity: item, data: data})
		return nil
	}

	for _, op := range operations {
		switch op.Op {
		case constant.DataOpAdd:
			if len(op.Data) == 0 {
				continue
			}
			if err := insert(op.Data); err != nil {
				return nil, serverutils.NewPersistenceError(err)
			}
			result.Added++

		case constant.DataOpUpdate:
			if len(op.Data) == 0 {
				continue
			}
			idx := findIndex(op.TargetDate, op.TargetType)
			if idx == -1 {
				// Update miss falls back to insert: the model saw data the
				// store does not have yet.
				if err := insert(op.Data); err != nil {
					return nil, serverutils.NewPersistenceError(err)
				}
				result.Added++
				continue
			}
			payload, err := json.Marshal(op.Data)
			if err != nil {
				return nil, serverutils.NewPersistenceError(err)
			}
			target := live[idx].entity
			now := time.Now()
			src := conversationId
			target.Data = payload
			target.SourceConversationId = &src
			target.UpdatedAt = &now
			if err := uow.WidgetDataItemRepository().Update(ctx, target); err != nil {
				return nil, serverutils.NewPersistenceError(err)
			}
			live[idx].data = op.Data
			result.Updated++

		case constant.DataOpDelete:
			idx := findIndex(op.TargetDate, op.TargetType)
			if idx == -1 {
				continue // delete miss is a no-op, not an error
			}
			if err := uow.WidgetDataItemRepository().Delete(ctx, live[idx].entity.Id); err != nil {
				return nil, serverutils.NewPersistenceError(err)
			}
			live[idx] = nil
			result.Deleted++

		default:
			s.logger.Warn("WidgetUpdate", "Unknown operation kind", map[string]interface{}{"op": op.Op})
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	s.logger.Info("WidgetUpdate", "Operations applied", map[string]interface{}{
		"widget_id": widget.Id,
		"added":     result.Added,
		"updated":   result.Updated,
		"deleted":   result.Deleted,
	})

	return result, nil
}

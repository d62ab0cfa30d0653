package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-widgetchat-be/internal/config"
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

const clusteringGuardKey = "tag-clustering"

type ITagClusteringService interface {
	// ClusterTags runs the global clustering round: every tagged conversation
	// is (re)assigned to category tags, and downstream widget jobs are
	// scheduled for the affected categories.
	ClusterTags(ctx context.Context) (*dto.TagClusteringResult, error)
}

type tagClusteringService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	guard            *memory.GenerationGuard
	pipelineCfg      config.PipelineConfig
	logger           logger.ILogger
}

func NewTagClusteringService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	guard *memory.GenerationGuard,
	pipelineCfg config.PipelineConfig,
	log logger.ILogger,
) ITagClusteringService {
	return &tagClusteringService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		guard:            guard,
		pipelineCfg:      pipelineCfg,
		logger:           log,
	}
}

func (s *tagClusteringService) ClusterTags(ctx context.Context) (*dto.TagClusteringResult, error) {
	// Clustering is global: overlapping runs would race on the delete/insert
	// of the mapping table, so a second trigger while one is running is a
	// no-op. The next extraction will schedule a fresh round anyway.
	if !s.guard.TryAcquire(clusteringGuardKey) {
		s.logger.Info("TagClustering", "Clustering already running, skipping", nil)
		return &dto.TagClusteringResult{}, nil
	}
	defer s.guard.Release(clusteringGuardKey)

	uow := s.uowFactory.NewUnitOfWork(ctx)

	allTags, err := uow.ConversationTagRepository().FindAll(ctx)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if len(allTags) == 0 {
		return &dto.TagClusteringResult{}, nil
	}

	tagsByConversation := make(map[uuid.UUID][]string)
	for _, t := range allTags {
		tagsByConversation[t.ConversationId] = append(tagsByConversation[t.ConversationId], t.Tag)
	}

	existing, err := uow.GlobalTagRepository().FindAll(ctx)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	prompt := fmt.Sprintf(constant.TagClusteringPrompt,
		renderConversationTags(tagsByConversation),
		renderCategoryList(existing),
	)

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.1))
	if err != nil {
		return nil, serverutils.NewUpstreamError("tag clustering completion failed", err)
	}

	var output dto.TagClusteringOutput
	if err := jsonutil.UnmarshalObject(response, &output); err != nil {
		return nil, serverutils.NewUpstreamError("tag clustering returned malformed output", err)
	}

	result := &dto.TagClusteringResult{}
	touchedCategories := make(map[uuid.UUID]bool)

	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	for _, assignment := range output.Assignments {
		conversationId, err := uuid.Parse(assignment.ConversationId)
		if err != nil {
			s.logger.Warn("TagClustering", "Model returned unparseable conversation id", map[string]interface{}{"value": assignment.ConversationId})
			continue
		}
		if _, known := tagsByConversation[conversationId]; !known {
			// Hallucinated id: never write mappings for conversations that
			// were not in the input.
			continue
		}

		categoryIds := make([]uuid.UUID, 0, len(assignment.Categories))
		seen := make(map[uuid.UUID]bool)
		for _, category := range assignment.Categories {
			category = strings.TrimSpace(category)
			if category == "" {
				continue
			}

			globalTag, created, err := s.upsertGlobalTag(ctx, uow, category)
			if err != nil {
				return nil, serverutils.NewPersistenceError(err)
			}
			if created {
				result.CategoriesCreated++
			}
			if !seen[globalTag.Id] {
				seen[globalTag.Id] = true
				categoryIds = append(categoryIds, globalTag.Id)
				touchedCategories[globalTag.Id] = true
			}
		}

		if len(categoryIds) == 0 {
			continue
		}

		// Mappings are rebuilt wholesale per conversation so re-clustering
		// can move a conversation between categories.
		if err := uow.ConversationGlobalTagRepository().DeleteByConversationId(ctx, conversationId); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}

		mappings := make([]*entity.ConversationGlobalTag, 0, len(categoryIds))
		for _, gtId := range categoryIds {
			mappings = append(mappings, &entity.ConversationGlobalTag{
				Id:             uuid.New(),
				ConversationId: conversationId,
				GlobalTagId:    gtId,
				CreatedAt:      time.Now(),
			})
		}
		if err := uow.ConversationGlobalTagRepository().CreateBulk(ctx, mappings); err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}

		result.Conversations++
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	total, err := uow.GlobalTagRepository().FindAll(ctx)
	if err == nil {
		result.CategoriesTotal = len(total)
	}

	if err := s.scheduleWidgetJobs(ctx, uow, touchedCategories, result); err != nil {
		return nil, err
	}

	s.logger.Info("TagClustering", "Clustering round complete", map[string]interface{}{
		"conversations":      result.Conversations,
		"categories_created": result.CategoriesCreated,
		"generations":        result.GenerationsTriggered,
		"updates":            result.UpdatesTriggered,
	})

	if s.eventPublisher != nil {
		evt := events.NewEvent(constant.EventTagsClustered, map[string]interface{}{
			"conversations":      result.Conversations,
			"categories_created": result.CategoriesCreated,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("TagClustering", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}

	return result, nil
}

// upsertGlobalTag inserts a category only when no row carries that exact tag
// text. Prompt instructions make the model reuse existing text verbatim, so
// exact-match lookup is the natural key.
func (s *tagClusteringService) upsertGlobalTag(ctx context.Context, uow unitofwork.UnitOfWork, tag string) (*entity.GlobalTag, bool, error) {
	found, err := uow.GlobalTagRepository().FindByExactTag(ctx, tag)
	if err != nil {
		return nil, false, err
	}
	if found != nil {
		return found, false, nil
	}

	globalTag := &entity.GlobalTag{
		Id:        uuid.New(),
		Tag:       tag,
		CreatedAt: time.Now(),
	}
	if err := uow.GlobalTagRepository().Create(ctx, globalTag); err != nil {
		return nil, false, err
	}
	return globalTag, true, nil
}

// scheduleWidgetJobs fans out per-category work: categories without an active
// widget get a generation job, so a widget stuck in error after a failed run
// gets rebuilt on the next clustering round; categories with an active one get
// staggered update jobs for each mapped conversation. The updater's
// idempotency guard makes re-publishing pairs that were already ingested
// harmless.
func (s *tagClusteringService) scheduleWidgetJobs(ctx context.Context, uow unitofwork.UnitOfWork, categories map[uuid.UUID]bool, result *dto.TagClusteringResult) error {
	for globalTagId := range categories {
		widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByGlobalTagID{GlobalTagID: globalTagId})
		if err != nil {
			return serverutils.NewPersistenceError(err)
		}

		if widget == nil || widget.Status != constant.WidgetStatusActive {
			if err := s.publisherService.Publish(ctx, dto.PipelineJob{
				Type:        constant.JobTypeWidgetGeneration,
				GlobalTagId: globalTagId,
			}); err != nil {
				return serverutils.NewPersistenceError(err)
			}
			result.GenerationsTriggered++
			continue
		}

		mappings, err := uow.ConversationGlobalTagRepository().FindAllByGlobalTagId(ctx, globalTagId)
		if err != nil {
			return serverutils.NewPersistenceError(err)
		}

		var delay time.Duration
		for _, m := range mappings {
			if err := s.publisherService.Publish(ctx, dto.PipelineJob{
				Type:           constant.JobTypeWidgetUpdate,
				WidgetId:       widget.Id,
				ConversationId: m.ConversationId,
				Delay:          delay,
			}); err != nil {
				return serverutils.NewPersistenceError(err)
			}
			result.UpdatesTriggered++
			delay += s.pipelineCfg.UpdateStagger
		}
	}
	return nil
}

func renderConversationTags(tagsByConversation map[uuid.UUID][]string) string {
	var b strings.Builder
	for id, tags := range tagsByConversation {
		b.WriteString(fmt.Sprintf("- conversation_id: %s\n", id))
		for _, t := range tags {
			b.WriteString(fmt.Sprintf("  - %s\n", t))
		}
	}
	return b.String()
}

func renderCategoryList(existing []*entity.GlobalTag) string {
	if len(existing) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for _, gt := range existing {
		b.WriteString(fmt.Sprintf("- %s\n", gt.Tag))
	}
	return b.String()
}

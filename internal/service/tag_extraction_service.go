package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/repository/specification"
	"ai-widgetchat-be/internal/repository/unitofwork"
	"ai-widgetchat-be/pkg/events"
	"ai-widgetchat-be/pkg/llm"
	"ai-widgetchat-be/pkg/llm/jsonutil"
	pktNats "ai-widgetchat-be/pkg/nats"

	"github.com/google/uuid"
)

type ITagExtractionService interface {
	// ExtractTags derives intent tags for one conversation and schedules the
	// global clustering round.
	ExtractTags(ctx context.Context, conversationId uuid.UUID) (*dto.TagExtractionResult, error)
}

type tagExtractionService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewTagExtractionService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITagExtractionService {
	return &tagExtractionService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

func (s *tagExtractionService) ExtractTags(ctx context.Context, conversationId uuid.UUID) (*dto.TagExtractionResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if conversation == nil {
		return nil, serverutils.NewNotFoundError("conversation")
	}

	messages, err := uow.ConversationMessageRepository().FindAllByConversationId(ctx, conversationId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if len(messages) == 0 {
		return nil, serverutils.NewValidationError("conversation has no messages")
	}

	prompt := fmt.Sprintf(constant.TagExtractionPrompt, truncate(renderTranscript(messages), 24000))

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return nil, serverutils.NewUpstreamError("tag extraction completion failed", err)
	}

	var output dto.TagExtractionOutput
	if err := jsonutil.UnmarshalObject(response, &output); err != nil {
		return nil, serverutils.NewUpstreamError("tag extraction returned malformed output", err)
	}

	tags := normalizeTags(output.Tags)
	if len(tags) == 0 {
		return nil, serverutils.NewUpstreamError("tag extraction produced no tags", nil)
	}

	// Tags are replaced wholesale: re-running on an edited conversation must
	// not accumulate stale intent sentences.
	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.ConversationTagRepository().DeleteByConversationId(ctx, conversationId); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	newTags := buildConversationTags(conversationId, tags)
	if err := uow.ConversationTagRepository().CreateBulk(ctx, newTags); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	s.logger.Info("TagExtraction", "Tags extracted", map[string]interface{}{
		"conversation_id": conversationId,
		"count":           len(tags),
	})

	if s.eventPublisher != nil {
		evt := events.NewEvent(constant.EventTagsExtracted, map[string]interface{}{
			"conversation_id": conversationId.String(),
			"tags":            len(tags),
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("TagExtraction", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}

	// Round 1 always schedules Round 2: clustering is global and cheap to
	// coalesce, so every fresh tag set re-clusters.
	if err := s.publisherService.Publish(ctx, dto.PipelineJob{Type: constant.JobTypeTagClustering}); err != nil {
		s.logger.Error("TagExtraction", "Failed to schedule clustering", map[string]interface{}{"error": err.Error()})
	}

	return &dto.TagExtractionResult{
		ConversationId: conversationId,
		TagsProduced:   len(tags),
	}, nil
}

func buildConversationTags(conversationId uuid.UUID, tags []string) []*entity.ConversationTag {
	out := make([]*entity.ConversationTag, 0, len(tags))
	now := time.Now()
	for _, t := range tags {
		out = append(out, &entity.ConversationTag{
			Id:             uuid.New(),
			ConversationId: conversationId,
			Tag:            t,
			CreatedAt:      now,
		})
	}
	return out
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

package service

import (
	"context"
	"encoding/json"
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
	"ai-widgetchat-be/pkg/llm"
	"ai-widgetchat-be/pkg/stream"

	"github.com/google/uuid"
)

// FrameWriter delivers one SSE frame to the client. Returning an error stops
// the stream (client gone).
type FrameWriter func(frame dto.StreamFrame) error

type IChatService interface {
	// SendChat runs one conversation turn, streaming the assistant reply as
	// frames. A nil ConversationId starts a new conversation.
	SendChat(ctx context.Context, req *dto.SendChatRequest, write FrameWriter) error

	ListConversations(ctx context.Context) ([]*dto.ConversationSummaryResponse, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*dto.GetConversationResponse, error)
	RenameConversation(ctx context.Context, id uuid.UUID, req *dto.RenameConversationRequest) error
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	ListConversationsByWidget(ctx context.Context, widgetId uuid.UUID) ([]*dto.ConversationSummaryResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	publisherService IPublisherService
	locks            *memory.ConversationLocks
	pipelineCfg      config.PipelineConfig
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	publisherService IPublisherService,
	locks *memory.ConversationLocks,
	pipelineCfg config.PipelineConfig,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		publisherService: publisherService,
		locks:            locks,
		pipelineCfg:      pipelineCfg,
		logger:           log,
	}
}

func (s *chatService) SendChat(ctx context.Context, req *dto.SendChatRequest, write FrameWriter) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, isNew, err := s.resolveConversation(ctx, uow, req.ConversationId)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(conversation.Id.String())
	defer unlock()

	meta, _ := json.Marshal(map[string]string{"conversation_id": conversation.Id.String()})
	if err := write(dto.StreamFrame{Event: constant.StreamEventMeta, Data: string(meta)}); err != nil {
		return err
	}

	// The user's message is committed before the completion call and never
	// rolled back: a failed turn must not lose what the user typed.
	userMessage := &entity.ConversationMessage{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           constant.MessageRoleUser,
		Content:        req.Message,
		CreatedAt:      time.Now(),
	}
	if err := uow.ConversationMessageRepository().Create(ctx, userMessage); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	history, err := uow.ConversationMessageRepository().FindAllByConversationId(ctx, conversation.Id)
	if err != nil {
		return serverutils.NewPersistenceError(err)
	}

	llmMessages, err := s.buildHistory(ctx, uow, conversation, history)
	if err != nil {
		return err
	}

	scrubber := stream.NewScrubber(s.pipelineCfg.HiddenBlockMarker)
	fullReply, err := s.llmProvider.ChatStream(ctx, llmMessages, func(token string) error {
		visible := scrubber.Feed(token)
		if visible == "" {
			return nil
		}
		return write(dto.StreamFrame{Event: constant.StreamEventToken, Data: visible})
	})
	if err != nil {
		s.writeError(write, "completion failed")
		return serverutils.NewUpstreamError("chat completion failed", err)
	}
	if tail := scrubber.Flush(); tail != "" {
		if err := write(dto.StreamFrame{Event: constant.StreamEventToken, Data: tail}); err != nil {
			return err
		}
	}

	// The stored reply keeps the hidden block so the pipeline can read it
	// later; only the stream is scrubbed.
	assistantMessage := &entity.ConversationMessage{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           constant.MessageRoleAssistant,
		Content:        fullReply,
		CreatedAt:      time.Now(),
	}
	if err := uow.ConversationMessageRepository().Create(ctx, assistantMessage); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	if isNew || conversation.Title == constant.UntitledConversation {
		if title := s.generateTitle(ctx, req.Message, fullReply); title != "" {
			conversation.Title = title
			now := time.Now()
			conversation.UpdatedAt = &now
			if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
				s.logger.Warn("Chat", "Failed to persist generated title", map[string]interface{}{"error": err.Error()})
			} else if err := write(dto.StreamFrame{Event: constant.StreamEventTitle, Data: title}); err != nil {
				return err
			}
		}
	}

	if err := write(dto.StreamFrame{Event: constant.StreamEventDone, Data: "{}"}); err != nil {
		return err
	}

	// Fire-and-forget: the derivation pipeline runs behind the queue and
	// never blocks the chat turn.
	if err := s.publisherService.Publish(ctx, dto.PipelineJob{
		Type:           constant.JobTypeTagExtraction,
		ConversationId: conversation.Id,
	}); err != nil {
		s.logger.Error("Chat", "Failed to schedule tag extraction", map[string]interface{}{
			"conversation_id": conversation.Id,
			"error":           err.Error(),
		})
	}

	return nil
}

func (s *chatService) resolveConversation(ctx context.Context, uow unitofwork.UnitOfWork, id *uuid.UUID) (*entity.Conversation, bool, error) {
	if id == nil {
		conversation := &entity.Conversation{
			Id:        uuid.New(),
			Title:     constant.UntitledConversation,
			CreatedAt: time.Now(),
		}
		if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
			return nil, false, serverutils.NewPersistenceError(err)
		}
		return conversation, true, nil
	}

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: *id})
	if err != nil {
		return nil, false, serverutils.NewPersistenceError(err)
	}
	if conversation == nil {
		return nil, false, serverutils.NewNotFoundError("conversation")
	}
	return conversation, false, nil
}

// buildHistory maps stored messages to provider messages, prefixed by the
// system persona. Widget-sourced conversations get the hidden-block
// instructions instead of the plain persona.
func (s *chatService) buildHistory(ctx context.Context, uow unitofwork.UnitOfWork, conversation *entity.Conversation, history []*entity.ConversationMessage) ([]llm.Message, error) {
	systemPrompt := constant.ChatSystemPrompt
	if conversation.SourceWidgetId != nil {
		widget, err := uow.WidgetRepository().FindOne(ctx, specification.ByID{ID: *conversation.SourceWidgetId})
		if err != nil {
			return nil, serverutils.NewPersistenceError(err)
		}
		if widget != nil {
			systemPrompt = fmt.Sprintf(constant.WidgetChatSystemPrompt, widget.Name, s.pipelineCfg.HiddenBlockMarker)
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: constant.MessageRoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages, nil
}

func (s *chatService) generateTitle(ctx context.Context, userMessage, reply string) string {
	prompt := fmt.Sprintf(constant.TitleGenerationPrompt,
		truncate(userMessage, 2000),
		truncate(reply, 2000),
	)
	title, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.5), llm.WithMaxTokens(30))
	if err != nil {
		s.logger.Warn("Chat", "Title generation failed", map[string]interface{}{"error": err.Error()})
		return ""
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return ""
	}
	if len(title) > 200 {
		title = title[:200]
	}
	return title
}

func (s *chatService) writeError(write FrameWriter, message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	if err := write(dto.StreamFrame{Event: constant.StreamEventError, Data: string(payload)}); err != nil {
		s.logger.Warn("Chat", "Failed to deliver error frame", map[string]interface{}{"error": err.Error()})
	}
}

func (s *chatService) ListConversations(ctx context.Context) ([]*dto.ConversationSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	return toSummaries(conversations), nil
}

func (s *chatService) GetConversation(ctx context.Context, id uuid.UUID) (*dto.GetConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	if conversation == nil {
		return nil, serverutils.NewNotFoundError("conversation")
	}

	messages, err := uow.ConversationMessageRepository().FindAllByConversationId(ctx, id)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}

	res := &dto.GetConversationResponse{
		Id:             conversation.Id,
		Title:          conversation.Title,
		SourceWidgetId: conversation.SourceWidgetId,
		CreatedAt:      conversation.CreatedAt,
		Messages:       make([]dto.ConversationMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.ConversationMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) RenameConversation(ctx context.Context, id uuid.UUID, req *dto.RenameConversationRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if conversation == nil {
		return serverutils.NewNotFoundError("conversation")
	}

	now := time.Now()
	conversation.Title = req.Title
	conversation.UpdatedAt = &now
	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	return nil
}

// DeleteConversation removes the conversation and its derived state:
// messages, tags, and category links. Widget data items keep their rows —
// the extracted facts outlive the source; the provenance FK nulls out when
// soft-deleted conversations are eventually purged.
func (s *chatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if conversation == nil {
		return serverutils.NewNotFoundError("conversation")
	}

	if err := uow.Begin(ctx); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	defer uow.Rollback()

	if err := uow.ConversationMessageRepository().DeleteByConversationId(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.ConversationTagRepository().DeleteByConversationId(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.ConversationGlobalTagRepository().DeleteByConversationId(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}
	if err := uow.ConversationRepository().Delete(ctx, id); err != nil {
		return serverutils.NewPersistenceError(err)
	}

	return uow.Commit()
}

func (s *chatService) ListConversationsByWidget(ctx context.Context, widgetId uuid.UUID) ([]*dto.ConversationSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindBySourceWidgetId(ctx, widgetId)
	if err != nil {
		return nil, serverutils.NewPersistenceError(err)
	}
	return toSummaries(conversations), nil
}

func toSummaries(conversations []*entity.Conversation) []*dto.ConversationSummaryResponse {
	out := make([]*dto.ConversationSummaryResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, &dto.ConversationSummaryResponse{
			Id:        c.Id,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return out
}

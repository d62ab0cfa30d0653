package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatService(store *fakeStore, llmFake *fakeLLM, pub *capturingPublisher) IChatService {
	return NewChatService(newFakeUowFactory(store), llmFake, pub,
		memory.NewConversationLocks(), testPipelineConfig(), noopLogger{})
}

func collectFrames(frames *[]dto.StreamFrame) FrameWriter {
	return func(frame dto.StreamFrame) error {
		*frames = append(*frames, frame)
		return nil
	}
}

func framesOfEvent(frames []dto.StreamFrame, event string) []dto.StreamFrame {
	var out []dto.StreamFrame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func TestSendChatNewConversation(t *testing.T) {
	store := newFakeStore()
	llmFake := &fakeLLM{responses: []string{
		"A salad is roughly 470 kcal.",
		`"Lunch calories"`,
	}}
	pub := &capturingPublisher{}
	svc := newTestChatService(store, llmFake, pub)

	var frames []dto.StreamFrame
	err := svc.SendChat(context.Background(),
		&dto.SendChatRequest{Message: "How many calories in a salad?"},
		collectFrames(&frames))
	require.NoError(t, err)

	// A conversation row was created with the generated title.
	require.Len(t, store.conversations, 1)
	conv := store.conversations[0]
	assert.Equal(t, "Lunch calories", conv.Title)

	// User and assistant turns are both persisted.
	require.Len(t, store.messages, 2)
	assert.Equal(t, constant.MessageRoleUser, store.messages[0].Role)
	assert.Equal(t, constant.MessageRoleAssistant, store.messages[1].Role)
	assert.Equal(t, "A salad is roughly 470 kcal.", store.messages[1].Content)

	// Frame order: meta first, then tokens, then title and done.
	require.NotEmpty(t, frames)
	assert.Equal(t, constant.StreamEventMeta, frames[0].Event)
	assert.Contains(t, frames[0].Data, conv.Id.String())

	var streamed strings.Builder
	for _, f := range framesOfEvent(frames, constant.StreamEventToken) {
		streamed.WriteString(f.Data)
	}
	assert.Equal(t, "A salad is roughly 470 kcal.", streamed.String())

	titles := framesOfEvent(frames, constant.StreamEventTitle)
	require.Len(t, titles, 1)
	assert.Equal(t, "Lunch calories", titles[0].Data)
	assert.Equal(t, constant.StreamEventDone, frames[len(frames)-1].Event)

	// The turn queued Round 1 for this conversation.
	jobs := pub.jobsOfType(constant.JobTypeTagExtraction)
	require.Len(t, jobs, 1)
	assert.Equal(t, conv.Id, jobs[0].ConversationId)
}

func TestSendChatScrubsHiddenBlockFromStream(t *testing.T) {
	store := newFakeStore()

	widget := seedActiveWidget(store)
	conv := &entity.Conversation{
		Id:             uuid.New(),
		Title:          "Calorie Tracker session",
		SourceWidgetId: &widget.Id,
		CreatedAt:      time.Now(),
	}
	store.conversations = append(store.conversations, conv)

	reply := "Logged your lunch!\n```widget-data\n{\"op\": \"add\", \"data\": {\"calories\": 470}}\n```"
	llmFake := &fakeLLM{responses: []string{reply}}
	pub := &capturingPublisher{}
	svc := newTestChatService(store, llmFake, pub)

	var frames []dto.StreamFrame
	err := svc.SendChat(context.Background(),
		&dto.SendChatRequest{ConversationId: &conv.Id, Message: "I had a salad, 470 kcal"},
		collectFrames(&frames))
	require.NoError(t, err)

	// The client only ever sees the visible prefix.
	var streamed strings.Builder
	for _, f := range framesOfEvent(frames, constant.StreamEventToken) {
		assert.NotContains(t, f.Data, "widget-data")
		streamed.WriteString(f.Data)
	}
	assert.Equal(t, "Logged your lunch!\n", streamed.String())

	// The stored reply keeps the hidden block for the pipeline.
	require.Len(t, store.messages, 2)
	assert.Equal(t, reply, store.messages[1].Content)

	// The widget persona carries the hidden-block marker instruction.
	require.NotEmpty(t, llmFake.prompts)
	assert.Contains(t, llmFake.prompts[0], "```widget-data")
	assert.Contains(t, llmFake.prompts[0], widget.Name)
}

func TestSendChatUnknownConversation(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{}, &capturingPublisher{})

	missing := uuid.New()
	var frames []dto.StreamFrame
	err := svc.SendChat(context.Background(),
		&dto.SendChatRequest{ConversationId: &missing, Message: "hello"},
		collectFrames(&frames))
	assert.Error(t, err)
	assert.Empty(t, frames)
}

func TestSendChatKeepsExistingTitle(t *testing.T) {
	store := newFakeStore()
	conv := seedConversation(store, "My named chat")

	llmFake := &fakeLLM{responses: []string{"Sure thing."}}
	svc := newTestChatService(store, llmFake, &capturingPublisher{})

	var frames []dto.StreamFrame
	err := svc.SendChat(context.Background(),
		&dto.SendChatRequest{ConversationId: &conv.Id, Message: "thanks"},
		collectFrames(&frames))
	require.NoError(t, err)

	assert.Equal(t, "My named chat", conv.Title)
	assert.Empty(t, framesOfEvent(frames, constant.StreamEventTitle))
	// Only the streaming call hit the model; no title completion.
	assert.Len(t, llmFake.prompts, 1)
}

func TestDeleteConversationCascades(t *testing.T) {
	store := newFakeStore()
	conv := seedTaggedConversation(store, "user tracks meals")
	other := seedTaggedConversation(store, "user plans travel")

	category := &entity.GlobalTag{Id: uuid.New(), Tag: "Calorie Tracking"}
	store.globalTags = append(store.globalTags, category)
	store.mappings = append(store.mappings,
		&entity.ConversationGlobalTag{Id: uuid.New(), ConversationId: conv.Id, GlobalTagId: category.Id},
		&entity.ConversationGlobalTag{Id: uuid.New(), ConversationId: other.Id, GlobalTagId: category.Id},
	)

	svc := newTestChatService(store, &fakeLLM{}, &capturingPublisher{})
	require.NoError(t, svc.DeleteConversation(context.Background(), conv.Id))

	// Messages, tags, and category links for the deleted conversation are
	// gone; the sibling conversation is untouched.
	for _, m := range store.messages {
		assert.NotEqual(t, conv.Id, m.ConversationId)
	}
	for _, tag := range store.convTags {
		assert.NotEqual(t, conv.Id, tag.ConversationId)
	}
	require.Len(t, store.mappings, 1)
	assert.Equal(t, other.Id, store.mappings[0].ConversationId)
	require.Len(t, store.conversations, 1)
	assert.Equal(t, other.Id, store.conversations[0].Id)
}

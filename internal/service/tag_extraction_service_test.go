package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConversation(store *fakeStore, title string, contents ...string) *entity.Conversation {
	conv := &entity.Conversation{Id: uuid.New(), Title: title, CreatedAt: time.Now()}
	store.conversations = append(store.conversations, conv)
	for i, content := range contents {
		role := constant.MessageRoleUser
		if i%2 == 1 {
			role = constant.MessageRoleAssistant
		}
		store.messages = append(store.messages, &entity.ConversationMessage{
			Id:             uuid.New(),
			ConversationId: conv.Id,
			Role:           role,
			Content:        content,
			CreatedAt:      time.Now(),
		})
	}
	return conv
}

func TestExtractTagsReplacesPreviousTags(t *testing.T) {
	store := newFakeStore()
	conv := seedConversation(store, "Lunch",
		"I had a caesar salad for lunch, how many calories?",
		"Roughly 470 kcal.",
	)

	// Stale tags from an earlier run must not survive the re-run.
	store.convTags = append(store.convTags, &entity.ConversationTag{
		Id:             uuid.New(),
		ConversationId: conv.Id,
		Tag:            "user asks about old topic",
	})

	llmFake := &fakeLLM{responses: []string{
		`{"tags": ["user tracks meal calories", "User Tracks Meal Calories", "user asks about lunch options", ""]}`,
	}}
	pub := &capturingPublisher{}
	svc := NewTagExtractionService(newFakeUowFactory(store), llmFake, pub, nil, noopLogger{})

	result, err := svc.ExtractTags(context.Background(), conv.Id)
	require.NoError(t, err)

	// Duplicate differing only in case and the empty string are dropped.
	assert.Equal(t, 2, result.TagsProduced)

	tags := make([]string, 0, len(store.convTags))
	for _, tag := range store.convTags {
		assert.Equal(t, conv.Id, tag.ConversationId)
		tags = append(tags, tag.Tag)
	}
	assert.ElementsMatch(t, []string{"user tracks meal calories", "user asks about lunch options"}, tags)

	// Round 1 always schedules Round 2.
	clustering := pub.jobsOfType(constant.JobTypeTagClustering)
	require.Len(t, clustering, 1)
}

func TestExtractTagsUnknownConversation(t *testing.T) {
	store := newFakeStore()
	svc := NewTagExtractionService(newFakeUowFactory(store), &fakeLLM{}, &capturingPublisher{}, nil, noopLogger{})

	_, err := svc.ExtractTags(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestExtractTagsEmptyConversationRejected(t *testing.T) {
	store := newFakeStore()
	conv := seedConversation(store, "Empty")

	llmFake := &fakeLLM{}
	pub := &capturingPublisher{}
	svc := NewTagExtractionService(newFakeUowFactory(store), llmFake, pub, nil, noopLogger{})

	_, err := svc.ExtractTags(context.Background(), conv.Id)
	require.Error(t, err)
	appErr, ok := serverutils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, llmFake.prompts, "no completion call for an empty conversation")
	assert.Empty(t, pub.jobs)
}

func TestExtractTagsMalformedModelOutput(t *testing.T) {
	store := newFakeStore()
	conv := seedConversation(store, "Lunch", "hello", "hi")

	svc := NewTagExtractionService(newFakeUowFactory(store),
		&fakeLLM{responses: []string{"I could not find any tags, sorry!"}},
		&capturingPublisher{}, nil, noopLogger{})

	_, err := svc.ExtractTags(context.Background(), conv.Id)
	assert.Error(t, err)
	assert.Empty(t, store.convTags, "nothing persisted on malformed output")
}

package service

import (
	"context"
	"testing"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calorieWidgetSpec = `{
	"name": "Calorie Tracker",
	"description": "Meals and calories over time",
	"schema": {"fields": [
		{"name": "date", "type": "date", "required": true},
		{"name": "meal", "type": "string", "required": true},
		{"name": "calories", "type": "number", "required": true}
	]},
	"component": "<CalorieTable items={items} />",
	"items": [
		{"date": "2026-08-27", "meal": "lunch", "calories": 600},
		{"date": "2026-08-28", "meal": "breakfast", "calories": 350},
		{"date": "2026-08-28", "meal": "dinner", "calories": 800}
	]
}`

// seedCategory links n tagged conversations to a fresh category.
func seedCategory(store *fakeStore, tag string, conversations int) *entity.GlobalTag {
	category := &entity.GlobalTag{Id: uuid.New(), Tag: tag, CreatedAt: time.Now()}
	store.globalTags = append(store.globalTags, category)
	for i := 0; i < conversations; i++ {
		conv := seedTaggedConversation(store, "user tracks "+tag)
		store.mappings = append(store.mappings, &entity.ConversationGlobalTag{
			Id:             uuid.New(),
			ConversationId: conv.Id,
			GlobalTagId:    category.Id,
		})
	}
	return category
}

func newGenerationService(store *fakeStore, llmFake *fakeLLM) IWidgetGenerationService {
	return NewWidgetGenerationService(newFakeUowFactory(store), llmFake, nil,
		memory.NewGenerationGuard(), noopLogger{})
}

func TestGenerateWidgetCreatesActiveWidgetWithItems(t *testing.T) {
	store := newFakeStore()
	category := seedCategory(store, "Calorie Tracking", 2)

	svc := newGenerationService(store, &fakeLLM{responses: []string{calorieWidgetSpec}})

	result, err := svc.GenerateWidget(context.Background(), category.Id)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 3, result.ItemsExtracted)

	require.Len(t, store.widgets, 1)
	widget := store.widgets[0]
	assert.Equal(t, constant.WidgetStatusActive, widget.Status)
	assert.Equal(t, "Calorie Tracker", widget.Name)
	assert.Equal(t, 1, widget.SchemaVersion)
	assert.NotEmpty(t, widget.Schema)
	assert.NotEmpty(t, widget.Component)

	// Provenance is spread round-robin across the source conversations.
	require.Len(t, store.items, 3)
	sources := make(map[uuid.UUID]int)
	for _, item := range store.items {
		assert.Equal(t, widget.Id, item.WidgetId)
		require.NotNil(t, item.SourceConversationId)
		sources[*item.SourceConversationId]++
	}
	assert.Len(t, sources, 2)
}

func TestGenerateWidgetSkipsActiveWidget(t *testing.T) {
	store := newFakeStore()
	category := seedCategory(store, "Workout Log", 1)
	store.widgets = append(store.widgets, &entity.Widget{
		Id:          uuid.New(),
		GlobalTagId: category.Id,
		Status:      constant.WidgetStatusActive,
	})

	llmFake := &fakeLLM{}
	svc := newGenerationService(store, llmFake)

	result, err := svc.GenerateWidget(context.Background(), category.Id)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, llmFake.prompts)
}

func TestGenerateWidgetRecordsErrorOnInvalidSchema(t *testing.T) {
	store := newFakeStore()
	category := seedCategory(store, "Sleep Tracking", 1)

	// No date-typed field: chronological display is impossible.
	svc := newGenerationService(store, &fakeLLM{responses: []string{`{
		"name": "Sleep",
		"schema": {"fields": [{"name": "hours", "type": "number"}]},
		"component": "<Sleep />",
		"items": []
	}`}})

	_, err := svc.GenerateWidget(context.Background(), category.Id)
	require.Error(t, err)

	require.Len(t, store.widgets, 1)
	assert.Equal(t, constant.WidgetStatusError, store.widgets[0].Status)
	assert.NotEmpty(t, store.widgets[0].ErrorDetail)
}

func TestGenerateWidgetUnknownCategory(t *testing.T) {
	store := newFakeStore()
	svc := newGenerationService(store, &fakeLLM{})

	_, err := svc.GenerateWidget(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestRegenerateAllContinuesPastFailures(t *testing.T) {
	store := newFakeStore()
	good := seedCategory(store, "Calorie Tracking", 1)
	bad := seedCategory(store, "Broken Category", 1)

	goodWidget := &entity.Widget{Id: uuid.New(), GlobalTagId: good.Id, Status: constant.WidgetStatusActive}
	badWidget := &entity.Widget{Id: uuid.New(), GlobalTagId: bad.Id, Status: constant.WidgetStatusActive}
	store.widgets = append(store.widgets, goodWidget, badWidget)

	// First regeneration succeeds, second returns prose instead of JSON.
	svc := newGenerationService(store, &fakeLLM{responses: []string{
		calorieWidgetSpec,
		"sorry, I cannot help with that",
	}})

	result, err := svc.RegenerateAllWidgets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	assert.Equal(t, constant.WidgetStatusActive, goodWidget.Status)
	assert.Equal(t, constant.WidgetStatusError, badWidget.Status)
}

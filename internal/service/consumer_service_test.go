package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageCalls struct {
	mu       sync.Mutex
	extract  []uuid.UUID
	cluster  int
	generate []uuid.UUID
	update   [][2]uuid.UUID
}

type stubStages struct{ calls *stageCalls }

func (s stubStages) ExtractTags(ctx context.Context, conversationId uuid.UUID) (*dto.TagExtractionResult, error) {
	s.calls.mu.Lock()
	defer s.calls.mu.Unlock()
	s.calls.extract = append(s.calls.extract, conversationId)
	return &dto.TagExtractionResult{ConversationId: conversationId}, nil
}

func (s stubStages) ClusterTags(ctx context.Context) (*dto.TagClusteringResult, error) {
	s.calls.mu.Lock()
	defer s.calls.mu.Unlock()
	s.calls.cluster++
	return &dto.TagClusteringResult{}, nil
}

func (s stubStages) GenerateWidget(ctx context.Context, globalTagId uuid.UUID) (*dto.WidgetGenerationResult, error) {
	s.calls.mu.Lock()
	defer s.calls.mu.Unlock()
	s.calls.generate = append(s.calls.generate, globalTagId)
	return &dto.WidgetGenerationResult{}, nil
}

func (s stubStages) RegenerateAllWidgets(ctx context.Context) (*dto.RegenerateAllResult, error) {
	return &dto.RegenerateAllResult{}, nil
}

func (s stubStages) UpdateWidgetData(ctx context.Context, widgetId, conversationId uuid.UUID) (*dto.WidgetUpdateResult, error) {
	s.calls.mu.Lock()
	defer s.calls.mu.Unlock()
	s.calls.update = append(s.calls.update, [2]uuid.UUID{widgetId, conversationId})
	return &dto.WidgetUpdateResult{WidgetId: widgetId}, nil
}

func TestConsumerDispatchesJobs(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	const topic = "pipeline_jobs_test"
	calls := &stageCalls{}
	stages := stubStages{calls: calls}

	consumer := NewConsumerService(pubSub, topic, stages, stages, stages, stages, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(topic, pubSub)
	convId := uuid.New()
	tagId := uuid.New()
	widgetId := uuid.New()

	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{Type: constant.JobTypeTagExtraction, ConversationId: convId}))
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{Type: constant.JobTypeTagClustering}))
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{Type: constant.JobTypeWidgetGeneration, GlobalTagId: tagId}))
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{Type: constant.JobTypeWidgetUpdate, WidgetId: widgetId, ConversationId: convId}))

	require.Eventually(t, func() bool {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		return len(calls.extract) == 1 && calls.cluster == 1 &&
			len(calls.generate) == 1 && len(calls.update) == 1
	}, 3*time.Second, 10*time.Millisecond)

	calls.mu.Lock()
	defer calls.mu.Unlock()
	assert.Equal(t, convId, calls.extract[0])
	assert.Equal(t, tagId, calls.generate[0])
	assert.Equal(t, [2]uuid.UUID{widgetId, convId}, calls.update[0])
}

func TestConsumerHonorsJobDelay(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	const topic = "pipeline_jobs_delay_test"
	calls := &stageCalls{}
	stages := stubStages{calls: calls}

	consumer := NewConsumerService(pubSub, topic, stages, stages, stages, stages, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(topic, pubSub)
	start := time.Now()
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{
		Type:  constant.JobTypeTagClustering,
		Delay: 150 * time.Millisecond,
	}))

	require.Eventually(t, func() bool {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		return calls.cluster == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestConsumerDelayedJobDoesNotStallOthers(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	const topic = "pipeline_jobs_stagger_test"
	calls := &stageCalls{}
	stages := stubStages{calls: calls}

	consumer := NewConsumerService(pubSub, topic, stages, stages, stages, stages, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(topic, pubSub)
	convId := uuid.New()

	// A staggered update burst followed by a fresh chat turn's extraction job:
	// the extraction must not wait out the stagger.
	start := time.Now()
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{
		Type:     constant.JobTypeWidgetUpdate,
		WidgetId: uuid.New(),
		Delay:    1 * time.Second,
	}))
	require.NoError(t, publisher.Publish(ctx, dto.PipelineJob{
		Type:           constant.JobTypeTagExtraction,
		ConversationId: convId,
	}))

	require.Eventually(t, func() bool {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		return len(calls.extract) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(start), 1*time.Second, "extraction ran before the delayed update's stagger elapsed")

	require.Eventually(t, func() bool {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		return len(calls.update) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 1*time.Second)
}

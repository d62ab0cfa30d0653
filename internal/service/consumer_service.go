package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub           *gochannel.GoChannel
	topicName        string
	tagExtraction    ITagExtractionService
	tagClustering    ITagClusteringService
	widgetGeneration IWidgetGenerationService
	widgetUpdate     IWidgetUpdateService
	logger           logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	tagExtraction ITagExtractionService,
	tagClustering ITagClusteringService,
	widgetGeneration IWidgetGenerationService,
	widgetUpdate IWidgetUpdateService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:           pubSub,
		topicName:        topicName,
		tagExtraction:    tagExtraction,
		tagClustering:    tagClustering,
		widgetGeneration: widgetGeneration,
		widgetUpdate:     widgetUpdate,
		logger:           log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.PipelineJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed payloads would retry forever
		return
	}

	// Staggered fan-out: the publisher spaces completion-call bursts by
	// attaching a delay rather than sleeping at publish time. The wait happens
	// off the consume loop so undelayed jobs keep draining in the meantime.
	if job.Delay > 0 {
		msg.Ack()
		go func() {
			select {
			case <-time.After(job.Delay):
				cs.dispatch(ctx, job)
			case <-ctx.Done():
			}
		}()
		return
	}

	cs.dispatch(ctx, job)
	msg.Ack()
}

func (cs *consumerService) dispatch(ctx context.Context, job dto.PipelineJob) {
	cs.logger.Info("Consumer", "Processing job", map[string]interface{}{
		"type":            job.Type,
		"conversation_id": job.ConversationId,
		"widget_id":       job.WidgetId,
	})

	var err error
	switch job.Type {
	case constant.JobTypeTagExtraction:
		_, err = cs.tagExtraction.ExtractTags(ctx, job.ConversationId)
	case constant.JobTypeTagClustering:
		_, err = cs.tagClustering.ClusterTags(ctx)
	case constant.JobTypeWidgetGeneration:
		_, err = cs.widgetGeneration.GenerateWidget(ctx, job.GlobalTagId)
	case constant.JobTypeWidgetUpdate:
		_, err = cs.widgetUpdate.UpdateWidgetData(ctx, job.WidgetId, job.ConversationId)
	default:
		cs.logger.Error("Consumer", "Unknown job type", map[string]interface{}{"type": job.Type})
		return
	}

	if err != nil {
		// Pipeline stages record their own failure state (widget status,
		// logs); re-delivering the job would re-run a completion call that
		// already failed, so failures are acked, not retried.
		cs.logger.Error("Consumer", "Job failed", map[string]interface{}{
			"type":  job.Type,
			"error": err.Error(),
		})
	}
}

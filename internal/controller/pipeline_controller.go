package controller

import (
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IPipelineController exposes synchronous triggers for each pipeline stage.
// Background invocations run through the job queue; these endpoints run the
// stage inline and return its counts, for debugging and manual repair.
type IPipelineController interface {
	RegisterRoutes(r fiber.Router)
	TriggerTagExtraction(ctx *fiber.Ctx) error
	TriggerTagClustering(ctx *fiber.Ctx) error
	TriggerWidgetGeneration(ctx *fiber.Ctx) error
	TriggerWidgetUpdate(ctx *fiber.Ctx) error
	RegenerateAll(ctx *fiber.Ctx) error
}

type pipelineController struct {
	tagExtraction    service.ITagExtractionService
	tagClustering    service.ITagClusteringService
	widgetGeneration service.IWidgetGenerationService
	widgetUpdate     service.IWidgetUpdateService
	authCfg          *config.AuthConfig
}

func NewPipelineController(
	tagExtraction service.ITagExtractionService,
	tagClustering service.ITagClusteringService,
	widgetGeneration service.IWidgetGenerationService,
	widgetUpdate service.IWidgetUpdateService,
	authCfg *config.AuthConfig,
) IPipelineController {
	return &pipelineController{
		tagExtraction:    tagExtraction,
		tagClustering:    tagClustering,
		widgetGeneration: widgetGeneration,
		widgetUpdate:     widgetUpdate,
		authCfg:          authCfg,
	}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/pipeline/v1")
	h.Use(serverutils.AuthGate(c.authCfg))
	h.Post("tag-extraction/:conversationId", c.TriggerTagExtraction)
	h.Post("tag-clustering", c.TriggerTagClustering)
	h.Post("widgets/regenerate-all", c.RegenerateAll)
	h.Post("widgets/:globalTagId/generate", c.TriggerWidgetGeneration)
	h.Post("widgets/:widgetId/conversations/:conversationId/update", c.TriggerWidgetUpdate)
}

func (c *pipelineController) TriggerTagExtraction(ctx *fiber.Ctx) error {
	conversationId, err := parseIdParam(ctx, "conversationId")
	if err != nil {
		return err
	}

	res, err := c.tagExtraction.ExtractTags(ctx.Context(), conversationId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Tag extraction complete", res))
}

func (c *pipelineController) TriggerTagClustering(ctx *fiber.Ctx) error {
	res, err := c.tagClustering.ClusterTags(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Tag clustering complete", res))
}

func (c *pipelineController) TriggerWidgetGeneration(ctx *fiber.Ctx) error {
	globalTagId, err := parseIdParam(ctx, "globalTagId")
	if err != nil {
		return err
	}

	res, err := c.widgetGeneration.GenerateWidget(ctx.Context(), globalTagId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Widget generation complete", res))
}

func (c *pipelineController) TriggerWidgetUpdate(ctx *fiber.Ctx) error {
	widgetId, err := parseIdParam(ctx, "widgetId")
	if err != nil {
		return err
	}
	conversationId, err := parseIdParam(ctx, "conversationId")
	if err != nil {
		return err
	}

	res, err := c.widgetUpdate.UpdateWidgetData(ctx.Context(), widgetId, conversationId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Widget update complete", res))
}

func (c *pipelineController) RegenerateAll(ctx *fiber.Ctx) error {
	res, err := c.widgetGeneration.RegenerateAllWidgets(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Regeneration complete", res))
}

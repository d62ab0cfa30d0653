package controller

import (
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IWidgetController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	ListItems(ctx *fiber.Ctx) error
	UpdateItem(ctx *fiber.Ctx) error
	UploadThumbnail(ctx *fiber.Ctx) error
	ListConversations(ctx *fiber.Ctx) error
}

type widgetController struct {
	widgetService service.IWidgetService
	chatService   service.IChatService
	authCfg       *config.AuthConfig
}

func NewWidgetController(widgetService service.IWidgetService, chatService service.IChatService, authCfg *config.AuthConfig) IWidgetController {
	return &widgetController{
		widgetService: widgetService,
		chatService:   chatService,
		authCfg:       authCfg,
	}
}

func (c *widgetController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/widget/v1")
	h.Use(serverutils.AuthGate(c.authCfg))
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Get(":id/items", c.ListItems)
	h.Put(":id/items/:itemId", c.UpdateItem)
	h.Post(":id/thumbnail", c.UploadThumbnail)
	h.Get(":id/conversations", c.ListConversations)
}

func parseIdParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, serverutils.NewValidationError("invalid " + name)
	}
	return id, nil
}

func (c *widgetController) List(ctx *fiber.Ctx) error {
	res, err := c.widgetService.ListWidgets(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list widgets", res))
}

func (c *widgetController) Show(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.widgetService.GetWidget(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get widget", res))
}

func (c *widgetController) Delete(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.widgetService.DeleteWidget(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete widget", nil))
}

func (c *widgetController) ListItems(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.widgetService.ListDataItems(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list widget items", res))
}

func (c *widgetController) UpdateItem(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}
	itemId, err := parseIdParam(ctx, "itemId")
	if err != nil {
		return err
	}

	var req dto.UpdateDataItemRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.widgetService.UpdateDataItem(ctx.Context(), id, itemId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update widget item", res))
}

func (c *widgetController) UploadThumbnail(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.widgetService.SaveThumbnail(ctx.Context(), id, ctx.Body())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success save thumbnail", res))
}

func (c *widgetController) ListConversations(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.chatService.ListConversationsByWidget(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list widget conversations", res))
}

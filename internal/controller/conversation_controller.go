package controller

import (
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type conversationController struct {
	chatService service.IChatService
	authCfg     *config.AuthConfig
}

func NewConversationController(chatService service.IChatService, authCfg *config.AuthConfig) IConversationController {
	return &conversationController{
		chatService: chatService,
		authCfg:     authCfg,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Use(serverutils.AuthGate(c.authCfg))
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Put(":id", c.Rename)
	h.Delete(":id", c.Delete)
}

func (c *conversationController) List(ctx *fiber.Ctx) error {
	res, err := c.chatService.ListConversations(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list conversations", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid conversation id")
	}

	res, err := c.chatService.GetConversation(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

func (c *conversationController) Rename(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid conversation id")
	}

	var req dto.RenameConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.RenameConversation(ctx.Context(), id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rename conversation", nil))
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.NewValidationError("invalid conversation id")
	}

	if err := c.chatService.DeleteConversation(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete conversation", nil))
}

package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	authCfg     *config.AuthConfig
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, authCfg *config.AuthConfig, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		authCfg:     authCfg,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.AuthGate(c.authCfg))
	h.Post("send", c.Send)
}

// Send streams the assistant reply as server-sent events:
// event:<name>\ndata:<json>\n\n with events meta, token, title, done, error.
func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The fasthttp request context dies with the handler, so the stream
	// writer runs against a detached context.
	streamCtx := context.Background()

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		write := func(frame dto.StreamFrame) error {
			if _, err := fmt.Fprintf(w, "event:%s\ndata:%s\n\n", frame.Event, frame.Data); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := c.chatService.SendChat(streamCtx, &req, write); err != nil {
			c.logger.Error("ChatController", "Chat turn failed", map[string]interface{}{"error": err.Error()})

			message := "chat failed"
			if appErr, ok := serverutils.AsAppError(err); ok {
				message = appErr.Message
			}
			payload, _ := json.Marshal(map[string]string{"message": message})
			_ = write(dto.StreamFrame{Event: constant.StreamEventError, Data: string(payload)})
		}
	}))

	return nil
}

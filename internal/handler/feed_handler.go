package handler

import (
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/pkg/logger"
	internalWS "ai-widgetchat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// FeedHandler upgrades authenticated clients onto the widget status feed.
type FeedHandler struct {
	hub     *internalWS.Hub
	authCfg *config.AuthConfig
	logger  logger.ILogger
}

func NewFeedHandler(hub *internalWS.Hub, authCfg *config.AuthConfig, log logger.ILogger) *FeedHandler {
	return &FeedHandler{
		hub:     hub,
		authCfg: authCfg,
		logger:  log,
	}
}

// authorize validates the session token before the upgrade. Browsers cannot
// set cookies on cross-origin websocket dials reliably, so a token query
// param is accepted as well.
func (h *FeedHandler) authorize(c *fiber.Ctx) error {
	tokenStr := c.Cookies(h.authCfg.CookieName)
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	if tokenStr == "" {
		return fiber.ErrUnauthorized
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(h.authCfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return fiber.ErrUnauthorized
	}
	return nil
}

func (h *FeedHandler) RegisterRoutes(r fiber.Router) {
	r.Use("/feed/v1/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if err := h.authorize(c); err != nil {
			return err
		}
		return c.Next()
	})

	r.Get("/feed/v1/ws", websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(h.hub, conn)
	}))
}

package controller

import (
	"time"

	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/pkg/serverutils"
	"ai-widgetchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	authService service.IAuthService
	authCfg     *config.AuthConfig
}

func NewAuthController(authService service.IAuthService, authCfg *config.AuthConfig) IAuthController {
	return &authController{
		authService: authService,
		authCfg:     authCfg,
	}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth/v1")
	h.Post("login", c.Login)
	h.Post("logout", c.Logout)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.authService.VerifyPassword(req.Password); err != nil {
		return err
	}

	expiresAt, err := serverutils.IssueSessionCookie(ctx, c.authCfg)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Logged in", dto.LoginResponse{
		ExpiresAt: expiresAt.Unix(),
	}))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     c.authCfg.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return ctx.JSON(serverutils.SuccessResponse("Logged out", nil))
}

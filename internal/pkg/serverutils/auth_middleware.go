package serverutils

import (
	"time"

	"ai-widgetchat-be/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// IssueSessionCookie signs a session token after the shared-secret password
// check and sets it as an HTTP-only cookie.
func IssueSessionCookie(ctx *fiber.Ctx, cfg *config.AuthConfig) (time.Time, error) {
	expiresAt := time.Now().Add(cfg.SessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return time.Time{}, err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    signed,
		Expires:  expiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return expiresAt, nil
}

// AuthGate verifies the session cookie issued by the login endpoint. This is
// the whole auth story: one shared password, one signed cookie.
func AuthGate(cfg *config.AuthConfig) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		cookie := ctx.Cookies(cfg.CookieName)
		if cookie == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Missing session"))
		}

		token, err := jwt.Parse(cookie, func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Invalid session"))
		}

		return ctx.Next()
	}
}

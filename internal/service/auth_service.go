package service

import (
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/pkg/logger"
	"ai-widgetchat-be/internal/pkg/serverutils"

	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	// VerifyPassword checks the shared access password against the
	// configured bcrypt hash.
	VerifyPassword(password string) error
}

type authService struct {
	passwordHash []byte
	logger       logger.ILogger
}

// NewAuthService resolves the configured hash. When only a plaintext
// ACCESS_PASSWORD is set (development), it is hashed at startup so the
// comparison path is identical either way.
func NewAuthService(cfg *config.AuthConfig, log logger.ILogger) IAuthService {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 && cfg.Password != "" {
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Auth", "Failed to hash access password", map[string]interface{}{"error": err.Error()})
		} else {
			hash = generated
		}
	}
	if len(hash) == 0 {
		log.Warn("Auth", "No access password configured, all logins will fail", nil)
	}
	return &authService{
		passwordHash: hash,
		logger:       log,
	}
}

func (s *authService) VerifyPassword(password string) error {
	if len(s.passwordHash) == 0 {
		return serverutils.NewUnauthorizedError("access not configured")
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return serverutils.NewUnauthorizedError("wrong password")
	}
	return nil
}

package service

import (
	"testing"

	"ai-widgetchat-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPasswordFromPlaintextConfig(t *testing.T) {
	svc := NewAuthService(&config.AuthConfig{Password: "hunter2"}, noopLogger{})

	require.NoError(t, svc.VerifyPassword("hunter2"))
	assert.Error(t, svc.VerifyPassword("wrong"))
	assert.Error(t, svc.VerifyPassword(""))
}

func TestVerifyPasswordWithoutConfiguration(t *testing.T) {
	svc := NewAuthService(&config.AuthConfig{}, noopLogger{})
	assert.Error(t, svc.VerifyPassword("anything"))
}

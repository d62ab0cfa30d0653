package dto

import (
	"github.com/google/uuid"
)

// SendChatRequest starts (or continues) a conversation turn. ConversationId
// is optional: empty means a new conversation is created for this turn.
type SendChatRequest struct {
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	Message        string     `json:"message" validate:"required"`
}

// StreamFrame is one server-sent event on the chat stream.
type StreamFrame struct {
	Event string // meta | token | title | done | error
	Data  string
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	ExpiresAt int64 `json:"expires_at"`
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type ConversationSummaryResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type ConversationMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type GetConversationResponse struct {
	Id             uuid.UUID                     `json:"id"`
	Title          string                        `json:"title"`
	SourceWidgetId *uuid.UUID                    `json:"source_widget_id,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
	Messages       []ConversationMessageResponse `json:"messages"`
}

type RenameConversationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

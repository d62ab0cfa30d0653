package service

import (
	"fmt"
	"strings"
	"time"

	"ai-widgetchat-be/internal/entity"
)

// renderTranscript flattens a conversation's messages into prompt text.
func renderTranscript(messages []*entity.ConversationMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}
	return b.String()
}

// renderDatedTranscript timestamps every message so the model can resolve
// relative dates ("today", "yesterday") against the message that contains
// them rather than the current time.
func renderDatedTranscript(messages []*entity.ConversationMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.Role, m.Content))
	}
	return b.String()
}

// truncate caps prompt inputs so one huge conversation cannot blow the
// model's context window.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[...truncated]"
}

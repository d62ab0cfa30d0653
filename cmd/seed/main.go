package main

import (
	"errors"
	"log"
	"os"
	"time"

	"ai-widgetchat-be/internal/constant"
	"ai-widgetchat-be/internal/model"
	"ai-widgetchat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

// seedConversation is a demo transcript inserted so the derivation pipeline
// has real material to extract tags from on a fresh install.
type seedConversation struct {
	Title    string
	Messages []seedMessage
}

type seedMessage struct {
	Role    string
	Content string
	Age     time.Duration // how far in the past the message was sent
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("🌱 Seeding demo conversations")

	conversations := []seedConversation{
		{
			Title: "Lunch calories",
			Messages: []seedMessage{
				{Role: constant.MessageRoleUser, Content: "I had a chicken caesar salad and an iced latte for lunch, roughly how many calories is that?", Age: 48 * time.Hour},
				{Role: constant.MessageRoleAssistant, Content: "A chicken caesar salad is typically around 470 kcal and a medium iced latte about 130 kcal, so roughly 600 kcal in total.", Age: 48 * time.Hour},
			},
		},
		{
			Title: "Morning run",
			Messages: []seedMessage{
				{Role: constant.MessageRoleUser, Content: "Ran 5k this morning in 27 minutes. Is that a decent pace for a beginner?", Age: 30 * time.Hour},
				{Role: constant.MessageRoleAssistant, Content: "A 5:24/km pace is solid for a beginner. Keeping two easy runs and one faster session per week will bring it down steadily.", Age: 30 * time.Hour},
			},
		},
		{
			Title: "Trip to Lisbon",
			Messages: []seedMessage{
				{Role: constant.MessageRoleUser, Content: "Planning 4 days in Lisbon in October. What neighborhoods should I stay in?", Age: 6 * time.Hour},
				{Role: constant.MessageRoleAssistant, Content: "Baixa and Chiado are central and walkable; Alfama is more atmospheric but hilly. October is shoulder season, so book about a month ahead.", Age: 6 * time.Hour},
			},
		},
	}

	seeded := 0
	for _, sc := range conversations {
		var existing model.Conversation
		if err := db.Where("title = ?", sc.Title).First(&existing).Error; err == nil {
			color.Yellow("  skip: %q already exists", sc.Title)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			color.Red("  lookup failed for %q: %v", sc.Title, err)
			continue
		}

		conv := model.Conversation{Title: sc.Title}
		if err := db.Create(&conv).Error; err != nil {
			color.Red("  create failed for %q: %v", sc.Title, err)
			continue
		}

		for _, sm := range sc.Messages {
			msg := model.ConversationMessage{
				ConversationId: conv.Id,
				Role:           sm.Role,
				Content:        sm.Content,
				CreatedAt:      time.Now().Add(-sm.Age),
			}
			if err := db.Create(&msg).Error; err != nil {
				color.Red("  message insert failed for %q: %v", sc.Title, err)
			}
		}

		color.Green("  seeded %q (%d messages)", sc.Title, len(sc.Messages))
		seeded++
	}

	color.Cyan("Done: %d of %d conversations seeded. Run tag extraction to derive widgets.", seeded, len(conversations))
}

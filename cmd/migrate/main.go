package main

import (
	"log"
	"os"

	"ai-widgetchat-be/internal/model"
	"ai-widgetchat-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: extensions GORM AutoMigrate does not manage
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Conversation{},
		&model.ConversationMessage{},
		&model.ConversationTag{},
		&model.GlobalTag{},
		&model.ConversationGlobalTag{},
		&model.Widget{},
		&model.WidgetDataItem{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: indexes the derivation pipeline leans on
	log.Println("Step 3: Creating Supporting Indexes...")

	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_conversation_created
		 ON conversation_messages (conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_widget_data_items_widget_source
		 ON widget_data_items (widget_id, source_conversation_id);`,
		// Provenance outlives the source conversation: deleting a
		// conversation nulls the pointer instead of dropping the item.
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_widget_data_items_source_conversation') THEN
		     ALTER TABLE widget_data_items
		       ADD CONSTRAINT fk_widget_data_items_source_conversation
		       FOREIGN KEY (source_conversation_id) REFERENCES conversations (id) ON DELETE SET NULL;
		   END IF;
		 END $$;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v. Continuing...", err)
		}
	}

	log.Println("Migration completed successfully.")
}

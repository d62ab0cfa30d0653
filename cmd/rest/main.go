package main

import (
	"context"
	"log"

	"ai-widgetchat-be/internal/bootstrap"
	"ai-widgetchat-be/internal/config"
	"ai-widgetchat-be/internal/server"
	"ai-widgetchat-be/internal/tracer"
	"ai-widgetchat-be/pkg/database"
)

func main() {
	// 0. Initialize tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load configuration
	cfg := config.Load()

	// 2. Initialize database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start background services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.EventFeedService != nil {
		container.EventFeedService.Start()
	}

	// 5. Run server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}

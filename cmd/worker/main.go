package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classmark/internal/config"
	"classmark/internal/queue"
	"classmark/internal/roster"
	"classmark/internal/store"
)

// Worker consumes roster-upload messages and ingests CSV batches.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.MaxOpenConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var jobs queue.Queue
	if cfg.QueueBackend == "memory" {
		jobs = queue.NewInMemory(64)
	} else {
		jobs = queue.NewRedisQueue(redisClient.Client, "classmark:rosters")
	}

	ingestor := roster.NewIngestor(roster.NewRepository(db.Client))

	messages, err := jobs.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeRosterUpload {
			continue
		}

		csvID := string(msg.Body)
		log.Printf("ingesting batch %s", csvID)

		if err := ingestor.Ingest(ctx, csvID); err != nil {
			log.Printf("ingest batch %s failed: %v", csvID, err)
			continue
		}
		log.Printf("batch %s ingested", csvID)
	}

	log.Println("worker stopped")
}

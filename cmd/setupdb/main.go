// Command setupdb applies the database schema once and exits. The
// server also applies it lazily; this exists for provisioning and CI.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"forum-service/internal/bootstrap"
	"forum-service/internal/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := bootstrap.New(db, bootstrap.Options{}).Ensure(ctx); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}
	log.Println("schema applied")
}

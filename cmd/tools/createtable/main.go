package main

import (
	"log"

	"github.com/joho/godotenv"

	"sslrelay.com/app/internal/config"
	"sslrelay.com/app/internal/database"
	"sslrelay.com/app/internal/modules/payments"
)

// createtable creates or updates the transactions and callback_events tables.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DB.Driver == "memory" {
		log.Fatal("DB_DRIVER=memory has no tables to create")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := payments.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	log.Printf("✓ transactions table ready (%s)", cfg.DB.Driver)
	log.Printf("✓ callback_events table ready (%s)", cfg.DB.Driver)
}

// This file is used to run database migrations
// How to run:
// go run cmd/migrate/main.go
package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/taskmesh/marketplace/config"
	"github.com/taskmesh/marketplace/internal/db"
)

func main() {
	host := flag.String("host", "", "Database host (optional, defaults to env vars)")
	flag.Parse()

	// Optional; environment variables may come from the actual environment
	_ = godotenv.Load()

	opts := db.Options{
		Host:     config.GetEnv("DB_HOST", *host),
		User:     config.GetEnv("DB_USER", ""),
		Password: config.GetEnv("DB_PASSWORD", ""),
		DBName:   config.GetEnv("DB_NAME", ""),
	}
	if port := config.GetEnv("DB_PORT", ""); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("Invalid DB_PORT %q: %v", port, err)
		}
		opts.Port = p
	}

	// db.New runs the schema migration as part of connecting
	if _, err := db.New(opts); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed")
}

// Package main applies the database migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate status
//
// The connection string is read from DATABASE_URL. Migrations must run as
// the schema owner, not as orgadmin_app.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"orgadmin/db"
	"orgadmin/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	switch command {
	case "up", "down", "status", "version", "redo", "reset":
	default:
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, command, os.Args[2:]...); err != nil {
		log.Fatalw("migration failed", "command", command, "error", err)
	}
	log.Infow("migration finished", "command", command)
}

func printUsage() {
	fmt.Println("Usage: migrate <up|down|status|version|redo|reset>")
}

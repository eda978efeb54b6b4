package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/manzaspots/manza/internal/pkg/config"
	"github.com/manzaspots/manza/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("manza-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		log.Fatalf("goose provider: %v", err)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("up: %v", err)
		}
		for _, r := range results {
			fmt.Printf("OK  %s (%s)\n", r.Source.Path, r.Duration)
		}
		log.Println("all migrations applied")
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("down: %v", err)
		}
		fmt.Printf("OK  reverted %s\n", r.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		for _, s := range statuses {
			fmt.Printf("%-8s %s\n", s.State, s.Source.Path)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"youngcheol/moneyhunter/config"
)

const migrationsPath = "file://migrations"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down>")
		return 1
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction: %q (must be \"up\" or \"down\")\n", direction)
		return 1
	}

	// .env is optional; environment variables win
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	m, err := migrate.New(migrationsPath, cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrate instance: %v\n", err)
		return 1
	}
	defer func() { _, _ = m.Close() }()

	if err := runMigration(m, direction); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", direction, err)
		return 1
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return 0
}

// runMigration executes the migration in the specified direction.
func runMigration(m *migrate.Migrate, direction string) error {
	var err error

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return nil
	}

	return err
}

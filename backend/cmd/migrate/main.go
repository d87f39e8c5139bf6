package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pageza/landscaping-app/backend/internal/config"
)

func main() {
	var (
		migrationsPath = flag.String("path", "backend/migrations", "Path to migrations directory")
	)
	flag.Parse()

	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate [up|down|create] [name]")
		fmt.Println("Commands:")
		fmt.Println("  up     - Apply all pending migrations")
		fmt.Println("  down   - Rollback the last migration")
		fmt.Println("  create - Create a new pair of migration files")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "up":
		runMigrationsUp(cfg.DatabaseURL, *migrationsPath)
	case "down":
		runMigrationsDown(cfg.DatabaseURL, *migrationsPath)
	case "create":
		if len(os.Args) < 3 {
			log.Fatal("Migration name is required for create command")
		}
		createMigration(*migrationsPath, os.Args[2])
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrationsUp(databaseURL, migrationsPath string) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Migrations applied successfully")
}

func runMigrationsDown(databaseURL, migrationsPath string) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		log.Fatalf("Failed to rollback migration: %v", err)
	}

	log.Println("Migration rolled back successfully")
}

// createMigration writes an empty NNNNNN_name.up.sql/.down.sql pair,
// numbered one past the highest existing migration.
func createMigration(migrationsPath, name string) {
	next := nextMigrationNumber(migrationsPath)

	for _, direction := range []string{"up", "down"} {
		filename := filepath.Join(migrationsPath, fmt.Sprintf("%06d_%s.%s.sql", next, name, direction))
		if err := os.WriteFile(filename, []byte("-- "+name+" ("+direction+")\n"), 0o644); err != nil {
			log.Fatalf("Failed to create migration file: %v", err)
		}
		fmt.Printf("Created %s\n", filename)
	}
}

func nextMigrationNumber(migrationsPath string) int {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	var numbers []int
	for _, entry := range entries {
		prefix, _, found := strings.Cut(entry.Name(), "_")
		if !found {
			continue
		}
		if n, err := strconv.Atoi(prefix); err == nil {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return 1
	}
	sort.Ints(numbers)
	return numbers[len(numbers)-1] + 1
}

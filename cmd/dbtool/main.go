package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pizza-dispatch-service/internal/adapters/cache"
	"pizza-dispatch-service/internal/adapters/repositories"
	"pizza-dispatch-service/internal/adapters/routing"
	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/fixtures.json")
	initAndSeed(db, seedPath)
}

func initAndSeed(db *sql.DB, seedPath string) {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(db); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if _, err := os.Stat(seedPath); os.IsNotExist(err) {
		log.Printf("No seed file at %s, skipping fixtures.", seedPath)
		return
	}

	log.Println("Seeding fixtures...")
	if err := repositories.SeedFromJSON(context.Background(), db, seedPath, seedGeocoder(db)); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}

// seedGeocoder builds the configured route provider for geocoding seed
// orders that carry no coordinates, resolving through the persistent
// geocode cache. Without a usable provider seeding still works as long
// as every order brings its own lat/lon.
func seedGeocoder(db *sql.DB) repositories.Geocoder {
	settings, err := config.LoadProvider()
	if err != nil {
		log.Printf("route provider not configured, seeds must carry coordinates: %v", err)
		return nil
	}

	planner, err := routing.NewFromSettings(settings, routing.WithGeocodeCache(cache.NewSQLGeocodeCache(db)))
	if err != nil {
		log.Printf("route provider unavailable, seeds must carry coordinates: %v", err)
		return nil
	}
	return planner
}

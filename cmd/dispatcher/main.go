package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"pizza-dispatch-service/internal/adapters/cache"
	"pizza-dispatch-service/internal/adapters/repositories"
	"pizza-dispatch-service/internal/adapters/routing"
	"pizza-dispatch-service/internal/config"
	"pizza-dispatch-service/internal/dispatch"
	"pizza-dispatch-service/internal/platform/db"
)

// main is the application composition root for one dispatch run.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and
// executes the engine once.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	database, err := db.Open(settings.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	opts := []routing.Option{
		routing.WithGeocodeCache(cache.NewSQLGeocodeCache(database)),
	}
	if settings.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		defer client.Close()
		opts = append(opts, routing.WithMatrixCache(cache.NewRedisMatrixCache(client, 0)))
	}

	planner, err := routing.NewFromSettings(settings.Provider, opts...)
	if err != nil {
		log.Fatal(err)
	}

	kitchen, err := dispatch.NewKitchen(settings.Kitchen)
	if err != nil {
		log.Fatal(err)
	}

	engine := &dispatch.Engine{
		Orders:         repositories.NewPgOrderRepository(database),
		Drivers:        repositories.NewPgDriverRepository(database),
		Clusters:       repositories.NewPgClusterRepository(database),
		Planner:        planner,
		Kitchen:        kitchen,
		Clustering:     settings.Clustering,
		ETAThreshold:   settings.ETAThreshold,
		TimeForPayment: settings.TimeForPayment,
		MaxRelaxRounds: settings.MaxRelaxRounds,
		Strategies:     dispatch.DefaultStrategies(),
	}

	// A dispatch run is cooperative: interrupting finishes the current
	// provider call and aborts before the next commit boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx)
	if err != nil {
		log.Fatalf("dispatch run failed: %v", err)
	}

	for driverID, a := range result.DriverToCluster {
		log.Printf(
			"assigned driver_id=%d cluster_id=%s orders=%d cost=%.1f",
			driverID, a.Cluster.ID, len(a.Cluster.Orders), a.Cost,
		)
	}
	for _, d := range result.Unassigned {
		log.Printf("deferred cluster_id=%s reason=%q", d.Cluster.ID, d.Reason)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hanroute/transit-engine/internal/access"
	"github.com/hanroute/transit-engine/internal/api"
	"github.com/hanroute/transit-engine/internal/cache"
	"github.com/hanroute/transit-engine/internal/config"
	"github.com/hanroute/transit-engine/internal/planner"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/store/postgres"
	"github.com/hanroute/transit-engine/internal/walk"
)

func main() {
	log.Println("Starting transit-engine API server...")

	ctx := context.Background()
	engineCfg := config.LoadEngineFromEnv()

	pgCfg := config.LoadPostgresFromEnv()
	pool, err := postgres.Open(ctx, pgCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Database connection established")

	data, err := postgres.LoadTransitData(ctx, pool)
	if err != nil {
		log.Fatalf("Failed to load transit data: %v", err)
	}
	log.Printf("Transit data loaded: %d stops, %d patterns", data.NumStops(), len(data.Routes))

	streetGraph, err := postgres.LoadStreetGraph(ctx, pool)
	if err != nil {
		log.Printf("No street graph available, falling back to haversine-only access resolution: %v", err)
		streetGraph = nil
	} else {
		log.Printf("Street graph loaded: %d nodes", streetGraph.NumNodes())
	}

	redisCfg := config.LoadRedisFromEnv()
	var routeCache *cache.Cache
	if c, err := cache.Open(ctx, redisCfg, engineCfg.CacheTTL, engineCfg.CacheMutexTTL); err != nil {
		log.Printf("Redis unavailable, itinerary caching disabled: %v", err)
	} else {
		routeCache = c
		defer routeCache.Close()
		log.Println("Redis connection established")
	}

	resolver := access.NewResolver(data, streetGraph)
	resolver.AccessRadiusMeters = engineCfg.MaxAccessWalkMeters
	resolver.EgressRadiusMeters = engineCfg.MaxEgressWalkMeters
	resolver.MaxAccessStops = engineCfg.MaxAccessStops
	resolver.MaxEgressStops = engineCfg.MaxEgressStops
	resolver.WalkOptions = walk.Options{
		MaxIterations:           engineCfg.AStarMaxIterations,
		MaxSearchDistanceMeters: engineCfg.AStarMaxDistanceMeters,
	}
	resolver.TaskTimeout = engineCfg.AccessTaskTimeout

	raptorCfg := raptor.Config{
		MaxRounds:           engineCfg.MaxRounds(),
		SearchWindowSeconds: engineCfg.SearchWindowSeconds,
	}
	p := planner.New(data, resolver, raptorCfg)
	srv := &api.Server{Planner: p, Cache: routeCache}

	app := fiber.New(fiber.Config{
		AppName:      "transit-engine",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", srv.Health)
	app.Get("/v2/plan", srv.Plan)
	app.Get("/v2/plan/by-stop", srv.PlanByStop)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "endpoint not found"})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on http://localhost%s", addr)
	log.Printf("Plan a trip: http://localhost%s/v2/plan?from=LAT,LON&to=LAT,LON&depart=HH:MM:SS", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

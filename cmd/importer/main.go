package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hanroute/transit-engine/internal/config"
	"github.com/hanroute/transit-engine/internal/gtfs"
	"github.com/hanroute/transit-engine/internal/store/postgres"
	"github.com/hanroute/transit-engine/internal/street"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

func main() {
	gtfsPath := flag.String("gtfs", "", "Path to GTFS ZIP file (required)")
	waysPath := flag.String("osm-ways", "", "Path to OSM ways CSV (optional; omit to skip street graph import)")
	nodesPath := flag.String("osm-nodes", "", "Path to OSM nodes CSV (required with -osm-ways)")
	flag.Parse()

	if *gtfsPath == "" {
		fmt.Println("Usage: importer -gtfs=<path.zip> [-osm-ways=<path.csv> -osm-nodes=<path.csv>]")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if _, err := os.Stat(*gtfsPath); os.IsNotExist(err) {
		log.Fatalf("GTFS file not found: %s", *gtfsPath)
	}

	ctx := context.Background()

	log.Println("Step 1/4: parsing GTFS feed...")
	feed, err := gtfs.ParseZip(*gtfsPath)
	if err != nil {
		log.Fatalf("failed to parse GTFS: %v", err)
	}
	log.Printf("parsed %d stops, %d routes, %d trips, %d stop_times", len(feed.Stops), len(feed.Routes), len(feed.Trips), len(feed.StopTimes))

	log.Println("Step 2/4: building transit data...")
	engineCfg := config.LoadEngineFromEnv()
	buildOpts := transitdata.BuildOptions{
		MaxTransferDistanceMeters: engineCfg.MaxTransferDistanceMeters,
		WalkSpeedMPS:              engineCfg.WalkSpeedMPS,
	}
	data, err := transitdata.Build(feed, buildOpts)
	if err != nil {
		log.Fatalf("failed to build transit data: %v", err)
	}
	log.Printf("built %d stops across %d patterns", data.NumStops(), len(data.Routes))

	var streetGraph *street.Graph
	if *waysPath != "" {
		if *nodesPath == "" {
			log.Fatalf("-osm-nodes is required when -osm-ways is set")
		}
		log.Println("Step 3/4: loading street graph...")
		streetGraph, err = street.LoadCSV(*waysPath, *nodesPath)
		if err != nil {
			log.Fatalf("failed to load street graph: %v", err)
		}
		log.Printf("loaded street graph with %d nodes", streetGraph.NumNodes())
	} else {
		log.Println("Step 3/4: no OSM data given, skipping street graph import")
	}

	log.Println("Step 4/4: persisting to database...")
	pgCfg := config.LoadPostgresFromEnv()
	pool, err := postgres.Open(ctx, pgCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to run schema migration: %v", err)
	}
	if err := postgres.SaveTransitData(ctx, pool, data); err != nil {
		log.Fatalf("failed to save transit data: %v", err)
	}
	if streetGraph != nil {
		if err := postgres.SaveStreetGraph(ctx, pool, streetGraph); err != nil {
			log.Fatalf("failed to save street graph: %v", err)
		}
	}

	log.Println("import completed successfully")
}

// Command route is a thin CLI for exercising the planner against a
// GTFS feed without standing up the HTTP API, useful for local
// debugging of a single query.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hanroute/transit-engine/internal/access"
	"github.com/hanroute/transit-engine/internal/gtfs"
	"github.com/hanroute/transit-engine/internal/itinerary"
	"github.com/hanroute/transit-engine/internal/planner"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/street"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

func main() {
	gtfsPath := flag.String("gtfs", "", "Path to GTFS ZIP file (required)")
	waysPath := flag.String("osm-ways", "", "Path to OSM ways CSV (optional)")
	nodesPath := flag.String("osm-nodes", "", "Path to OSM nodes CSV (optional)")
	fromLat := flag.Float64("from-lat", 0, "Origin latitude (required)")
	fromLon := flag.Float64("from-lon", 0, "Origin longitude (required)")
	toLat := flag.Float64("to-lat", 0, "Destination latitude (required)")
	toLon := flag.Float64("to-lon", 0, "Destination longitude (required)")
	depart := flag.String("depart", "09:00:00", "Departure time as HH:MM:SS")
	maxResults := flag.Int("max", 1, "Maximum number of itineraries to print")
	flag.Parse()

	if *gtfsPath == "" {
		fmt.Println("Usage: route -gtfs=<path.zip> -from-lat=.. -from-lon=.. -to-lat=.. -to-lon=.. [-depart=HH:MM:SS]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	feed, err := gtfs.ParseZip(*gtfsPath)
	if err != nil {
		log.Fatalf("failed to parse GTFS: %v", err)
	}
	data, err := transitdata.Build(feed, transitdata.DefaultBuildOptions())
	if err != nil {
		log.Fatalf("failed to build transit data: %v", err)
	}

	var streetGraph *street.Graph
	if *waysPath != "" && *nodesPath != "" {
		streetGraph, err = street.LoadCSV(*waysPath, *nodesPath)
		if err != nil {
			log.Fatalf("failed to load street graph: %v", err)
		}
	}

	departSec, err := gtfs.ParseTimeToSeconds(*depart)
	if err != nil {
		log.Fatalf("invalid -depart: %v", err)
	}

	resolver := access.NewResolver(data, streetGraph)
	p := planner.New(data, resolver, raptor.DefaultConfig())

	result, err := p.Route(context.Background(), *fromLat, *fromLon, *toLat, *toLon, departSec, *maxResults)
	if err != nil {
		log.Fatalf("no itinerary found: %v", err)
	}

	for _, it := range result {
		printItinerary(it)
	}
}

func printItinerary(it itinerary.Itinerary) {
	fmt.Printf("depart %s, arrive %s, %d round(s)\n", formatClock(it.DepartSec), formatClock(it.ArriveSec), it.Rounds)
	for _, l := range it.Legs {
		switch l.Type {
		case itinerary.LegAccessWalk:
			fmt.Printf("  walk to stop %d (%.0fm, %ds)\n", l.ToStop, l.DistanceMeters, l.DurationSec)
		case itinerary.LegRide:
			fmt.Printf("  ride stop %d -> stop %d, board %s alight %s\n", l.BoardStop, l.AlightStop, formatClock(l.BoardSec), formatClock(l.AlightSec))
		case itinerary.LegTransferWalk:
			fmt.Printf("  transfer walk stop %d -> stop %d (%.0fm, %ds)\n", l.FromStop, l.ToStop, l.DistanceMeters, l.DurationSec)
		case itinerary.LegEgressWalk:
			fmt.Printf("  walk from stop %d to destination (%.0fm, %ds)\n", l.FromStop, l.DistanceMeters, l.DurationSec)
		}
	}
}

func formatClock(sec int) string {
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

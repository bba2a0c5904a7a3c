package walk

import (
	"context"
	"testing"

	"github.com/hanroute/transit-engine/internal/geo"
	"github.com/hanroute/transit-engine/internal/street"
)

// lineGraph builds four nodes in a straight line roughly 100m apart,
// connected A-B-C-D, for exercising the forward search.
func lineGraph() *street.Graph {
	nodes := []street.NodeRecord{
		{NodeID: 1, Lat: 37.5000, Lon: 127.0000},
		{NodeID: 2, Lat: 37.5009, Lon: 127.0000},
		{NodeID: 3, Lat: 37.5018, Lon: 127.0000},
		{NodeID: 4, Lat: 37.5027, Lon: 127.0000},
	}
	ways := []street.WayRecord{
		{NodeIDs: []int64{1, 2, 3, 4}, Highway: "residential"},
	}
	return street.BuildGraph(nodes, ways)
}

func TestSearchFindsPathAlongLine(t *testing.T) {
	g := lineGraph()
	result, err := Search(context.Background(), g, 0, 3, DefaultOptions())
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Nodes) != 4 {
		t.Fatalf("expected a 4-node path, got %d nodes: %v", len(result.Nodes), result.Nodes)
	}
	if result.Nodes[0] != 0 || result.Nodes[len(result.Nodes)-1] != 3 {
		t.Fatalf("path endpoints wrong: %v", result.Nodes)
	}
	// Each hop is ~100m, so three hops should land well inside 250-350m.
	if result.DistanceMeters < 250 || result.DistanceMeters > 350 {
		t.Fatalf("unexpected path distance %.1f", result.DistanceMeters)
	}
	// The heuristic is admissible, so a found path can never be shorter
	// than the straight-line distance between the endpoints.
	straight := geo.HaversineMeters(g.NodeLat(0), g.NodeLon(0), g.NodeLat(3), g.NodeLon(3))
	if result.DistanceMeters < straight {
		t.Fatalf("path %.1fm shorter than straight line %.1fm", result.DistanceMeters, straight)
	}
}

func TestSearchNoPathBetweenDisconnectedNodes(t *testing.T) {
	nodes := []street.NodeRecord{
		{NodeID: 1, Lat: 37.5000, Lon: 127.0000},
		{NodeID: 2, Lat: 38.0000, Lon: 128.0000},
	}
	// No way connects these two nodes.
	g := street.BuildGraph(nodes, nil)

	_, err := Search(context.Background(), g, 0, 1, DefaultOptions())
	if err != ErrNoPath {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestSearchAbandonsBeyondMaxIterations(t *testing.T) {
	g := lineGraph()
	opts := Options{MaxIterations: 1, MaxSearchDistanceMeters: DefaultMaxSearchDistanceMeters}

	_, err := Search(context.Background(), g, 0, 3, opts)
	if err != ErrAbandoned {
		t.Fatalf("expected ErrAbandoned, got %v", err)
	}
}

func TestFallbackDistanceAppliesDetourFactor(t *testing.T) {
	d := FallbackDistance(37.5000, 127.0000, 37.5009, 127.0000)
	straight := geo.HaversineMeters(37.5000, 127.0000, 37.5009, 127.0000)
	if d != straight*1.3 {
		t.Fatalf("expected fallback distance %.2f (straight line x1.3), got %.2f", straight*1.3, d)
	}
}

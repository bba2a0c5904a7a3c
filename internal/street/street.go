// Package street holds the pedestrian street graph (spec §4.1, C1):
// an undirected, walkable graph with a grid-based spatial index for
// nearest-node lookups. Built once at startup from an OSM extract and
// shared read-only across every subsequent query.
package street

import "github.com/hanroute/transit-engine/internal/geo"

// NodeID is a dense, zero-based index assigned at build time; it does
// not carry the original OSM id (kept separately in OSMID) so that
// edge lists can be plain int-indexed slices.
type NodeID int32

// HighwayClass tags an edge with the OSM highway value it came from,
// kept for debugging and future cost tuning.
type HighwayClass string

const (
	HighwayFootway      HighwayClass = "footway"
	HighwayPedestrian   HighwayClass = "pedestrian"
	HighwayPath         HighwayClass = "path"
	HighwaySteps        HighwayClass = "steps"
	HighwayCycleway     HighwayClass = "cycleway"
	HighwayResidential  HighwayClass = "residential"
	HighwayLivingStreet HighwayClass = "living_street"
	HighwayTertiary     HighwayClass = "tertiary"
	HighwaySecondary    HighwayClass = "secondary"
	HighwayPrimary      HighwayClass = "primary"
	HighwayTrunk        HighwayClass = "trunk"
	HighwayUnclassified HighwayClass = "unclassified"
	HighwayService      HighwayClass = "service"
	HighwayTrack        HighwayClass = "track"
)

// walkableClasses is the exact set spec §4.1 allows onto the graph.
var walkableClasses = map[string]bool{
	string(HighwayFootway):      true,
	string(HighwayPedestrian):   true,
	string(HighwayPath):         true,
	string(HighwaySteps):        true,
	string(HighwayCycleway):     true,
	string(HighwayResidential):  true,
	string(HighwayLivingStreet): true,
	string(HighwayTertiary):     true,
	string(HighwaySecondary):    true,
	string(HighwayPrimary):      true,
	string(HighwayTrunk):        true,
	string(HighwayUnclassified): true,
	string(HighwayService):      true,
	string(HighwayTrack):        true,
}

// IsWalkable reports whether a raw OSM highway tag belongs on the
// pedestrian graph.
func IsWalkable(highway string) bool {
	return walkableClasses[highway]
}

// Edge is one directed traversal from its owning node.
type Edge struct {
	To          NodeID
	LengthMeter float64
	Highway     HighwayClass
}

// Graph is the immutable, read-only pedestrian street graph. Every
// field is populated once at build time and never mutated afterwards;
// concurrent A* queries only ever read from it (spec §5).
type Graph struct {
	OSMID []int64
	Lat   []float64
	Lon   []float64
	Edges [][]Edge

	grid map[geo.Cell][]NodeID
}

// NumNodes returns the number of street nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.Lat) }

// NeighborsOf returns the outgoing edges for a node.
func (g *Graph) NeighborsOf(n NodeID) []Edge { return g.Edges[n] }

// NodeLat and NodeLon expose a node's coordinates for the A* heuristic.
func (g *Graph) NodeLat(n NodeID) float64 { return g.Lat[n] }
func (g *Graph) NodeLon(n NodeID) float64 { return g.Lon[n] }

// NearestNode returns the closest street node to (lat, lon) within
// radiusMeters, scanning the grid index outward from the query's
// cell. Returns ok=false if nothing is within range (spec §4.6's
// "may be null" stopNearestNode precompute).
func (g *Graph) NearestNode(lat, lon, radiusMeters float64) (node NodeID, dist float64, ok bool) {
	if g.grid == nil {
		return 0, 0, false
	}
	center := geo.CellOf(lat, lon)
	radiusCells := geo.RadiusInCells(radiusMeters)

	bestDist := radiusMeters
	found := false
	for dLat := -radiusCells; dLat <= radiusCells; dLat++ {
		for dLon := -radiusCells; dLon <= radiusCells; dLon++ {
			cell := geo.Cell{Lat: center.Lat + int64(dLat), Lon: center.Lon + int64(dLon)}
			for _, n := range g.grid[cell] {
				d := geo.HaversineMeters(lat, lon, g.Lat[n], g.Lon[n])
				if d <= bestDist {
					bestDist = d
					node = n
					found = true
				}
			}
		}
	}
	return node, bestDist, found
}

// buildGrid populates the spatial index from node coordinates; shared
// by the builder and any loader that constructs a Graph directly.
func buildGrid(lat, lon []float64) map[geo.Cell][]NodeID {
	grid := make(map[geo.Cell][]NodeID, len(lat))
	for i := range lat {
		cell := geo.CellOf(lat[i], lon[i])
		grid[cell] = append(grid[cell], NodeID(i))
	}
	return grid
}

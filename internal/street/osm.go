package street

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hanroute/transit-engine/internal/geo"
)

// WayRecord is one OSM way as the two-pass build contract of spec
// §4.1/§6 describes it: an ordered list of referenced node ids, a
// highway classification, and whether it is one-way.
type WayRecord struct {
	WayID      int64
	NodeIDs    []int64
	Highway    string
	OneWay     bool
	FootAccess string // "", "no", "private", "yes", ...
	Access     string // "", "no", "private", "yes", ...
}

// NodeRecord is one OSM node: a stable id and its coordinates.
type NodeRecord struct {
	NodeID int64
	Lat    float64
	Lon    float64
}

// walkable reports whether a way belongs on the pedestrian graph,
// applying the highway-class allowlist and the foot/access exclusions:
// a way is discarded when foot is no/private, or when access is
// no/private and foot does not explicitly allow pedestrians.
func walkable(w WayRecord) bool {
	if !IsWalkable(w.Highway) {
		return false
	}
	if w.FootAccess == "no" || w.FootAccess == "private" {
		return false
	}
	if (w.Access == "no" || w.Access == "private") && !footAllowed(w.FootAccess) {
		return false
	}
	return true
}

// footAllowed reports whether the foot tag explicitly permits
// pedestrians, overriding a restrictive access tag.
func footAllowed(foot string) bool {
	switch foot {
	case "yes", "designated", "permissive":
		return true
	}
	return false
}

// LoadCSV builds a Graph from a (ways.csv, nodes.csv) pair, the
// reference OSM loader this engine ships: binary .osm.pbf decoding is
// left to an upstream extraction step (see DESIGN.md), and this loader
// only needs the two-pass record stream spec §6 contracts for.
//
// ways.csv columns: way_id,highway,oneway,foot,access,node_ids
// (node_ids is a ';'-separated ordered list of OSM node ids; the
// access column may be absent in older extracts).
// nodes.csv columns: node_id,lat,lon.
func LoadCSV(waysPath, nodesPath string) (*Graph, error) {
	ways, err := readWays(waysPath)
	if err != nil {
		return nil, fmt.Errorf("street: reading ways: %w", err)
	}

	referenced := make(map[int64]bool)
	var walkableWays []WayRecord
	for _, w := range ways {
		if !walkable(w) {
			continue
		}
		walkableWays = append(walkableWays, w)
		for _, id := range w.NodeIDs {
			referenced[id] = true
		}
	}

	nodes, err := readNodes(nodesPath, referenced)
	if err != nil {
		return nil, fmt.Errorf("street: reading nodes: %w", err)
	}

	return BuildGraph(nodes, walkableWays), nil
}

// BuildGraph assembles an immutable Graph from the node and way
// records produced by the two-pass loader (spec §4.1: "emits the node
// set used by at least one walkable way ... and edges whose length is
// the haversine distance between consecutive nodes of the way").
func BuildGraph(nodes []NodeRecord, ways []WayRecord) *Graph {
	idIndex := make(map[int64]NodeID, len(nodes))
	lat := make([]float64, len(nodes))
	lon := make([]float64, len(nodes))
	osmID := make([]int64, len(nodes))
	for i, n := range nodes {
		idIndex[n.NodeID] = NodeID(i)
		lat[i] = n.Lat
		lon[i] = n.Lon
		osmID[i] = n.NodeID
	}

	edges := make([][]Edge, len(nodes))
	for _, w := range ways {
		for i := 0; i+1 < len(w.NodeIDs); i++ {
			a, aok := idIndex[w.NodeIDs[i]]
			b, bok := idIndex[w.NodeIDs[i+1]]
			if !aok || !bok {
				continue
			}
			length := geo.HaversineMeters(lat[a], lon[a], lat[b], lon[b])
			edges[a] = append(edges[a], Edge{To: b, LengthMeter: length, Highway: HighwayClass(w.Highway)})
			if !w.OneWay {
				edges[b] = append(edges[b], Edge{To: a, LengthMeter: length, Highway: HighwayClass(w.Highway)})
			}
		}
	}

	return &Graph{
		OSMID: osmID,
		Lat:   lat,
		Lon:   lon,
		Edges: edges,
		grid:  buildGrid(lat, lon),
	}
}

func readWays(path string) ([]WayRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	col := columnIndex(header)

	var ways []WayRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		wayID, err := strconv.ParseInt(row[col["way_id"]], 10, 64)
		if err != nil {
			continue
		}
		nodeIDs := splitNodeIDs(row[col["node_ids"]])
		if len(nodeIDs) < 2 {
			continue
		}
		ways = append(ways, WayRecord{
			WayID:      wayID,
			NodeIDs:    nodeIDs,
			Highway:    fieldAt(row, col, "highway"),
			OneWay:     fieldAt(row, col, "oneway") == "yes",
			FootAccess: fieldAt(row, col, "foot"),
			Access:     fieldAt(row, col, "access"),
		})
	}
	return ways, nil
}

func readNodes(path string, referenced map[int64]bool) ([]NodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	col := columnIndex(header)

	var nodes []NodeRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		nodeID, err := strconv.ParseInt(row[col["node_id"]], 10, 64)
		if err != nil || !referenced[nodeID] {
			continue
		}
		lat, err1 := strconv.ParseFloat(row[col["lat"]], 64)
		lon, err2 := strconv.ParseFloat(row[col["lon"]], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		nodes = append(nodes, NodeRecord{NodeID: nodeID, Lat: lat, Lon: lon})
	}
	return nodes, nil
}

func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[h] = i
	}
	return m
}

func fieldAt(row []string, col map[string]int, name string) string {
	if i, ok := col[name]; ok && i < len(row) {
		return row[i]
	}
	return ""
}

func splitNodeIDs(field string) []int64 {
	var ids []int64
	start := 0
	for i := 0; i <= len(field); i++ {
		if i == len(field) || field[i] == ';' {
			if i > start {
				if id, err := strconv.ParseInt(field[start:i], 10, 64); err == nil {
					ids = append(ids, id)
				}
			}
			start = i + 1
		}
	}
	return ids
}

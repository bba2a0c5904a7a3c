package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hanroute/transit-engine/internal/street"
)

// SaveStreetGraph persists a built street.Graph.
func SaveStreetGraph(ctx context.Context, pool *pgxpool.Pool, g *street.Graph) error {
	if _, err := pool.Exec(ctx, "TRUNCATE street_node, street_edge CASCADE"); err != nil {
		return fmt.Errorf("postgres: clearing street tables: %w", err)
	}

	batch := &pgx.Batch{}
	for i := 0; i < g.NumNodes(); i++ {
		batch.Queue(`INSERT INTO street_node (idx, osm_id, lat, lon) VALUES ($1,$2,$3,$4)`,
			i, g.OSMID[i], g.Lat[i], g.Lon[i])
		if batch.Len() >= batchSize {
			if err := execBatch(ctx, pool, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		if err := execBatch(ctx, pool, batch); err != nil {
			return err
		}
	}

	batch = &pgx.Batch{}
	for from := 0; from < g.NumNodes(); from++ {
		for _, e := range g.NeighborsOf(street.NodeID(from)) {
			batch.Queue(`INSERT INTO street_edge (from_node, to_node, length_meters, highway) VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
				from, int(e.To), e.LengthMeter, string(e.Highway))
			if batch.Len() >= batchSize {
				if err := execBatch(ctx, pool, batch); err != nil {
					return err
				}
				batch = &pgx.Batch{}
			}
		}
	}
	if batch.Len() > 0 {
		if err := execBatch(ctx, pool, batch); err != nil {
			return err
		}
	}
	return nil
}

// LoadStreetGraph rebuilds a street.Graph from the persisted tables,
// reusing street.BuildGraph to regenerate the spatial index.
func LoadStreetGraph(ctx context.Context, pool *pgxpool.Pool) (*street.Graph, error) {
	nodeRows, err := pool.Query(ctx, `SELECT idx, osm_id, lat, lon FROM street_node ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading street nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []street.NodeRecord
	for nodeRows.Next() {
		var idx int
		var osmID int64
		var lat, lon float64
		if err := nodeRows.Scan(&idx, &osmID, &lat, &lon); err != nil {
			return nil, err
		}
		nodes = append(nodes, street.NodeRecord{NodeID: osmID, Lat: lat, Lon: lon})
	}

	edgeRows, err := pool.Query(ctx, `SELECT from_node, to_node, length_meters, highway FROM street_edge`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading street edges: %w", err)
	}
	defer edgeRows.Close()

	// Reconstruct one-way-preserving ways: each persisted edge becomes
	// a two-node way, and an edge whose reverse is also persisted is
	// folded into the same way, which is then marked two-way so that
	// BuildGraph inserts both directions.
	reverseSeen := make(map[[2]int]bool)
	type rawEdge struct {
		from, to int
		length   float64
		highway  string
	}
	var rawEdges []rawEdge
	for edgeRows.Next() {
		var from, to int
		var length float64
		var highway string
		if err := edgeRows.Scan(&from, &to, &length, &highway); err != nil {
			return nil, err
		}
		rawEdges = append(rawEdges, rawEdge{from, to, length, highway})
		reverseSeen[[2]int{from, to}] = true
	}

	var ways []street.WayRecord
	emitted := make(map[[2]int]bool)
	for _, e := range rawEdges {
		key := [2]int{e.from, e.to}
		revKey := [2]int{e.to, e.from}
		if emitted[revKey] {
			continue
		}
		emitted[key] = true
		oneWay := !reverseSeen[revKey]
		ways = append(ways, street.WayRecord{
			NodeIDs: []int64{nodes[e.from].NodeID, nodes[e.to].NodeID},
			Highway: e.highway,
			OneWay:  oneWay,
		})
	}

	return street.BuildGraph(nodes, ways), nil
}

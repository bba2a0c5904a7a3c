// Package postgres persists the prebuilt, immutable Transit Data and
// Street Graph arrays between cmd/importer (which builds them from
// GTFS/OSM) and cmd/api (which loads them into memory at startup),
// adapted from the teacher's internal/db connection-pool singleton and
// internal/graph.LoadFromDB bulk loader.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hanroute/transit-engine/internal/config"
)

// Open creates a connection pool from the given configuration. Unlike
// the teacher's package-level singleton, callers own the pool and are
// responsible for closing it — cmd/importer and cmd/api each need
// their own independent lifecycle.
func Open(ctx context.Context, cfg *config.Postgres) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}
	return pool, nil
}

// Schema creates the tables importer writes to and api reads from, if
// they don't already exist.
const Schema = `
CREATE TABLE IF NOT EXISTS engine_stop (
	idx INT PRIMARY KEY,
	stop_id TEXT NOT NULL,
	name TEXT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS engine_pattern (
	idx INT PRIMARY KEY,
	route_id TEXT NOT NULL,
	short_name TEXT,
	long_name TEXT,
	route_type INT NOT NULL,
	mode TEXT NOT NULL,
	debug_tag TEXT NOT NULL,
	stop_sequence INT[] NOT NULL,
	slack_index SMALLINT NOT NULL
);

CREATE TABLE IF NOT EXISTS engine_trip (
	pattern_idx INT NOT NULL REFERENCES engine_pattern(idx),
	trip_position INT NOT NULL,
	display_id TEXT NOT NULL,
	arrival_sec INT[] NOT NULL,
	departure_sec INT[] NOT NULL,
	PRIMARY KEY (pattern_idx, trip_position)
);

CREATE TABLE IF NOT EXISTS engine_transfer (
	from_stop INT NOT NULL,
	to_stop INT NOT NULL,
	duration_sec INT NOT NULL,
	distance_meters DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (from_stop, to_stop)
);

CREATE TABLE IF NOT EXISTS street_node (
	idx INT PRIMARY KEY,
	osm_id BIGINT NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS street_edge (
	from_node INT NOT NULL,
	to_node INT NOT NULL,
	length_meters DOUBLE PRECISION NOT NULL,
	highway TEXT NOT NULL,
	PRIMARY KEY (from_node, to_node)
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}

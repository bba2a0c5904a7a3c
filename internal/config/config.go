// Package config loads the routing engine's environment-variable
// configuration, in the teacher's LoadConfigFromEnv idiom (see
// internal/db, internal/cache) generalized to the engine's own keys.
package config

import (
	"os"
	"strconv"
	"time"
)

// Engine holds every tunable named in the routing engine's
// configuration table. Access and egress radii and ranked caps are
// independent keys; the number of Raptor rounds is derived from
// AdditionalTransfers as R = 1 + AdditionalTransfers.
type Engine struct {
	MaxAccessWalkMeters       float64
	MaxEgressWalkMeters       float64
	MaxAccessStops            int
	MaxEgressStops            int
	WalkSpeedMPS              float64
	SearchWindowSeconds       int
	AdditionalTransfers       int
	AStarMaxIterations        int
	AStarMaxDistanceMeters    float64
	MaxTransferDistanceMeters float64
	AccessTaskTimeout         time.Duration
	CacheTTL                  time.Duration
	CacheMutexTTL             time.Duration
}

// LoadEngineFromEnv loads the engine configuration from environment
// variables, falling back to spec defaults for anything unset.
func LoadEngineFromEnv() *Engine {
	return &Engine{
		MaxAccessWalkMeters:       getFloat("MAX_ACCESS_WALK_METERS", 400.0),
		MaxEgressWalkMeters:       getFloat("MAX_EGRESS_WALK_METERS", 400.0),
		MaxAccessStops:            getInt("MAX_ACCESS_STOPS", 5),
		MaxEgressStops:            getInt("MAX_EGRESS_STOPS", 5),
		WalkSpeedMPS:              getFloat("WALK_SPEED_MPS", 1.2),
		SearchWindowSeconds:       getInt("SEARCH_WINDOW_SECONDS", 900),
		AdditionalTransfers:       getInt("numberOfAdditionalTransfers", 3),
		AStarMaxIterations:        getInt("A_STAR_MAX_ITERATIONS", 15000),
		AStarMaxDistanceMeters:    getFloat("A_STAR_MAX_DISTANCE_METERS", 500.0),
		MaxTransferDistanceMeters: getFloat("MAX_TRANSFER_DISTANCE_METERS", 500.0),
		AccessTaskTimeout:         getDuration("ACCESS_TASK_TIMEOUT", 2*time.Second),
		CacheTTL:                  getDuration("CACHE_TTL", 10*time.Minute),
		CacheMutexTTL:             getDuration("CACHE_MUTEX_TTL", 5*time.Second),
	}
}

// MaxRounds returns the Raptor round bound implied by the configured
// transfer budget.
func (e *Engine) MaxRounds() int { return 1 + e.AdditionalTransfers }

// Postgres holds the connection parameters for the prebuilt-state
// store, mirroring the teacher's internal/db.Config field-for-field.
type Postgres struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

func LoadPostgresFromEnv() *Postgres {
	return &Postgres{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getInt("DB_PORT", 5432),
		Database: getEnv("DB_NAME", "transit_engine"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MinConns: int32(getInt("DB_MIN_CONNS", 5)),
		MaxConns: int32(getInt("DB_MAX_CONNS", 20)),
	}
}

// Redis holds the connection parameters for the itinerary cache,
// mirroring the teacher's internal/cache.Config.
type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func LoadRedisFromEnv() *Redis {
	return &Redis{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getInt("REDIS_DB", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

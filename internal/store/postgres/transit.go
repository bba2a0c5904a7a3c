package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

const batchSize = 1000

// SaveTransitData persists a built TransitData, batching inserts the
// way the teacher's graph.Builder batches node/edge inserts.
func SaveTransitData(ctx context.Context, pool *pgxpool.Pool, data *transitdata.TransitData) error {
	if _, err := pool.Exec(ctx, "TRUNCATE engine_stop, engine_pattern, engine_trip, engine_transfer CASCADE"); err != nil {
		return fmt.Errorf("postgres: clearing transit tables: %w", err)
	}

	gtfsID := make([]string, data.NumStops())
	for id, s := range data.StopIndexByID {
		gtfsID[s] = id
	}

	batch := &pgx.Batch{}
	for i := 0; i < data.NumStops(); i++ {
		s := model.StopIndex(i)
		batch.Queue(`INSERT INTO engine_stop (idx, stop_id, name, lat, lon) VALUES ($1,$2,$3,$4,$5)`,
			i, gtfsID[i], data.StopName(s), data.StopLat(s), data.StopLon(s))
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
	for i, route := range data.Routes {
		stopSeq := make([]int32, len(route.Pattern.StopSequence))
		for j, s := range route.Pattern.StopSequence {
			stopSeq[j] = int32(s)
		}
		batch.Queue(`INSERT INTO engine_pattern (idx, route_id, short_name, long_name, route_type, mode, debug_tag, stop_sequence, slack_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			i, route.ID, route.ShortName, route.LongName, route.RouteType, string(route.Mode), route.Pattern.DebugTag, stopSeq, int16(route.Pattern.SlackIdx))
		if batch.Len() >= batchSize {
			if err := execBatch(ctx, pool, batch); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}

		for ti, trip := range route.Timetable.Trips {
			arr := make([]int32, trip.NumStops())
			dep := make([]int32, trip.NumStops())
			for p := 0; p < trip.NumStops(); p++ {
				arr[p] = int32(trip.Arrival(p))
				dep[p] = int32(trip.Departure(p))
			}
			batch.Queue(`INSERT INTO engine_trip (pattern_idx, trip_position, display_id, arrival_sec, departure_sec)
				VALUES ($1,$2,$3,$4,$5)`, i, ti, trip.DisplayID, arr, dep)
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

	batch = &pgx.Batch{}
	for s := 0; s < data.NumStops(); s++ {
		for _, tr := range data.TransfersFromStop(model.StopIndex(s)) {
			batch.Queue(`INSERT INTO engine_transfer (from_stop, to_stop, duration_sec, distance_meters) VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
				s, int(tr.ToStop), tr.DurationSec, tr.DistanceMeters)
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

// LoadTransitData rebuilds a TransitData from the persisted tables.
func LoadTransitData(ctx context.Context, pool *pgxpool.Pool) (*transitdata.TransitData, error) {
	stopRows, err := pool.Query(ctx, `SELECT idx, stop_id, name, lat, lon FROM engine_stop ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading stops: %w", err)
	}
	defer stopRows.Close()

	stopIndexByID := make(map[string]model.StopIndex)
	var names []string
	var lats, lons []float64
	for stopRows.Next() {
		var idx int
		var stopID, name string
		var lat, lon float64
		if err := stopRows.Scan(&idx, &stopID, &name, &lat, &lon); err != nil {
			return nil, err
		}
		stopIndexByID[stopID] = model.StopIndex(idx)
		names = append(names, name)
		lats = append(lats, lat)
		lons = append(lons, lon)
	}

	stops := model.Stops{Names: names, Lats: lats, Lons: lons, PatternsAt: make([][]model.PatternIndex, len(names))}

	patternRows, err := pool.Query(ctx, `SELECT idx, route_id, short_name, long_name, route_type, mode, debug_tag, stop_sequence, slack_index FROM engine_pattern ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading patterns: %w", err)
	}
	defer patternRows.Close()

	var routes []model.Route
	for patternRows.Next() {
		var idx int
		var routeID, shortName, longName, modeStr, debugTag string
		var routeType int
		var stopSeq []int32
		var slackIdx int16
		if err := patternRows.Scan(&idx, &routeID, &shortName, &longName, &routeType, &modeStr, &debugTag, &stopSeq, &slackIdx); err != nil {
			return nil, err
		}
		seq := make([]model.StopIndex, len(stopSeq))
		for i, s := range stopSeq {
			seq[i] = model.StopIndex(s)
		}
		routes = append(routes, model.Route{
			ID: routeID, ShortName: shortName, LongName: longName, RouteType: routeType,
			Mode: model.TransitMode(modeStr),
			Pattern: model.Pattern{
				Index: model.PatternIndex(idx), StopSequence: seq,
				SlackIdx: model.SlackIndex(slackIdx), DebugTag: debugTag,
			},
		})
		for _, s := range seq {
			if at := stops.PatternsAt[s]; len(at) > 0 && at[len(at)-1] == model.PatternIndex(idx) {
				continue
			}
			stops.PatternsAt[s] = append(stops.PatternsAt[s], model.PatternIndex(idx))
		}
	}

	tripRows, err := pool.Query(ctx, `SELECT pattern_idx, trip_position, display_id, arrival_sec, departure_sec FROM engine_trip ORDER BY pattern_idx, trip_position`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading trips: %w", err)
	}
	defer tripRows.Close()

	for tripRows.Next() {
		var patternIdx, pos int
		var displayID string
		var arr, dep []int32
		if err := tripRows.Scan(&patternIdx, &pos, &displayID, &arr, &dep); err != nil {
			return nil, err
		}
		arrival := make([]int, len(arr))
		departure := make([]int, len(dep))
		for i := range arr {
			arrival[i] = int(arr[i])
			departure[i] = int(dep[i])
		}
		routes[patternIdx].Timetable.Trips = append(routes[patternIdx].Timetable.Trips, model.NewTripSchedule(arrival, departure, displayID))
	}

	transferRows, err := pool.Query(ctx, `SELECT from_stop, to_stop, duration_sec, distance_meters FROM engine_transfer`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading transfers: %w", err)
	}
	defer transferRows.Close()

	transfersFrom := make([][]model.Transfer, len(names))
	transfersTo := make([][]model.Transfer, len(names))
	for transferRows.Next() {
		var from, to, dur int
		var dist float64
		if err := transferRows.Scan(&from, &to, &dur, &dist); err != nil {
			return nil, err
		}
		transfersFrom[from] = append(transfersFrom[from], model.Transfer{ToStop: model.StopIndex(to), DurationSec: dur, DistanceMeters: dist})
		transfersTo[to] = append(transfersTo[to], model.Transfer{ToStop: model.StopIndex(from), DurationSec: dur, DistanceMeters: dist})
	}

	return &transitdata.TransitData{
		Stops:         stops,
		Routes:        routes,
		TransfersFrom: transfersFrom,
		TransfersTo:   transfersTo,
		Slack:         model.DefaultSlackTable(),
		StopIndexByID: stopIndexByID,
	}, nil
}

func execBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch) error {
	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: batch execution failed at query %d: %w", i, err)
		}
	}
	return nil
}

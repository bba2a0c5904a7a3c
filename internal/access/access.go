// Package access implements the access/egress resolver of spec §4.6
// (C4): turning a coordinate into a ranked list of nearby stops with
// realistic walk times, either haversine-only or OSM-backed. The
// OSM-backed fan-out is grounded in the teacher's
// internal/api/handlers.go goroutine-per-strategy pattern, generalized
// to one goroutine per candidate stop bounded to runtime.NumCPU()
// workers (spec §5's fixed-size worker pool).
package access

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hanroute/transit-engine/internal/geo"
	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/street"
	"github.com/hanroute/transit-engine/internal/transitdata"
	"github.com/hanroute/transit-engine/internal/walk"
)

const (
	DefaultMaxWalkRadiusMeters = 400.0
	// DefaultMaxStops caps the resolver's internal ranked list; the
	// per-side MaxAccessStops/MaxEgressStops trim further below it.
	DefaultMaxStops         = 30
	DefaultStopCap          = 5
	haversineCandidateCount = 30
	perCandidateTimeout     = 2 * time.Second
	nearestNodeSearchRadius = 300.0
	fallbackDetourFactor    = 1.3
)

// Resolver turns coordinates into ranked stop lists. When Street is
// nil it only ever runs in haversine-only mode. Access and egress
// sides carry their own radius and ranked cap; WalkOptions bounds the
// per-candidate A* searches in OSM-backed mode.
type Resolver struct {
	Data   *transitdata.TransitData
	Street *street.Graph

	AccessRadiusMeters float64
	EgressRadiusMeters float64
	MaxAccessStops     int
	MaxEgressStops     int
	WalkOptions        walk.Options
	TaskTimeout        time.Duration

	stopNearestNode []street.NodeID
	stopHasNode     []bool
}

// NewResolver builds a resolver, precomputing stopNearestNode for
// every stop when a street graph is attached (spec §4.6).
func NewResolver(data *transitdata.TransitData, streetGraph *street.Graph) *Resolver {
	r := &Resolver{
		Data:               data,
		Street:             streetGraph,
		AccessRadiusMeters: DefaultMaxWalkRadiusMeters,
		EgressRadiusMeters: DefaultMaxWalkRadiusMeters,
		MaxAccessStops:     DefaultStopCap,
		MaxEgressStops:     DefaultStopCap,
		WalkOptions:        walk.DefaultOptions(),
		TaskTimeout:        perCandidateTimeout,
	}
	if streetGraph != nil {
		n := data.NumStops()
		r.stopNearestNode = make([]street.NodeID, n)
		r.stopHasNode = make([]bool, n)
		for s := 0; s < n; s++ {
			node, _, ok := streetGraph.NearestNode(data.StopLat(model.StopIndex(s)), data.StopLon(model.StopIndex(s)), nearestNodeSearchRadius)
			r.stopHasNode[s] = ok
			if ok {
				r.stopNearestNode[s] = node
			}
		}
	}
	return r
}

type ranked struct {
	stop     model.StopIndex
	distance float64
}

// haversineCandidates returns every stop within Rmax, sorted ascending
// by distance, pre-filtered by a cheap latitude bounding box, and
// keeps only the first limit of them when limit > 0.
func (r *Resolver) haversineCandidates(lat, lon, radiusMeters float64, limit int) []ranked {
	latBound := radiusMeters / 111000.0
	var candidates []ranked
	n := r.Data.NumStops()
	for s := 0; s < n; s++ {
		stopLat := r.Data.StopLat(model.StopIndex(s))
		if abs(stopLat-lat) > latBound {
			continue
		}
		d := geo.HaversineMeters(lat, lon, stopLat, r.Data.StopLon(model.StopIndex(s)))
		if d <= radiusMeters {
			candidates = append(candidates, ranked{stop: model.StopIndex(s), distance: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Access resolves accessible stops near (lat, lon) for the origin side
// of a query; Egress does the same shape for the destination side. Both
// share the same ranking/fan-out logic and only differ in radius, cap
// and result type.
func (r *Resolver) Access(ctx context.Context, lat, lon float64) []model.AccessRecord {
	durations := r.resolve(ctx, lat, lon, r.AccessRadiusMeters, r.MaxAccessStops)
	out := make([]model.AccessRecord, len(durations))
	for i, d := range durations {
		out[i] = model.AccessRecord{Stop: d.stop, DurationSec: d.durationSec, DistanceMeters: d.distanceMeters}
	}
	return out
}

func (r *Resolver) Egress(ctx context.Context, lat, lon float64) []model.EgressRecord {
	durations := r.resolve(ctx, lat, lon, r.EgressRadiusMeters, r.MaxEgressStops)
	out := make([]model.EgressRecord, len(durations))
	for i, d := range durations {
		out[i] = model.EgressRecord{Stop: d.stop, DurationSec: d.durationSec, DistanceMeters: d.distanceMeters}
	}
	return out
}

type walkResult struct {
	stop           model.StopIndex
	durationSec    int
	distanceMeters float64
}

// resolve runs the mode-appropriate search, caps the ranked list at
// DefaultMaxStops, then trims to the per-side cap.
func (r *Resolver) resolve(ctx context.Context, lat, lon, radiusMeters float64, maxStops int) []walkResult {
	var out []walkResult
	if r.Street == nil {
		out = r.haversineOnly(lat, lon, radiusMeters)
	} else {
		out = r.osmBacked(ctx, lat, lon, radiusMeters)
	}
	if len(out) > DefaultMaxStops {
		out = out[:DefaultMaxStops]
	}
	if maxStops > 0 && len(out) > maxStops {
		out = out[:maxStops]
	}
	return out
}

func (r *Resolver) haversineOnly(lat, lon, radiusMeters float64) []walkResult {
	candidates := r.haversineCandidates(lat, lon, radiusMeters, 0)
	out := make([]walkResult, len(candidates))
	for i, c := range candidates {
		out[i] = walkResult{stop: c.stop, durationSec: walkSeconds(c.distance), distanceMeters: c.distance}
	}
	return out
}

// osmBacked implements the OSM-backed mode of spec §4.6: locate the
// origin's nearest street node, fan out a bounded worker pool over the
// haversine-closest K candidates, and per candidate compute a real
// walking distance via A*, falling back to haversine*1.3 on failure.
func (r *Resolver) osmBacked(ctx context.Context, lat, lon, radiusMeters float64) []walkResult {
	originNode, originDist, ok := r.Street.NearestNode(lat, lon, nearestNodeSearchRadius)
	if !ok {
		return r.haversineFallback(lat, lon, radiusMeters)
	}

	candidates := r.haversineCandidates(lat, lon, radiusMeters*3, haversineCandidateCount)
	if len(candidates) == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(candidates) {
		numWorkers = len(candidates)
	}

	jobs := make(chan ranked)
	results := make(chan walkResult, len(candidates))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results <- r.walkCandidate(ctx, lat, lon, originNode, originDist, c)
			}
		}()
	}

	go func() {
		for _, c := range candidates {
			jobs <- c
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []walkResult
	for res := range results {
		if res.distanceMeters <= radiusMeters {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].distanceMeters < out[j].distanceMeters })
	return out
}

// walkCandidate computes one candidate's realistic walk distance,
// bounded by the per-task timeout (spec §4.6, default 2 seconds). A
// task that runs out of time comes back with an infinite distance, so
// osmBacked's radius filter discards it.
func (r *Resolver) walkCandidate(ctx context.Context, lat, lon float64, originNode street.NodeID, originDist float64, c ranked) walkResult {
	taskCtx, cancel := context.WithTimeout(ctx, r.TaskTimeout)
	defer cancel()

	fallback := walkResult{stop: c.stop, durationSec: walkSeconds(c.distance * fallbackDetourFactor), distanceMeters: c.distance * fallbackDetourFactor}
	timedOut := walkResult{stop: c.stop, distanceMeters: math.Inf(1)}

	if !r.stopHasNode[c.stop] {
		return fallback
	}

	type searchOutcome struct {
		res *walk.Result
		err error
	}
	done := make(chan searchOutcome, 1)
	go func() {
		res, err := walk.Search(taskCtx, r.Street, originNode, r.stopNearestNode[c.stop], r.WalkOptions)
		done <- searchOutcome{res, err}
	}()

	select {
	case <-taskCtx.Done():
		return timedOut
	case out := <-done:
		if out.err != nil {
			if taskCtx.Err() != nil {
				return timedOut
			}
			return fallback
		}
		stopNode := r.stopNearestNode[c.stop]
		total := out.res.DistanceMeters + originDist + geo.HaversineMeters(
			r.Street.NodeLat(stopNode), r.Street.NodeLon(stopNode), r.Data.StopLat(c.stop), r.Data.StopLon(c.stop))
		return walkResult{stop: c.stop, durationSec: walkSeconds(total), distanceMeters: total}
	}
}

func (r *Resolver) haversineFallback(lat, lon, radiusMeters float64) []walkResult {
	candidates := r.haversineCandidates(lat, lon, radiusMeters, DefaultMaxStops)
	out := make([]walkResult, len(candidates))
	for i, c := range candidates {
		d := c.distance * fallbackDetourFactor
		out[i] = walkResult{stop: c.stop, durationSec: walkSeconds(d), distanceMeters: d}
	}
	return out
}

func walkSeconds(distanceMeters float64) int {
	const walkSpeedMPS = 1.2
	return int(math.Ceil(distanceMeters / walkSpeedMPS))
}

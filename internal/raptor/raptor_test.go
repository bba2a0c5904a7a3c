package raptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

// tripSpec is one trip's full arrival/departure schedule across its
// pattern's stop sequence.
type tripSpec struct {
	arrival   []int
	departure []int
}

// routeSpec is a pattern's stop sequence plus every trip realizing it.
type routeSpec struct {
	stops []int
	trips []tripSpec
}

// newFixture builds a TransitData by hand from route specs, skipping the
// GTFS loader entirely.
func newFixture(numStops int, routes []routeSpec) *transitdata.TransitData {
	stops := model.NewStops(numStops)
	var built []model.Route
	for ri, r := range routes {
		stopIdx := make([]model.StopIndex, len(r.stops))
		for i, s := range r.stops {
			stopIdx[i] = model.StopIndex(s)
		}
		var trips []model.TripSchedule
		for _, tr := range r.trips {
			trips = append(trips, model.NewTripSchedule(tr.arrival, tr.departure, "trip"))
		}
		pattern := model.Pattern{Index: model.PatternIndex(ri), StopSequence: stopIdx, SlackIdx: model.SlackBus}
		built = append(built, model.Route{ID: "R", Pattern: pattern, Timetable: model.Timetable{Trips: trips}})
		for _, s := range stopIdx {
			stops.PatternsAt[s] = append(stops.PatternsAt[s], model.PatternIndex(ri))
		}
	}

	transfersFrom := make([][]model.Transfer, numStops)
	transfersTo := make([][]model.Transfer, numStops)

	return &transitdata.TransitData{
		Stops:         stops,
		Routes:        built,
		TransfersFrom: transfersFrom,
		TransfersTo:   transfersTo,
		Slack:         model.DefaultSlackTable(),
		StopIndexByID: map[string]model.StopIndex{},
	}
}

func TestOneBoardingRoute(t *testing.T) {
	// S3: A(0)->B(1)->C(2), single trip 09:00/09:10/09:20.
	data := newFixture(3, []routeSpec{
		{
			stops: []int{0, 1, 2},
			trips: []tripSpec{{
				arrival:   []int{9 * 3600, 9*3600 + 600, 9*3600 + 1200},
				departure: []int{9 * 3600, 9*3600 + 600, 9*3600 + 1200},
			}},
		},
	})

	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 2, DurationSec: 0}}

	result := Run(context.Background(), data, access, egress, 8*3600+55*60, DefaultConfig())

	alightSlack := data.Slack.AlightSlack(model.SlackBus)
	require.Less(t, result.BestArrival[2], Infinity)
	assert.Equal(t, 9*3600+1200+alightSlack, result.BestArrival[2])
}

func TestTransferRequired(t *testing.T) {
	// S4: P1 A(0)->B(1) 09:00->09:05; P2 B(1)->C(2) 09:10->09:20;
	// transfersFrom[B] = [(B, 0m, 0s)].
	data := newFixture(3, []routeSpec{
		{
			stops: []int{0, 1},
			trips: []tripSpec{{
				arrival:   []int{9 * 3600, 9*3600 + 300},
				departure: []int{9 * 3600, 9*3600 + 300},
			}},
		},
		{
			stops: []int{1, 2},
			trips: []tripSpec{{
				arrival:   []int{9*3600 + 600, 9*3600 + 1200},
				departure: []int{9*3600 + 600, 9*3600 + 1200},
			}},
		},
	})
	data.TransfersFrom[1] = []model.Transfer{{ToStop: 1, DurationSec: 0, DistanceMeters: 0}}
	data.TransfersTo[1] = []model.Transfer{{ToStop: 1, DurationSec: 0, DistanceMeters: 0}}

	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 2, DurationSec: 0}}

	result := Run(context.Background(), data, access, egress, 8*3600+55*60, DefaultConfig())

	require.Less(t, result.BestArrival[2], Infinity)
	// Reached via exactly 2 rides: round 2's label must be finite and
	// equal to the overall best (invariant P1/P2).
	assert.Equal(t, result.BestArrival[2], result.RoundArrival[2][2])
	assert.Equal(t, Infinity, result.RoundArrival[1][2])
}

func TestExpiredDeadlineStopsBeforeFirstRound(t *testing.T) {
	data := newFixture(3, []routeSpec{
		{
			stops: []int{0, 1, 2},
			trips: []tripSpec{{
				arrival:   []int{9 * 3600, 9*3600 + 600, 9*3600 + 1200},
				departure: []int{9 * 3600, 9*3600 + 600, 9*3600 + 1200},
			}},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	result := Run(ctx, data, access, nil, 8*3600+55*60, DefaultConfig())

	assert.True(t, result.TimedOut)
	// Round 0 (access seeding) is not a transit round and still applies.
	assert.Less(t, result.RoundArrival[0][0], Infinity)
	assert.Equal(t, Infinity, result.BestArrival[2])
}

func TestNoPath(t *testing.T) {
	// S5: two disjoint patterns, no transfer between them.
	data := newFixture(4, []routeSpec{
		{stops: []int{0, 1}, trips: []tripSpec{{arrival: []int{9 * 3600, 9*3600 + 600}, departure: []int{9 * 3600, 9*3600 + 600}}}},
		{stops: []int{2, 3}, trips: []tripSpec{{arrival: []int{9 * 3600, 9*3600 + 600}, departure: []int{9 * 3600, 9*3600 + 600}}}},
	})

	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 3, DurationSec: 0}}

	result := Run(context.Background(), data, access, egress, 8*3600+55*60, DefaultConfig())

	assert.Equal(t, Infinity, result.BestArrival[3])
}

func TestSearchWindowFiltering(t *testing.T) {
	// S6: pattern A->B one trip at 10:00; depart 09:00, window 900s.
	// The engine itself doesn't reject the boarding (it always searches
	// forward from t0); the caller applies the post-hoc window filter
	// to the first-boarding time captured in the back-pointer chain.
	data := newFixture(2, []routeSpec{
		{stops: []int{0, 1}, trips: []tripSpec{{arrival: []int{10 * 3600, 10*3600 + 600}, departure: []int{10 * 3600, 10*3600 + 600}}}},
	})

	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 1, DurationSec: 0}}

	cfg := DefaultConfig()
	cfg.SearchWindowSeconds = 900
	t0 := 9 * 3600
	result := Run(context.Background(), data, access, egress, t0, cfg)

	require.Less(t, result.BestArrival[1], Infinity)
	firstBoardTime := result.RoundArrival[0][0]
	withinWindow := firstBoardTime >= t0 && firstBoardTime < t0+cfg.SearchWindowSeconds
	assert.True(t, withinWindow, "access label should be within window")

	// But the pattern's actual departure (10:00) is what the itinerary
	// layer checks against the window for trip-bearing legs; assert it
	// falls outside here, which is why the planner must discard this
	// result under the real window semantics tested at the planner layer.
	assert.False(t, 10*3600 >= t0 && 10*3600 < t0+cfg.SearchWindowSeconds)
}

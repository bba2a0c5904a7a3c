package itinerary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

// twoLegNetwork builds P1 A(0)->B(1) and P2 B(1)->C(2) with a zero-cost
// transfer at B, so reaching C takes two boardings.
func twoLegNetwork() *transitdata.TransitData {
	stops := model.NewStops(3)

	p1 := model.Route{
		ID:        "P1",
		ShortName: "1",
		Pattern:   model.Pattern{Index: 0, StopSequence: []model.StopIndex{0, 1}, SlackIdx: model.SlackBus},
		Timetable: model.Timetable{Trips: []model.TripSchedule{
			model.NewTripSchedule([]int{9 * 3600, 9*3600 + 300}, []int{9 * 3600, 9*3600 + 300}, "p1-t1"),
		}},
	}
	p2 := model.Route{
		ID:        "P2",
		ShortName: "2",
		Pattern:   model.Pattern{Index: 1, StopSequence: []model.StopIndex{1, 2}, SlackIdx: model.SlackBus},
		Timetable: model.Timetable{Trips: []model.TripSchedule{
			model.NewTripSchedule([]int{9*3600 + 600, 9*3600 + 1200}, []int{9*3600 + 600, 9*3600 + 1200}, "p2-t1"),
		}},
	}

	stops.PatternsAt[0] = []model.PatternIndex{0}
	stops.PatternsAt[1] = []model.PatternIndex{0, 1}
	stops.PatternsAt[2] = []model.PatternIndex{1}

	return &transitdata.TransitData{
		Stops:         stops,
		Routes:        []model.Route{p1, p2},
		TransfersFrom: make([][]model.Transfer, 3),
		TransfersTo:   make([][]model.Transfer, 3),
		Slack:         model.DefaultSlackTable(),
		StopIndexByID: map[string]model.StopIndex{},
	}
}

func TestReconstructSingleRide(t *testing.T) {
	data := twoLegNetwork()
	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 1, DurationSec: 0}}

	result := raptor.Run(context.Background(), data, access, egress, 8*3600+55*60, raptor.DefaultConfig())
	it, ok := Reconstruct(data, result, 1, egress[0], access)
	require.True(t, ok)

	require.Len(t, it.Legs, 3)
	assert.Equal(t, LegAccessWalk, it.Legs[0].Type)
	assert.Equal(t, LegRide, it.Legs[1].Type)
	assert.Equal(t, LegEgressWalk, it.Legs[2].Type)
	assert.Equal(t, 9*3600, it.Legs[1].BoardSec)
	assert.Equal(t, 9*3600+300, it.Legs[1].AlightSec)
	assert.Equal(t, 1, it.Rounds)
}

func TestReconstructTwoRidesIsTemporallyConsistent(t *testing.T) {
	data := twoLegNetwork()
	access := []model.AccessRecord{{Stop: 0, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 2, DurationSec: 0}}

	result := raptor.Run(context.Background(), data, access, egress, 8*3600+55*60, raptor.DefaultConfig())
	it, ok := Reconstruct(data, result, 2, egress[0], access)
	require.True(t, ok)

	// Exactly two ride legs, consuming exactly two rounds.
	rides := 0
	for _, l := range it.Legs {
		if l.Type == LegRide {
			rides++
		}
	}
	assert.Equal(t, 2, rides)
	assert.Equal(t, 2, it.Rounds)

	// Adjacent ride legs never go back in time: each boarding happens at
	// or after the previous alighting.
	lastAlight := -1
	for _, l := range it.Legs {
		if l.Type != LegRide {
			continue
		}
		if lastAlight >= 0 {
			assert.GreaterOrEqual(t, l.BoardSec, lastAlight)
		}
		lastAlight = l.AlightSec
	}
}

func TestReconstructUnreachedStopFails(t *testing.T) {
	data := twoLegNetwork()
	access := []model.AccessRecord{{Stop: 2, DurationSec: 0}}
	egress := []model.EgressRecord{{Stop: 0, DurationSec: 0}}

	result := raptor.Run(context.Background(), data, access, egress, 8*3600+55*60, raptor.DefaultConfig())
	_, ok := Reconstruct(data, result, 0, egress[0], access)
	assert.False(t, ok)
}

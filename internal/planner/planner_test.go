package planner

import (
	"context"
	"testing"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

// oneRouteData builds a two-stop, one-trip network: A(0) -> B(1).
func oneRouteData(departSec, arriveSec int) *transitdata.TransitData {
	stops := model.NewStops(2)
	pattern := model.Pattern{Index: 0, StopSequence: []model.StopIndex{0, 1}, SlackIdx: model.SlackBus}
	trip := model.NewTripSchedule([]int{departSec, arriveSec}, []int{departSec, arriveSec}, "trip")
	route := model.Route{ID: "R", Pattern: pattern, Timetable: model.Timetable{Trips: []model.TripSchedule{trip}}}
	stops.PatternsAt[0] = []model.PatternIndex{0}
	stops.PatternsAt[1] = []model.PatternIndex{0}

	return &transitdata.TransitData{
		Stops:         stops,
		Routes:        []model.Route{route},
		TransfersFrom: make([][]model.Transfer, 2),
		TransfersTo:   make([][]model.Transfer, 2),
		Slack:         model.DefaultSlackTable(),
		StopIndexByID: map[string]model.StopIndex{},
	}
}

func TestRouteByStopFindsItinerary(t *testing.T) {
	data := oneRouteData(9*3600, 9*3600+600)
	p := New(data, nil, raptor.DefaultConfig())

	result, err := p.RouteByStop(context.Background(), 0, 1, 8*3600+55*60)
	if err != nil {
		t.Fatalf("expected an itinerary, got error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected exactly one itinerary, got %d", len(result))
	}
	if result[0].ArriveSec <= result[0].DepartSec {
		t.Fatalf("arrival must be after departure: %+v", result[0])
	}
}

func TestRouteByStopIsDeterministic(t *testing.T) {
	data := oneRouteData(9*3600, 9*3600+600)
	p := New(data, nil, raptor.DefaultConfig())

	first, err := p.RouteByStop(context.Background(), 0, 1, 8*3600+55*60)
	if err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	second, err := p.RouteByStop(context.Background(), 0, 1, 8*3600+55*60)
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("itinerary counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ArriveSec != second[i].ArriveSec || len(first[i].Legs) != len(second[i].Legs) {
			t.Fatalf("itineraries differ between identical queries: %+v vs %+v", first[i], second[i])
		}
	}
}

func TestRouteByStopRejectsOutsideSearchWindow(t *testing.T) {
	// The only trip departs at 10:00; querying at 09:00 with a 900s
	// window means that boarding falls outside [t0, t0+window).
	data := oneRouteData(10*3600, 10*3600+600)
	cfg := raptor.DefaultConfig()
	cfg.SearchWindowSeconds = 900
	p := New(data, nil, cfg)

	_, err := p.RouteByStop(context.Background(), 0, 1, 9*3600)
	if err != ErrNoPath {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestRouteByStopNoPathWhenUnreachable(t *testing.T) {
	data := oneRouteData(9*3600, 9*3600+600)
	// Stop 1 is the only reachable destination; asking for a
	// nonexistent connection from stop 1 back to stop 0 has no route.
	p := New(data, nil, raptor.DefaultConfig())

	_, err := p.RouteByStop(context.Background(), 1, 0, 8*3600)
	if err != ErrNoPath {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

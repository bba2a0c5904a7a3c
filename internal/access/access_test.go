package access

import (
	"context"
	"testing"

	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

func threeStopData() *transitdata.TransitData {
	stops := model.Stops{
		Names:      []string{"Near", "Mid", "Far"},
		Lats:       []float64{37.5000, 37.5009, 37.6000},
		Lons:       []float64{127.0000, 127.0000, 127.0000},
		PatternsAt: make([][]model.PatternIndex, 3),
	}
	return &transitdata.TransitData{Stops: stops, Slack: model.DefaultSlackTable()}
}

func TestAccessHaversineOnlyRanksByDistance(t *testing.T) {
	r := NewResolver(threeStopData(), nil)
	r.AccessRadiusMeters = 400.0

	records := r.Access(context.Background(), 37.5000, 127.0000)

	if len(records) != 2 {
		t.Fatalf("expected 2 stops within 400m, got %d: %+v", len(records), records)
	}
	if records[0].Stop != 0 {
		t.Fatalf("expected nearest stop first, got stop %d", records[0].Stop)
	}
	if records[0].DurationSec > records[1].DurationSec {
		t.Fatalf("expected ascending duration order: %+v", records)
	}
}

func TestAccessExcludesStopsBeyondRadius(t *testing.T) {
	r := NewResolver(threeStopData(), nil)
	r.AccessRadiusMeters = 400.0

	records := r.Access(context.Background(), 37.5000, 127.0000)
	for _, rec := range records {
		if rec.Stop == 2 {
			t.Fatalf("expected the far stop to be excluded, got %+v", records)
		}
	}
}

func TestEgressMirrorsAccessShape(t *testing.T) {
	r := NewResolver(threeStopData(), nil)
	r.EgressRadiusMeters = 400.0

	records := r.Egress(context.Background(), 37.5000, 127.0000)
	if len(records) != 2 {
		t.Fatalf("expected 2 stops within 400m, got %d", len(records))
	}
}

func TestAccessTrimsToConfiguredStopCap(t *testing.T) {
	r := NewResolver(threeStopData(), nil)
	r.AccessRadiusMeters = 400.0
	r.MaxAccessStops = 1

	records := r.Access(context.Background(), 37.5000, 127.0000)
	if len(records) != 1 {
		t.Fatalf("expected the ranked list trimmed to 1 stop, got %d", len(records))
	}
	if records[0].Stop != 0 {
		t.Fatalf("trim must keep the nearest stop, got stop %d", records[0].Stop)
	}
}

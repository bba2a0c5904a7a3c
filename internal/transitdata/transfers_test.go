package transitdata

import (
	"testing"

	"github.com/hanroute/transit-engine/internal/model"
)

func TestBuildTransfersSymmetric(t *testing.T) {
	stops := model.Stops{
		Names: []string{"A", "B", "C"},
		// B is ~111m north of A; C is far away.
		Lats: []float64{37.5000, 37.5010, 37.6000},
		Lons: []float64{127.0000, 127.0000, 127.0000},
	}

	from, to := buildTransfers(stops, 200.0, 1.2)

	if len(from[0]) != 1 || from[0][0].ToStop != 1 {
		t.Fatalf("expected stop A to have one transfer to B, got %+v", from[0])
	}
	if len(from[1]) != 1 || from[1][0].ToStop != 0 {
		t.Fatalf("expected stop B to have one transfer to A, got %+v", from[1])
	}
	if len(from[2]) != 0 {
		t.Fatalf("expected stop C to have no transfers, got %+v", from[2])
	}

	if from[0][0].DurationSec != to[1][0].DurationSec {
		t.Fatalf("from/to duration mismatch: %d vs %d", from[0][0].DurationSec, to[1][0].DurationSec)
	}
}

func TestBuildTransfersRespectsMaxDistance(t *testing.T) {
	stops := model.Stops{
		Names: []string{"A", "B"},
		Lats:  []float64{37.5000, 37.6000},
		Lons:  []float64{127.0000, 127.0000},
	}

	from, _ := buildTransfers(stops, 100.0, 1.2)

	if len(from[0]) != 0 || len(from[1]) != 0 {
		t.Fatalf("expected no transfers beyond maxDistanceMeters, got %+v / %+v", from[0], from[1])
	}
}

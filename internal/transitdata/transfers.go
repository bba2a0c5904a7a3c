package transitdata

import (
	"math"

	"github.com/hanroute/transit-engine/internal/geo"
	"github.com/hanroute/transit-engine/internal/model"
)

// buildTransfers generates symmetric walk edges between every pair of
// distinct stops within maxDistanceMeters (spec §3, Transfer;
// invariant P4). A lat/lon grid bucket index keeps this near-linear
// instead of the O(nStops^2) scan a naive all-pairs comparison would
// require (SPEC_FULL.md Open Question #1).
func buildTransfers(stops model.Stops, maxDistanceMeters, walkSpeedMPS float64) (from, to [][]model.Transfer) {
	n := stops.Len()
	from = make([][]model.Transfer, n)
	to = make([][]model.Transfer, n)

	grid := make(map[geo.Cell][]model.StopIndex)
	for i := 0; i < n; i++ {
		cell := geo.CellOf(stops.Lats[i], stops.Lons[i])
		grid[cell] = append(grid[cell], model.StopIndex(i))
	}

	radiusCells := geo.RadiusInCells(maxDistanceMeters)
	seen := make(map[[2]model.StopIndex]bool)

	for i := 0; i < n; i++ {
		s := model.StopIndex(i)
		center := geo.CellOf(stops.Lats[i], stops.Lons[i])
		// A degree of longitude shrinks with cos(lat), so east-west needs
		// more cells than north-south to cover the same distance.
		lonCells := radiusCells
		if c := math.Cos(stops.Lats[i] * math.Pi / 180); c > 0 {
			lonCells = int(math.Ceil(float64(radiusCells)/c)) + 1
		}
		for dLat := -radiusCells; dLat <= radiusCells; dLat++ {
			for dLon := -lonCells; dLon <= lonCells; dLon++ {
				cell := geo.Cell{Lat: center.Lat + int64(dLat), Lon: center.Lon + int64(dLon)}
				for _, other := range grid[cell] {
					if other == s {
						continue
					}
					key := [2]model.StopIndex{s, other}
					if s > other {
						key = [2]model.StopIndex{other, s}
					}
					if seen[key] {
						continue
					}

					dist := geo.HaversineMeters(stops.Lats[s], stops.Lons[s], stops.Lats[other], stops.Lons[other])
					if dist > maxDistanceMeters {
						continue
					}
					seen[key] = true

					durationSec := int(math.Ceil(dist / walkSpeedMPS))
					from[s] = append(from[s], model.Transfer{ToStop: other, DurationSec: durationSec, DistanceMeters: dist})
					from[other] = append(from[other], model.Transfer{ToStop: s, DurationSec: durationSec, DistanceMeters: dist})
					to[other] = append(to[other], model.Transfer{ToStop: s, DurationSec: durationSec, DistanceMeters: dist})
					to[s] = append(to[s], model.Transfer{ToStop: other, DurationSec: durationSec, DistanceMeters: dist})
				}
			}
		}
	}

	return from, to
}

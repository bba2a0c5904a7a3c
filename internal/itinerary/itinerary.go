// Package itinerary reconstructs a leg sequence from a finished Raptor
// search (spec §4.7, C7): access walk, alternating ride/transfer legs,
// egress walk.
package itinerary

import (
	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

// LegType distinguishes the four leg types a reconstructed itinerary
// is built from.
type LegType int8

const (
	LegAccessWalk LegType = iota
	LegRide
	LegTransferWalk
	LegEgressWalk
)

// Leg is one step of an itinerary. Walk legs set DistanceMeters and
// DurationSec; ride legs instead set Pattern/Trip/BoardStop/
// AlightStop/BoardSec/AlightSec and leave DistanceMeters/DurationSec
// at zero.
type Leg struct {
	Type           LegType
	FromStop       model.StopIndex
	ToStop         model.StopIndex
	DistanceMeters float64
	DurationSec    int

	Pattern    model.PatternIndex
	Trip       model.TripIndex
	BoardStop  model.StopIndex
	AlightStop model.StopIndex
	BoardSec   int
	AlightSec  int
}

// Itinerary is a complete origin-to-destination plan.
type Itinerary struct {
	DepartSec int
	ArriveSec int
	Rounds    int
	Legs      []Leg
}

// Reconstruct walks the back-pointer chain from (round, egressStop)
// back to round 0, producing legs in travel order, and appends the
// given egress walk. accessByStop resolves round 0's access-leg
// distance for the first leg.
func Reconstruct(data *transitdata.TransitData, result *raptor.Result, egressStop model.StopIndex, egress model.EgressRecord, access []model.AccessRecord) (*Itinerary, bool) {
	if result.BestArrival[egressStop] >= raptor.Infinity {
		return nil, false
	}

	round, ok := bestRoundFor(result, egressStop)
	if !ok {
		return nil, false
	}

	accessByStop := make(map[model.StopIndex]model.AccessRecord, len(access))
	for _, a := range access {
		accessByStop[a.Stop] = a
	}

	var reversed []Leg
	curRound, curStop := round, egressStop

	for curRound > 0 {
		bp := result.BackPtr[curRound][curStop]
		switch bp.Kind {
		case raptor.BackBoard:
			trip := data.Timetable(bp.Pattern).Trip(bp.Trip)
			reversed = append(reversed, Leg{
				Type:       LegRide,
				FromStop:   bp.BoardStop,
				ToStop:     curStop,
				Pattern:    bp.Pattern,
				Trip:       bp.Trip,
				BoardStop:  bp.BoardStop,
				AlightStop: curStop,
				BoardSec:   trip.Departure(bp.BoardPos),
				AlightSec:  trip.Arrival(bp.AlightPos),
			})
			curStop = bp.BoardStop
			curRound--
		case raptor.BackTransfer:
			distance := 0.0
			for _, tr := range data.TransfersFromStop(bp.FromStop) {
				if tr.ToStop == curStop && tr.DurationSec == bp.WalkSeconds {
					distance = tr.DistanceMeters
					break
				}
			}
			reversed = append(reversed, Leg{
				Type:           LegTransferWalk,
				FromStop:       bp.FromStop,
				ToStop:         curStop,
				DurationSec:    bp.WalkSeconds,
				DistanceMeters: distance,
			})
			curStop = bp.FromStop
			// Transfers stay within the same round (spec §4.5: they
			// don't count as rides).
		default:
			return nil, false
		}
	}

	access0, ok := accessByStop[curStop]
	if !ok {
		return nil, false
	}
	reversed = append(reversed, Leg{
		Type:           LegAccessWalk,
		ToStop:         curStop,
		DurationSec:    access0.DurationSec,
		DistanceMeters: access0.DistanceMeters,
	})

	legs := make([]Leg, len(reversed))
	for i, l := range reversed {
		legs[len(reversed)-1-i] = l
	}
	legs = append(legs, Leg{
		Type:           LegEgressWalk,
		FromStop:       egressStop,
		DurationSec:    egress.DurationSec,
		DistanceMeters: egress.DistanceMeters,
	})

	return &Itinerary{
		DepartSec: result.T0,
		ArriveSec: result.BestArrival[egressStop] + egress.DurationSec,
		Rounds:    round,
		Legs:      legs,
	}, true
}

// bestRoundFor finds which round's label equals the overall best
// arrival at s, per invariant P1/P2: the back-pointer chain from that
// (round, s) consumes exactly `round` boardings. Ties are broken
// toward the fewest rides, per spec §4.5's determinism rule.
func bestRoundFor(result *raptor.Result, s model.StopIndex) (int, bool) {
	best := result.BestArrival[s]
	if best >= raptor.Infinity {
		return 0, false
	}
	for k := 0; k < len(result.RoundArrival); k++ {
		if result.RoundArrival[k][s] == best {
			return k, true
		}
	}
	return 0, false
}

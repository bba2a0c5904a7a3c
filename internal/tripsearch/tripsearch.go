// Package tripsearch implements the per-pattern binary search into a
// timetable (spec §4.4, C5): finding the earliest boardable trip at a
// position given an earliest-board time. It sits in Raptor's hottest
// inner loop, so Searcher reuses a single mutable Result slot across
// calls instead of allocating one per search.
package tripsearch

import "github.com/hanroute/transit-engine/internal/model"

// Result is the outcome of one trip search. Found is false when no
// trip satisfies the query ("none", per spec §4.4).
type Result struct {
	Found     bool
	TripIndex model.TripIndex
	TimeAtPos int
	Position  int
}

// Searcher holds the single mutable Result slot its callers reuse.
type Searcher struct {
	result Result
}

// NewSearcher returns a Searcher ready for repeated use within one
// Raptor query.
func NewSearcher() *Searcher {
	return &Searcher{}
}

// Forward finds the smallest trip index j with departure(j, pos) >=
// earliestBoard and j <= limit (or unbounded if limit < 0), via binary
// search over the timetable's trips (O(log N)). The timetable's trips
// must already be sorted ascending by departure at every position —
// guaranteed by transitdata's FIFO pattern-splitting at build time.
func (s *Searcher) Forward(tt *model.Timetable, pos int, earliestBoard int, limit model.TripIndex) *Result {
	n := tt.NumTrips()
	hi := n - 1
	if limit >= 0 && int(limit) < hi {
		hi = int(limit)
	}

	lo := 0
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		trip := tt.Trip(model.TripIndex(mid))
		if trip.Departure(pos) >= earliestBoard {
			best = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	if best < 0 {
		s.result = Result{Found: false}
		return &s.result
	}

	trip := tt.Trip(model.TripIndex(best))
	s.result = Result{
		Found:     true,
		TripIndex: model.TripIndex(best),
		TimeAtPos: trip.Departure(pos),
		Position:  pos,
	}
	return &s.result
}

// Reverse finds the largest trip index j with arrival(j, pos) <=
// latestArrival, for reverse (destination-anchored) searches.
func (s *Searcher) Reverse(tt *model.Timetable, pos int, latestArrival int) *Result {
	n := tt.NumTrips()
	lo, hi := 0, n-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		trip := tt.Trip(model.TripIndex(mid))
		if trip.Arrival(pos) <= latestArrival {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best < 0 {
		s.result = Result{Found: false}
		return &s.result
	}

	trip := tt.Trip(model.TripIndex(best))
	s.result = Result{
		Found:     true,
		TripIndex: model.TripIndex(best),
		TimeAtPos: trip.Arrival(pos),
		Position:  pos,
	}
	return &s.result
}

// Package planner is the top-level entry point a query surface calls:
// it resolves access/egress, runs Raptor, reconstructs the itinerary,
// and applies the search-window post-hoc filter (spec §4.5, §9).
// Non-goals rule out Pareto-optimal multi-criteria search, so Route
// and RouteByStop return at most one itinerary.
package planner

import (
	"context"
	"fmt"

	"github.com/hanroute/transit-engine/internal/access"
	"github.com/hanroute/transit-engine/internal/itinerary"
	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/raptor"
	"github.com/hanroute/transit-engine/internal/transitdata"
)

// The error taxonomy of spec §7, as surfaced to callers: resolver
// found nothing near the origin or destination, the search exhausted
// every round without reaching an egress stop, or the deadline expired
// before anything complete was found.
var (
	ErrNoAccess = fmt.Errorf("planner: no stops within walking range of origin")
	ErrNoEgress = fmt.Errorf("planner: no stops within walking range of destination")
	ErrNoPath   = fmt.Errorf("planner: no itinerary found")
	ErrTimeout  = fmt.Errorf("planner: search deadline exceeded")
)

// Planner ties the resolver and Raptor core together for one Transit
// Data instance.
type Planner struct {
	Data     *transitdata.TransitData
	Resolver *access.Resolver
	Config   raptor.Config
}

func New(data *transitdata.TransitData, resolver *access.Resolver, cfg raptor.Config) *Planner {
	return &Planner{Data: data, Resolver: resolver, Config: cfg}
}

// Route plans a trip between two coordinates departing at or after
// departSec (seconds since local midnight). maxResults caps the
// returned list; values below 1 mean "no cap".
func (p *Planner) Route(ctx context.Context, fromLat, fromLon, toLat, toLon float64, departSec, maxResults int) ([]itinerary.Itinerary, error) {
	accessRecords := p.Resolver.Access(ctx, fromLat, fromLon)
	if len(accessRecords) == 0 {
		return nil, ErrNoAccess
	}
	egressRecords := p.Resolver.Egress(ctx, toLat, toLon)
	if len(egressRecords) == 0 {
		return nil, ErrNoEgress
	}
	result, err := p.route(ctx, accessRecords, egressRecords, departSec)
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(result) > maxResults {
		result = result[:maxResults]
	}
	return result, nil
}

// RouteByStop plans a trip directly between two dense stop indices,
// skipping coordinate resolution (used by the by-stop query surface).
func (p *Planner) RouteByStop(ctx context.Context, from, to model.StopIndex, departSec int) ([]itinerary.Itinerary, error) {
	accessRecords := []model.AccessRecord{{Stop: from, DurationSec: 0}}
	egressRecords := []model.EgressRecord{{Stop: to, DurationSec: 0}}
	return p.route(ctx, accessRecords, egressRecords, departSec)
}

func (p *Planner) route(ctx context.Context, accessRecords []model.AccessRecord, egressRecords []model.EgressRecord, departSec int) ([]itinerary.Itinerary, error) {
	result := raptor.Run(ctx, p.Data, accessRecords, egressRecords, departSec, p.Config)

	best, bestStop, found := bestEgress(result, egressRecords)
	if !found {
		if result.TimedOut {
			return nil, ErrTimeout
		}
		return nil, ErrNoPath
	}

	it, ok := itinerary.Reconstruct(p.Data, result, bestStop, best, accessRecords)
	if !ok {
		return nil, ErrNoPath
	}

	if !withinSearchWindow(it, departSec, p.Config.SearchWindowSeconds) {
		return nil, ErrNoPath
	}

	return []itinerary.Itinerary{*it}, nil
}

// bestEgress picks the egress record whose stop has the best
// (earliest, after adding its own walk) overall arrival.
func bestEgress(result *raptor.Result, egress []model.EgressRecord) (model.EgressRecord, model.StopIndex, bool) {
	bestArrival := raptor.Infinity
	var bestRec model.EgressRecord
	var bestStop model.StopIndex
	found := false

	for _, e := range egress {
		if result.BestArrival[e.Stop] >= raptor.Infinity {
			continue
		}
		total := result.BestArrival[e.Stop] + e.DurationSec
		if total < bestArrival {
			bestArrival = total
			bestRec = e
			bestStop = e.Stop
			found = true
		}
	}
	return bestRec, bestStop, found
}

// withinSearchWindow discards itineraries whose first boarding (the
// first ride leg's BoardSec, or DepartSec when there is no ride leg)
// falls outside [t0, t0+W), per
// spec §4.5/§9's post-hoc filter.
func withinSearchWindow(it *itinerary.Itinerary, t0, windowSeconds int) bool {
	if len(it.Legs) == 0 {
		return false
	}
	firstBoard := it.DepartSec
	for _, leg := range it.Legs {
		if leg.Type == itinerary.LegRide {
			firstBoard = leg.BoardSec
			break
		}
	}
	return firstBoard >= t0 && firstBoard < t0+windowSeconds
}

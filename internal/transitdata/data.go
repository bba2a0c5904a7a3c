// Package transitdata builds and exposes the compact, array-oriented
// transit data model of spec §3 (C3): stops, patterns, timetables, the
// stop-to-pattern index, and transfers. It is built once from a parsed
// GTFS feed (internal/gtfs) and is read-only and safe for concurrent
// use by any number of simultaneous Raptor queries afterwards.
package transitdata

import "github.com/hanroute/transit-engine/internal/model"

// TransitData is the immutable, shared transit network used by every
// query. Routes is indexed by model.PatternIndex (Pattern and Route
// are 1:1, per the design notes).
type TransitData struct {
	Stops         model.Stops
	Routes        []model.Route
	TransfersFrom [][]model.Transfer
	TransfersTo   [][]model.Transfer
	Slack         model.SlackTable

	StopIndexByID map[string]model.StopIndex
}

func (d *TransitData) NumStops() int { return d.Stops.Len() }

func (d *TransitData) NumPatterns() int { return len(d.Routes) }

// PatternsAtStop returns the deduplicated patterns touching stop s.
func (d *TransitData) PatternsAtStop(s model.StopIndex) []model.PatternIndex {
	return d.Stops.PatternsAt[s]
}

// TransfersFromStop returns the forward transfer edges leaving s, used
// by the forward Raptor search.
func (d *TransitData) TransfersFromStop(s model.StopIndex) []model.Transfer {
	return d.TransfersFrom[s]
}

// TransfersToStop returns the reverse transfer edges arriving at s,
// kept for symmetry and any future reverse search (spec §4.3).
func (d *TransitData) TransfersToStop(s model.StopIndex) []model.Transfer {
	return d.TransfersTo[s]
}

func (d *TransitData) Pattern(p model.PatternIndex) *model.Pattern {
	return &d.Routes[p].Pattern
}

func (d *TransitData) Timetable(p model.PatternIndex) *model.Timetable {
	return &d.Routes[p].Timetable
}

func (d *TransitData) Route(p model.PatternIndex) *model.Route {
	return &d.Routes[p]
}

func (d *TransitData) StopName(s model.StopIndex) string { return d.Stops.Names[s] }
func (d *TransitData) StopLat(s model.StopIndex) float64 { return d.Stops.Lats[s] }
func (d *TransitData) StopLon(s model.StopIndex) float64 { return d.Stops.Lons[s] }

// StopByID resolves a GTFS stop_id back to its dense StopIndex, for
// loaders and the by-stop query surface.
func (d *TransitData) StopByID(id string) (model.StopIndex, bool) {
	s, ok := d.StopIndexByID[id]
	return s, ok
}

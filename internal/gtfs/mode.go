package gtfs

import "github.com/hanroute/transit-engine/internal/model"

// InferDisplayMode determines a route's display mode from its
// route_type, for UI/debug purposes only. It uses the same four-mode
// grouping as SlackIndexForRouteType (so basic code 2 counts as subway
// and 4 and 7 as rail), not the labels of the GTFS route_type table.
func InferDisplayMode(r Route) model.TransitMode {
	switch r.RouteType {
	case 0, 1, 2, 5, 6:
		return model.ModeSubwayDisplay
	case 3:
		return model.ModeBusDisplay
	case 4, 7:
		return model.ModeRailDisplay
	}
	switch {
	case r.RouteType >= 100 && r.RouteType <= 299:
		return model.ModeRailDisplay
	case r.RouteType >= 400 && r.RouteType <= 499, r.RouteType >= 900 && r.RouteType <= 999:
		return model.ModeSubwayDisplay
	case r.RouteType >= 700 && r.RouteType <= 799:
		return model.ModeBusDisplay
	case r.RouteType >= 1100 && r.RouteType <= 1199:
		return model.ModeOtherDisplay
	}
	return model.ModeBusDisplay
}

// SlackIndexForRouteType maps a GTFS route_type to the slack table row
// that governs boarding/alighting padding for patterns of that mode
// (spec §4.3). Unknown codes fall back to bus, the most common mode.
func SlackIndexForRouteType(routeType int) model.SlackIndex {
	switch routeType {
	case 0, 1, 2, 5, 6:
		return model.SlackSubway
	case 3:
		return model.SlackBus
	case 4, 7:
		return model.SlackRail
	}
	switch {
	case routeType >= 100 && routeType <= 299:
		return model.SlackRail
	case routeType >= 400 && routeType <= 499, routeType >= 900 && routeType <= 999:
		return model.SlackSubway
	case routeType >= 700 && routeType <= 799:
		return model.SlackBus
	case routeType >= 1100 && routeType <= 1199:
		return model.SlackOther
	}
	return model.SlackBus
}

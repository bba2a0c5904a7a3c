// Package api exposes the routing engine's HTTP query surface with
// Fiber, grounded in the teacher's internal/api/handlers.go coordinate
// parsing and JSON response shape, trimmed of the multi-tenant
// partner/billing concerns that have no home in this engine.
package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hanroute/transit-engine/internal/cache"
	"github.com/hanroute/transit-engine/internal/gtfs"
	"github.com/hanroute/transit-engine/internal/itinerary"
	"github.com/hanroute/transit-engine/internal/model"
	"github.com/hanroute/transit-engine/internal/planner"
)

// Server holds the dependencies handlers need; created once at
// startup and shared read-only across every request.
type Server struct {
	Planner *planner.Planner
	Cache   *cache.Cache // nil disables caching
}

// LegView and ItineraryView are the wire shapes returned to clients,
// kept distinct from the internal itinerary types so the response
// format doesn't drift with internal refactors. Walk legs carry
// distance and duration; ride legs carry duration (alight minus board
// time), route identity and board/alight stops and times, but no
// distance.
type LegView struct {
	Type           string  `json:"type"`
	FromStop       int     `json:"from_stop,omitempty"`
	ToStop         int     `json:"to_stop,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	DurationSec    int     `json:"duration_sec"`
	RouteShort     string  `json:"route_short,omitempty"`
	RouteType      int     `json:"route_type,omitempty"`
	BoardStop      int     `json:"board_stop,omitempty"`
	AlightStop     int     `json:"alight_stop,omitempty"`
	BoardSec       int     `json:"board_sec,omitempty"`
	AlightSec      int     `json:"alight_sec,omitempty"`
}

type ItineraryView struct {
	DepartSec     int       `json:"depart_sec"`
	ArriveSec     int       `json:"arrive_sec"`
	DurationSec   int       `json:"duration_sec"`
	TransferCount int       `json:"transfer_count"`
	Legs          []LegView `json:"legs"`
}

var legTypeNames = map[itinerary.LegType]string{
	itinerary.LegAccessWalk:   "access_walk",
	itinerary.LegRide:         "ride",
	itinerary.LegTransferWalk: "transfer_walk",
	itinerary.LegEgressWalk:   "egress_walk",
}

func (s *Server) toView(it itinerary.Itinerary) ItineraryView {
	legs := make([]LegView, len(it.Legs))
	rides := 0
	for i, l := range it.Legs {
		view := LegView{
			Type:           legTypeNames[l.Type],
			FromStop:       int(l.FromStop),
			ToStop:         int(l.ToStop),
			DistanceMeters: l.DistanceMeters,
			DurationSec:    l.DurationSec,
		}
		if l.Type == itinerary.LegRide {
			rides++
			route := s.Planner.Data.Route(l.Pattern)
			view.RouteShort = route.ShortName
			view.RouteType = route.RouteType
			view.BoardStop = int(l.BoardStop)
			view.AlightStop = int(l.AlightStop)
			view.BoardSec = l.BoardSec
			view.AlightSec = l.AlightSec
			view.DurationSec = l.AlightSec - l.BoardSec
		}
		legs[i] = view
	}
	transfers := rides - 1
	if transfers < 0 {
		transfers = 0
	}
	return ItineraryView{
		DepartSec:     it.DepartSec,
		ArriveSec:     it.ArriveSec,
		DurationSec:   it.ArriveSec - it.DepartSec,
		TransferCount: transfers,
		Legs:          legs,
	}
}

// Plan handles GET /v2/plan?from=lat,lon&to=lat,lon&depart=HH:MM:SS
func (s *Server) Plan(c *fiber.Ctx) error {
	fromStr, toStr, departStr := c.Query("from"), c.Query("to"), c.Query("depart")
	if fromStr == "" || toStr == "" || departStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing required parameters: from, to, depart"})
	}

	fromLat, fromLon, err := parseCoordinates(fromStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid 'from': %v", err)})
	}
	toLat, toLon, err := parseCoordinates(toStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid 'to': %v", err)})
	}
	departSec, err := gtfs.ParseTimeToSeconds(departStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid 'depart': %v", err)})
	}
	maxResults := c.QueryInt("max", 3)

	ctx := c.Context()

	if s.Cache != nil {
		key := cache.RouteKey(fromLat, fromLon, toLat, toLon, departSec)
		if cached, err := s.Cache.Get(ctx, key); err == nil && cached != nil {
			return c.JSON(s.toResponse(cached))
		}
		if acquired, _ := s.Cache.AcquireLock(ctx, key); !acquired {
			if waited, err := s.Cache.WaitForLock(ctx, key, 3*time.Second); err == nil && waited != nil {
				return c.JSON(s.toResponse(waited))
			}
		} else {
			defer s.Cache.ReleaseLock(ctx, key)
		}
		result, err := s.Planner.Route(ctx, fromLat, fromLon, toLat, toLon, departSec, maxResults)
		if err != nil {
			return planError(c, err)
		}
		_ = s.Cache.Set(ctx, key, result)
		return c.JSON(s.toResponse(result))
	}

	result, err := s.Planner.Route(ctx, fromLat, fromLon, toLat, toLon, departSec, maxResults)
	if err != nil {
		return planError(c, err)
	}
	return c.JSON(s.toResponse(result))
}

// planError maps the planner's error taxonomy onto HTTP responses.
func planError(c *fiber.Ctx, err error) error {
	switch err {
	case planner.ErrNoAccess:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no stops within walking range of origin"})
	case planner.ErrNoEgress:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no stops within walking range of destination"})
	case planner.ErrTimeout:
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": "search deadline exceeded"})
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no itinerary found"})
	}
}

// PlanByStop handles GET /v2/plan/by-stop?from=idx&to=idx&depart=HH:MM:SS
func (s *Server) PlanByStop(c *fiber.Ctx) error {
	fromIdx, err := strconv.Atoi(c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid 'from' stop index"})
	}
	toIdx, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid 'to' stop index"})
	}
	departSec, err := gtfs.ParseTimeToSeconds(c.Query("depart"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid 'depart': %v", err)})
	}

	result, err := s.Planner.RouteByStop(c.Context(), model.StopIndex(fromIdx), model.StopIndex(toIdx), departSec)
	if err != nil {
		return planError(c, err)
	}
	return c.JSON(s.toResponse(result))
}

func (s *Server) toResponse(result []itinerary.Itinerary) fiber.Map {
	views := make([]ItineraryView, len(result))
	for i, it := range result {
		views[i] = s.toView(it)
	}
	return fiber.Map{"itineraries": views}
}

// Health handles GET /health.
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

// parseCoordinates parses a "lat,lon" string into floats, validating
// range (grounded in the teacher's parseCoordinates).
func parseCoordinates(coordStr string) (lat, lon float64, err error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected format: lat,lon")
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude must be between -180 and 180")
	}
	return lat, lon, nil
}
